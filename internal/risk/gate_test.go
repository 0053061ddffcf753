package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quantdesk/internal/config"
	"quantdesk/internal/strategy"
	"quantdesk/internal/types"
)

func testGate() *Gate {
	return NewGate(config.RiskConfig{
		MaxPositionPct:      0.20,
		ConcentrationPct:    0.25,
		ConfidenceThreshold: 0.6,
		ApprovalNotional:    100000,
	})
}

func proposal(action strategy.Action, notional, confidence float64) *types.TradeProposal {
	return &types.TradeProposal{
		TraceID:           "t-1",
		PortfolioID:       "pf-1",
		UserID:            "u1",
		Symbol:            "RELIANCE",
		Action:            action,
		Quantity:          notional / 2400,
		Price:             2400,
		EstimatedNotional: notional,
		Confidence:        confidence,
	}
}

func portfolio(cash float64) *types.Portfolio {
	return &types.Portfolio{
		ID:          "pf-1",
		UserID:      "u1",
		CashBalance: cash,
		Holdings:    map[string]types.Holding{},
	}
}

func TestGateReview(t *testing.T) {
	gate := testGate()

	t.Run("global kill switch rejects everything", func(t *testing.T) {
		d := gate.Review(proposal(strategy.ActionBuy, 1000, 0.99), portfolio(100000),
			config.RuntimeConfig{KillSwitch: true}, strategy.Params{})
		assert.Equal(t, types.RiskRejected, d.Outcome)
		assert.Equal(t, "trading suspended", d.Reason)
		assert.Equal(t, RuleKillSwitch, d.Rule)
	})

	t.Run("per-user halt rejects that user", func(t *testing.T) {
		rt := config.RuntimeConfig{HaltedUsers: []string{"u1"}}
		d := gate.Review(proposal(strategy.ActionBuy, 1000, 0.99), portfolio(100000), rt, strategy.Params{})
		assert.Equal(t, types.RiskRejected, d.Outcome)
		assert.Equal(t, "trading suspended", d.Reason)

		rt = config.RuntimeConfig{HaltedUsers: []string{"someone-else"}}
		d = gate.Review(proposal(strategy.ActionBuy, 1000, 0.99), portfolio(100000), rt, strategy.Params{})
		assert.Equal(t, types.RiskApproved, d.Outcome)
	})

	t.Run("insufficient funds rejects a buy", func(t *testing.T) {
		d := gate.Review(proposal(strategy.ActionBuy, 5000, 0.99), portfolio(1000),
			config.RuntimeConfig{}, strategy.Params{})
		assert.Equal(t, types.RiskRejected, d.Outcome)
		assert.Equal(t, RuleFunds, d.Rule)
	})

	t.Run("position limit rejects an oversized buy", func(t *testing.T) {
		pf := portfolio(100000)
		d := gate.Review(proposal(strategy.ActionBuy, 30000, 0.99), pf,
			config.RuntimeConfig{}, strategy.Params{})
		assert.Equal(t, types.RiskRejected, d.Outcome)
		assert.Equal(t, RulePositionLimit, d.Rule)
		assert.Equal(t, 20000.0, d.Threshold)
	})

	t.Run("concentration limit rejects stacking one symbol", func(t *testing.T) {
		pf := portfolio(50000)
		pf.Holdings["RELIANCE"] = types.Holding{Symbol: "RELIANCE", Quantity: 8, AvgPrice: 2400}
		pf.InvestedAmount = 8 * 2400
		// resulting exposure (19200+15000)/69200 ≈ 49% > 25%
		d := gate.Review(proposal(strategy.ActionBuy, 13000, 0.99), pf,
			config.RuntimeConfig{}, strategy.Params{})
		assert.Equal(t, types.RiskRejected, d.Outcome)
		assert.Equal(t, RuleConcentration, d.Rule)
	})

	t.Run("low confidence escalates to approval", func(t *testing.T) {
		d := gate.Review(proposal(strategy.ActionBuy, 1000, 0.4), portfolio(100000),
			config.RuntimeConfig{}, strategy.Params{})
		assert.Equal(t, types.RiskPendingApproval, d.Outcome)
		assert.Equal(t, RuleEscalation, d.Rule)
		assert.Equal(t, 0.6, d.Threshold)
		assert.Equal(t, 0.4, d.Observed)
	})

	t.Run("oversized notional escalates to approval", func(t *testing.T) {
		big := NewGate(config.RiskConfig{
			MaxPositionPct:      0.9,
			ConcentrationPct:    0.9,
			ConfidenceThreshold: 0.6,
			ApprovalNotional:    10000,
		})
		d := big.Review(proposal(strategy.ActionBuy, 50000, 0.95), portfolio(100000),
			config.RuntimeConfig{}, strategy.Params{})
		assert.Equal(t, types.RiskPendingApproval, d.Outcome)
		assert.Equal(t, RuleEscalation, d.Rule)
	})

	t.Run("strategy overrides replace the configured thresholds", func(t *testing.T) {
		overrides := strategy.Params{ConfidenceThreshold: 0.3}
		d := gate.Review(proposal(strategy.ActionBuy, 1000, 0.4), portfolio(100000),
			config.RuntimeConfig{}, overrides)
		assert.Equal(t, types.RiskApproved, d.Outcome)
	})

	t.Run("sell is exempt from funds and position caps", func(t *testing.T) {
		pf := portfolio(0)
		pf.Holdings["RELIANCE"] = types.Holding{Symbol: "RELIANCE", Quantity: 10, AvgPrice: 2400}
		pf.InvestedAmount = 24000
		d := gate.Review(proposal(strategy.ActionSell, 24000, 0.9), pf,
			config.RuntimeConfig{}, strategy.Params{})
		assert.Equal(t, types.RiskApproved, d.Outcome)
	})

	t.Run("clean proposal is approved", func(t *testing.T) {
		d := gate.Review(proposal(strategy.ActionBuy, 15000, 0.8), portfolio(100000),
			config.RuntimeConfig{}, strategy.Params{})
		assert.Equal(t, types.RiskApproved, d.Outcome)
		assert.Empty(t, d.Rule)
	})
}
