// Package sizing turns a signal into a concrete order proposal sized
// against the portfolio's risk budget.
package sizing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"quantdesk/internal/strategy"
	"quantdesk/internal/types"
)

// Sizer builds trade proposals. Zero-value fields fall back to defaults.
type Sizer struct {
	MinTradeUnit          float64 // instrument minimum lot; quantities floor to a multiple of it
	DefaultMaxPositionPct float64 // used when the strategy sets no position_size_pct
}

// Build converts a signal into a proposal, or returns nil when there is
// nothing to trade: HOLD signals, zero-quantity sizes, or sells without a
// position.
func (s Sizer) Build(sig strategy.Signal, price float64, pf *types.Portfolio, params strategy.Params) *types.TradeProposal {
	if sig.Action == strategy.ActionHold || price <= 0 || pf == nil {
		return nil
	}
	maxPct := params.PositionSizePct
	if maxPct <= 0 {
		maxPct = s.DefaultMaxPositionPct
	}
	if maxPct <= 0 {
		maxPct = 0.20
	}
	minUnit := s.MinTradeUnit
	if minUnit <= 0 {
		minUnit = 1
	}

	var qty float64
	switch sig.Action {
	case strategy.ActionBuy:
		budget := math.Min(pf.Equity()*maxPct, pf.CashBalance)
		qty = floorToUnit(budget/price, minUnit)
	case strategy.ActionSell:
		held, ok := pf.Holding(sig.Symbol)
		if !ok || held.Quantity <= 0 {
			return nil
		}
		target := floorToUnit(pf.Equity()*maxPct/price, minUnit)
		qty = math.Min(target, held.Quantity)
	default:
		return nil
	}
	if qty <= 0 {
		return nil
	}

	stop, take := exitPrices(price, params.StopLossPct, params.TakeProfitPct, sig.Action)
	notional, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(qty)).Float64()
	return &types.TradeProposal{
		PortfolioID:       pf.ID,
		UserID:            pf.UserID,
		StrategyID:        sig.StrategyID,
		Symbol:            sig.Symbol,
		Action:            sig.Action,
		Quantity:          qty,
		Price:             price,
		EstimatedNotional: notional,
		StopLoss:          stop,
		TakeProfit:        take,
		Confidence:        sig.Confidence,
		CreatedAt:         time.Now(),
	}
}

// exitPrices computes stop-loss and take-profit from the entry price. For a
// buy the stop sits below entry and the target above; a sell mirrors that.
func exitPrices(entry, stopPct, takePct float64, action strategy.Action) (stop, take float64) {
	entryDec := decimal.NewFromFloat(entry)
	one := decimal.NewFromInt(1)
	sl := decimal.NewFromFloat(stopPct)
	tp := decimal.NewFromFloat(takePct)
	if action == strategy.ActionSell {
		stop, _ = entryDec.Mul(one.Add(sl)).Float64()
		take, _ = entryDec.Mul(one.Sub(tp)).Float64()
		return stop, take
	}
	stop, _ = entryDec.Mul(one.Sub(sl)).Float64()
	take, _ = entryDec.Mul(one.Add(tp)).Float64()
	return stop, take
}

func floorToUnit(qty, unit float64) float64 {
	if unit <= 0 || qty <= 0 {
		return 0
	}
	steps := math.Floor(qty / unit)
	val, _ := decimal.NewFromFloat(steps).Mul(decimal.NewFromFloat(unit)).Float64()
	return val
}
