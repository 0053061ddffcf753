package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantdesk/internal/strategy"
	"quantdesk/internal/types"
)

func testPortfolio(cash float64) *types.Portfolio {
	return &types.Portfolio{
		ID:          "pf-1",
		UserID:      "u1",
		CashBalance: cash,
		Holdings:    map[string]types.Holding{},
	}
}

func TestSizerBuild(t *testing.T) {
	sizer := Sizer{MinTradeUnit: 1, DefaultMaxPositionPct: 0.20}

	t.Run("hold signals build nothing", func(t *testing.T) {
		sig := strategy.Signal{Symbol: "RELIANCE", Action: strategy.ActionHold, Confidence: 0.9}
		assert.Nil(t, sizer.Build(sig, 2400, testPortfolio(100000), strategy.Params{}))
	})

	t.Run("buy respects the sizing invariant", func(t *testing.T) {
		pf := testPortfolio(100000)
		sig := strategy.Signal{Symbol: "RELIANCE", Action: strategy.ActionBuy, Confidence: 0.8}
		p := sizer.Build(sig, 2400, pf, strategy.Params{StopLossPct: 0.05, TakeProfitPct: 0.10})
		require.NotNil(t, p)
		assert.LessOrEqual(t, p.Quantity*p.Price, pf.Equity()*0.20+1e-9)
		assert.Equal(t, 8.0, p.Quantity) // floor(20000/2400)
		assert.InDelta(t, 2280, p.StopLoss, 1e-9)
		assert.InDelta(t, 2640, p.TakeProfit, 1e-9)
		assert.Equal(t, "pf-1", p.PortfolioID)
		assert.Equal(t, 0.8, p.Confidence)
	})

	t.Run("buy is capped by available cash", func(t *testing.T) {
		pf := testPortfolio(1000)
		pf.Holdings["OTHER"] = types.Holding{Symbol: "OTHER", Quantity: 10, AvgPrice: 10000}
		pf.InvestedAmount = 100000
		// 20% of equity would be 20200 but only 1000 cash is free.
		sig := strategy.Signal{Symbol: "RELIANCE", Action: strategy.ActionBuy, Confidence: 0.8}
		p := sizer.Build(sig, 100, pf, strategy.Params{})
		require.NotNil(t, p)
		assert.LessOrEqual(t, p.EstimatedNotional, 1000.0)
	})

	t.Run("quantity rounding to zero builds nothing", func(t *testing.T) {
		pf := testPortfolio(1000)
		sig := strategy.Signal{Symbol: "BTCUSDT", Action: strategy.ActionBuy, Confidence: 0.8}
		// 20% of 1000 = 200 budget, price 2400: floors to 0 units.
		assert.Nil(t, sizer.Build(sig, 2400, pf, strategy.Params{}))
	})

	t.Run("sell without a position builds nothing", func(t *testing.T) {
		sig := strategy.Signal{Symbol: "RELIANCE", Action: strategy.ActionSell, Confidence: 0.9}
		assert.Nil(t, sizer.Build(sig, 2400, testPortfolio(100000), strategy.Params{}))
	})

	t.Run("sell is capped at the held quantity", func(t *testing.T) {
		pf := testPortfolio(1000000)
		pf.Holdings["RELIANCE"] = types.Holding{Symbol: "RELIANCE", Quantity: 5, AvgPrice: 2300}
		pf.InvestedAmount = 5 * 2300
		sig := strategy.Signal{Symbol: "RELIANCE", Action: strategy.ActionSell, Confidence: 0.9}
		p := sizer.Build(sig, 2400, pf, strategy.Params{StopLossPct: 0.05, TakeProfitPct: 0.10})
		require.NotNil(t, p)
		assert.Equal(t, 5.0, p.Quantity)
		// sell exits mirror: stop above entry, target below
		assert.Greater(t, p.StopLoss, 2400.0)
		assert.Less(t, p.TakeProfit, 2400.0)
	})

	t.Run("fractional trade unit floors to a unit multiple", func(t *testing.T) {
		frac := Sizer{MinTradeUnit: 0.001, DefaultMaxPositionPct: 0.10}
		pf := testPortfolio(10000)
		sig := strategy.Signal{Symbol: "BTCUSDT", Action: strategy.ActionBuy, Confidence: 0.7}
		p := frac.Build(sig, 60000, pf, strategy.Params{})
		require.NotNil(t, p)
		// 10% of 10000 = 1000 budget → 0.016666 BTC floors to 0.016
		assert.InDelta(t, 0.016, p.Quantity, 1e-9)
	})

	t.Run("strategy position size overrides the default", func(t *testing.T) {
		pf := testPortfolio(100000)
		sig := strategy.Signal{Symbol: "RELIANCE", Action: strategy.ActionBuy, Confidence: 0.8}
		p := sizer.Build(sig, 100, pf, strategy.Params{PositionSizePct: 0.05})
		require.NotNil(t, p)
		assert.InDelta(t, 5000, p.EstimatedNotional, 1e-9)
	})

	t.Run("invalid price builds nothing", func(t *testing.T) {
		sig := strategy.Signal{Symbol: "RELIANCE", Action: strategy.ActionBuy, Confidence: 0.8}
		assert.Nil(t, sizer.Build(sig, 0, testPortfolio(100000), strategy.Params{}))
	})
}
