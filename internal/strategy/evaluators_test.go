package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quantdesk/internal/market"
)

func flatSnapshot(symbol string, price float64, bars int) *market.MarketSnapshot {
	window := make([]market.Candle, bars)
	for i := range window {
		window[i] = market.Candle{Open: price, High: price, Low: price, Close: price, Volume: 100}
	}
	return &market.MarketSnapshot{
		Symbol:     symbol,
		LastPrice:  price,
		Window:     window,
		Indicators: map[string]market.IndicatorValue{},
	}
}

func TestMeanReversion(t *testing.T) {
	cfg := &Config{
		ID:     "mr-1",
		Kind:   KindMeanReversion,
		Symbol: "RELIANCE",
		Params: Params{EntryThreshold: 2450, ExitThreshold: 2600},
	}

	t.Run("buys below entry threshold", func(t *testing.T) {
		snap := flatSnapshot("RELIANCE", 2400, 30)
		sig := MeanReversion{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionBuy, sig.Action)
		assert.Greater(t, sig.Confidence, 0.0)
		assert.LessOrEqual(t, sig.Confidence, 1.0)
		assert.Contains(t, sig.Rationale, "below entry threshold")
	})

	t.Run("sells above exit threshold", func(t *testing.T) {
		snap := flatSnapshot("RELIANCE", 2700, 30)
		sig := MeanReversion{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionSell, sig.Action)
		assert.Greater(t, sig.Confidence, 0.0)
	})

	t.Run("holds inside the band", func(t *testing.T) {
		snap := flatSnapshot("RELIANCE", 2500, 30)
		sig := MeanReversion{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionHold, sig.Action)
		assert.Zero(t, sig.Confidence)
	})

	t.Run("ma_offset basis needs the sma indicator", func(t *testing.T) {
		offCfg := &Config{
			Kind:   KindMeanReversion,
			Symbol: "RELIANCE",
			Params: Params{EntryThreshold: 2, ExitThreshold: 2, ThresholdBasis: "ma_offset"},
		}
		snap := flatSnapshot("RELIANCE", 2400, 30)
		sig := MeanReversion{}.Evaluate(snap, offCfg)
		assert.Equal(t, ActionHold, sig.Action)
		assert.Equal(t, "insufficient data", sig.Rationale)

		snap.Indicators["sma"] = market.IndicatorValue{Value: 2500}
		sig = MeanReversion{}.Evaluate(snap, offCfg)
		// entry = 2500*(1-0.02) = 2450, price 2400 below it
		assert.Equal(t, ActionBuy, sig.Action)
	})
}

func TestTrendFollowing(t *testing.T) {
	cfg := &Config{
		Kind:   KindTrendFollowing,
		Symbol: "BTCUSDT",
		Params: Params{EntryThreshold: 2, ExitThreshold: 2},
	}

	t.Run("missing sma forces hold", func(t *testing.T) {
		snap := flatSnapshot("BTCUSDT", 50000, 30)
		sig := TrendFollowing{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionHold, sig.Action)
		assert.Equal(t, "insufficient data", sig.Rationale)
		assert.Zero(t, sig.Confidence)
	})

	t.Run("price above band buys", func(t *testing.T) {
		snap := flatSnapshot("BTCUSDT", 52000, 30)
		snap.Indicators["sma"] = market.IndicatorValue{Value: 50000}
		sig := TrendFollowing{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionBuy, sig.Action)
		assert.Greater(t, sig.Confidence, 0.0)
	})

	t.Run("price below band sells", func(t *testing.T) {
		snap := flatSnapshot("BTCUSDT", 48000, 30)
		snap.Indicators["sma"] = market.IndicatorValue{Value: 50000}
		sig := TrendFollowing{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionSell, sig.Action)
	})
}

func TestMomentumMACD(t *testing.T) {
	cfg := &Config{Kind: KindMomentum, Symbol: "ETHUSDT"}

	t.Run("bullish crossover buys", func(t *testing.T) {
		snap := flatSnapshot("ETHUSDT", 3000, 60)
		snap.Indicators["macd"] = market.IndicatorValue{
			Value: 1.2,
			Parts: map[string]float64{"signal": 1.0, "prev_line": 0.8, "prev_signal": 0.9},
		}
		sig := Momentum{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionBuy, sig.Action)
		assert.GreaterOrEqual(t, sig.Confidence, 0.5)
		assert.LessOrEqual(t, sig.Confidence, 1.0)
	})

	t.Run("bearish crossover sells", func(t *testing.T) {
		snap := flatSnapshot("ETHUSDT", 3000, 60)
		snap.Indicators["macd"] = market.IndicatorValue{
			Value: 0.7,
			Parts: map[string]float64{"signal": 0.9, "prev_line": 1.1, "prev_signal": 1.0},
		}
		sig := Momentum{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionSell, sig.Action)
	})

	t.Run("no crossover holds", func(t *testing.T) {
		snap := flatSnapshot("ETHUSDT", 3000, 60)
		snap.Indicators["macd"] = market.IndicatorValue{
			Value: 1.2,
			Parts: map[string]float64{"signal": 1.0, "prev_line": 1.1, "prev_signal": 0.9},
		}
		sig := Momentum{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionHold, sig.Action)
	})
}

func TestMomentumStochastic(t *testing.T) {
	cfg := &Config{Kind: KindMomentum, Symbol: "ETHUSDT", Params: Params{Oscillator: "stochastic"}}

	t.Run("crossover in oversold zone buys", func(t *testing.T) {
		snap := flatSnapshot("ETHUSDT", 3000, 60)
		snap.Indicators["stochastic"] = market.IndicatorValue{
			Parts: map[string]float64{"k": 15, "d": 12, "prev_k": 10, "prev_d": 11},
		}
		sig := Momentum{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionBuy, sig.Action)
	})

	t.Run("crossover outside the zone holds", func(t *testing.T) {
		snap := flatSnapshot("ETHUSDT", 3000, 60)
		snap.Indicators["stochastic"] = market.IndicatorValue{
			Parts: map[string]float64{"k": 50, "d": 45, "prev_k": 40, "prev_d": 44},
		}
		sig := Momentum{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionHold, sig.Action)
	})
}

func TestVolatility(t *testing.T) {
	t.Run("quiet market holds", func(t *testing.T) {
		cfg := &Config{Kind: KindVolatility, Symbol: "BTCUSDT", Params: Params{EntryThreshold: 50, OptionType: "CALL"}}
		snap := flatSnapshot("BTCUSDT", 50000, 60)
		sig := Volatility{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionHold, sig.Action)
	})

	t.Run("vol spike trades in option direction", func(t *testing.T) {
		window := make([]market.Candle, 60)
		price := 100.0
		for i := range window {
			if i%2 == 0 {
				price *= 1.05
			} else {
				price *= 0.95
			}
			window[i] = market.Candle{Close: price, Volume: 100}
		}
		snap := &market.MarketSnapshot{Symbol: "BTCUSDT", LastPrice: price, Window: window}

		call := &Config{Kind: KindVolatility, Symbol: "BTCUSDT", Params: Params{EntryThreshold: 10, OptionType: "CALL"}}
		sig := Volatility{}.Evaluate(snap, call)
		assert.Equal(t, ActionBuy, sig.Action)

		put := &Config{Kind: KindVolatility, Symbol: "BTCUSDT", Params: Params{EntryThreshold: 10, OptionType: "PUT"}}
		sig = Volatility{}.Evaluate(snap, put)
		assert.Equal(t, ActionSell, sig.Action)
	})

	t.Run("short window forces hold", func(t *testing.T) {
		cfg := &Config{Kind: KindVolatility, Symbol: "BTCUSDT", Params: Params{EntryThreshold: 10, OptionType: "CALL", LookbackPeriod: 50}}
		snap := flatSnapshot("BTCUSDT", 50000, 10)
		sig := Volatility{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionHold, sig.Action)
		assert.Equal(t, "insufficient data", sig.Rationale)
	})
}

func TestBreakout(t *testing.T) {
	build := func(lastClose, lastVolume float64) *market.MarketSnapshot {
		window := make([]market.Candle, 31)
		for i := 0; i < 30; i++ {
			window[i] = market.Candle{Open: 100, High: 110, Low: 90, Close: 100, Volume: 100}
		}
		window[30] = market.Candle{Open: 100, High: lastClose, Low: 90, Close: lastClose, Volume: lastVolume}
		return &market.MarketSnapshot{
			Symbol:    "NIFTY",
			LastPrice: lastClose,
			Window:    window,
			Indicators: map[string]market.IndicatorValue{
				"volume_sma": {Value: 100},
			},
		}
	}
	cfg := &Config{Kind: KindBreakout, Symbol: "NIFTY", Params: Params{LookbackPeriod: 20, BreakoutMarginPct: 1, VolumeMultiple: 1.5}}

	t.Run("resistance break on volume buys", func(t *testing.T) {
		sig := Breakout{}.Evaluate(build(115, 200), cfg)
		assert.Equal(t, ActionBuy, sig.Action)
		assert.Greater(t, sig.Confidence, 0.0)
	})

	t.Run("break without volume holds", func(t *testing.T) {
		sig := Breakout{}.Evaluate(build(115, 100), cfg)
		assert.Equal(t, ActionHold, sig.Action)
	})

	t.Run("support breakdown sells", func(t *testing.T) {
		snap := build(85, 200)
		snap.Window[len(snap.Window)-1].Low = 85
		sig := Breakout{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionSell, sig.Action)
	})

	t.Run("missing volume sma forces hold", func(t *testing.T) {
		snap := build(115, 200)
		delete(snap.Indicators, "volume_sma")
		sig := Breakout{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionHold, sig.Action)
		assert.Equal(t, "insufficient data", sig.Rationale)
	})
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	snap := flatSnapshot("X", 1, 30)
	snap.Indicators["sma"] = market.IndicatorValue{Value: 1000}
	cfg := &Config{
		Kind:   KindTrendFollowing,
		Symbol: "X",
		Params: Params{EntryThreshold: 1, ExitThreshold: 1},
	}
	// Price massively below the band: raw excess would overshoot 1.
	sig := TrendFollowing{}.Evaluate(snap, cfg)
	assert.GreaterOrEqual(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 1.0)
}
