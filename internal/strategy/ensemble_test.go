package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsemble(t *testing.T) {
	t.Run("no members holds", func(t *testing.T) {
		cfg := &Config{Kind: KindEnsemble, Symbol: "BTCUSDT"}
		sig := Ensemble{}.Evaluate(flatSnapshot("BTCUSDT", 100, 30), cfg)
		assert.Equal(t, ActionHold, sig.Action)
	})

	t.Run("weighted vote picks the leading action", func(t *testing.T) {
		// Price 90: mean reversion (entry 95) buys, trend following has no
		// sma so it holds with zero confidence.
		snap := flatSnapshot("BTCUSDT", 90, 30)
		cfg := &Config{
			Kind:   KindEnsemble,
			Symbol: "BTCUSDT",
			Members: []Member{
				{Kind: KindMeanReversion, Weight: 2, Params: Params{EntryThreshold: 95, ExitThreshold: 120}},
				{Kind: KindTrendFollowing, Weight: 1, Params: Params{EntryThreshold: 1, ExitThreshold: 1}},
			},
		}
		sig := Ensemble{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionBuy, sig.Action)
		assert.Greater(t, sig.Confidence, 0.0)
		assert.LessOrEqual(t, sig.Confidence, 1.0)
		assert.Contains(t, sig.Rationale, "ensemble vote")
	})

	t.Run("tied vote resolves to hold", func(t *testing.T) {
		// Two mean-reversion members with mirrored thresholds and equal
		// weight: one buys, one sells, identical confidence.
		snap := flatSnapshot("BTCUSDT", 100, 30)
		cfg := &Config{
			Kind:   KindEnsemble,
			Symbol: "BTCUSDT",
			Members: []Member{
				{Kind: KindMeanReversion, Weight: 1, Params: Params{EntryThreshold: 110, ExitThreshold: 120}},
				{Kind: KindMeanReversion, Weight: 1, Params: Params{EntryThreshold: 50, ExitThreshold: 1100.0 / 12.0}},
			},
		}
		buy := MeanReversion{}.Evaluate(snap, &Config{Kind: KindMeanReversion, Symbol: "BTCUSDT", Params: cfg.Members[0].Params})
		sell := MeanReversion{}.Evaluate(snap, &Config{Kind: KindMeanReversion, Symbol: "BTCUSDT", Params: cfg.Members[1].Params})
		assert.Equal(t, ActionBuy, buy.Action)
		assert.Equal(t, ActionSell, sell.Action)
		assert.InDelta(t, buy.Confidence, sell.Confidence, 1e-9)

		sig := Ensemble{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionHold, sig.Action)
	})

	t.Run("tied vote honors the configured default action", func(t *testing.T) {
		snap := flatSnapshot("BTCUSDT", 100, 30)
		cfg := &Config{
			Kind:   KindEnsemble,
			Symbol: "BTCUSDT",
			Params: Params{DefaultAction: "SELL"},
			Members: []Member{
				{Kind: KindMeanReversion, Weight: 1, Params: Params{EntryThreshold: 110, ExitThreshold: 120}},
				{Kind: KindMeanReversion, Weight: 1, Params: Params{EntryThreshold: 50, ExitThreshold: 1100.0 / 12.0}},
			},
		}
		sig := Ensemble{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionSell, sig.Action)
	})

	t.Run("confidence is the weighted mean of members", func(t *testing.T) {
		snap := flatSnapshot("BTCUSDT", 90, 30)
		cfg := &Config{
			Kind:   KindEnsemble,
			Symbol: "BTCUSDT",
			Members: []Member{
				{Kind: KindMeanReversion, Weight: 3, Params: Params{EntryThreshold: 95, ExitThreshold: 120}},
				{Kind: KindTrendFollowing, Weight: 1, Params: Params{EntryThreshold: 1, ExitThreshold: 1}},
			},
		}
		member := MeanReversion{}.Evaluate(snap, &Config{Kind: KindMeanReversion, Symbol: "BTCUSDT", Params: cfg.Members[0].Params})
		sig := Ensemble{}.Evaluate(snap, cfg)
		// trend member holds with confidence 0, so the mean is 3c/4.
		assert.InDelta(t, member.Confidence*3/4, sig.Confidence, 1e-9)
	})

	t.Run("nested ensembles are skipped", func(t *testing.T) {
		snap := flatSnapshot("BTCUSDT", 90, 30)
		cfg := &Config{
			Kind:   KindEnsemble,
			Symbol: "BTCUSDT",
			Members: []Member{
				{Kind: KindEnsemble, Weight: 5},
				{Kind: KindMeanReversion, Weight: 1, Params: Params{EntryThreshold: 95, ExitThreshold: 120}},
			},
		}
		sig := Ensemble{}.Evaluate(snap, cfg)
		assert.Equal(t, ActionBuy, sig.Action)
	})
}
