package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateParams(t *testing.T) {
	t.Run("accepts a complete mean reversion config", func(t *testing.T) {
		raw := []byte(`{"entry_threshold": 2450, "exit_threshold": 2600, "stop_loss_pct": 0.05, "take_profit_pct": 0.10}`)
		assert.NoError(t, ValidateParams(KindMeanReversion, raw))
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		raw := []byte(`{"entry_threshold": 2450}`)
		assert.Error(t, ValidateParams(KindMeanReversion, raw))
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		raw := []byte(`{"entry_threshold": 1, "exit_threshold": 2, "stop_loss_pct": 0.05, "take_profit_pct": 0.1, "leverage": 50}`)
		assert.Error(t, ValidateParams(KindMeanReversion, raw))
	})

	t.Run("rejects out-of-range stop loss", func(t *testing.T) {
		raw := []byte(`{"entry_threshold": 1, "exit_threshold": 2, "stop_loss_pct": 1.5, "take_profit_pct": 0.1}`)
		assert.Error(t, ValidateParams(KindMeanReversion, raw))
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		assert.Error(t, ValidateParams(Kind("martingale"), []byte(`{}`)))
	})

	t.Run("volatility requires an option type", func(t *testing.T) {
		raw := []byte(`{"entry_threshold": 40, "stop_loss_pct": 0.05, "take_profit_pct": 0.1}`)
		assert.Error(t, ValidateParams(KindVolatility, raw))

		raw = []byte(`{"entry_threshold": 40, "option_type": "CALL", "stop_loss_pct": 0.05, "take_profit_pct": 0.1}`)
		assert.NoError(t, ValidateParams(KindVolatility, raw))
	})
}

func TestValidateConfig(t *testing.T) {
	t.Run("requires a user id", func(t *testing.T) {
		cfg := &Config{Kind: KindMomentum, Params: Params{StopLossPct: 0.05, TakeProfitPct: 0.1}}
		assert.Error(t, ValidateConfig(cfg))
	})

	t.Run("validates ensemble members", func(t *testing.T) {
		cfg := &Config{
			UserID: "u1",
			Kind:   KindEnsemble,
			Members: []Member{
				{Kind: KindMeanReversion, Weight: 1, Params: Params{EntryThreshold: 1}},
			},
		}
		// member is missing its required stop/take parameters
		assert.Error(t, ValidateConfig(cfg))

		cfg.Members[0].Params = Params{EntryThreshold: 1, ExitThreshold: 2, StopLossPct: 0.05, TakeProfitPct: 0.1}
		assert.NoError(t, ValidateConfig(cfg))
	})

	t.Run("rejects nested ensembles", func(t *testing.T) {
		cfg := &Config{
			UserID:  "u1",
			Kind:    KindEnsemble,
			Members: []Member{{Kind: KindEnsemble, Weight: 1}},
		}
		assert.Error(t, ValidateConfig(cfg))
	})
}
