package strategy

import (
	"fmt"
	"strings"

	"quantdesk/internal/market"
)

// Action is a strategy recommendation.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

func (a Action) IsBuy() bool  { return a == ActionBuy }
func (a Action) IsSell() bool { return a == ActionSell }

// Kind identifies one of the fixed strategy families.
type Kind string

const (
	KindMeanReversion  Kind = "mean_reversion"
	KindTrendFollowing Kind = "trend_following"
	KindMomentum       Kind = "momentum"
	KindVolatility     Kind = "volatility"
	KindBreakout       Kind = "breakout"
	KindEnsemble       Kind = "ensemble"
)

// Signal is a strategy's recommendation for one symbol at one tick. Produced
// fresh per evaluation and never mutated; the sizer consumes it once.
type Signal struct {
	StrategyID  string  `json:"strategy_id"`
	Symbol      string  `json:"symbol"`
	Action      Action  `json:"action"`
	Confidence  float64 `json:"confidence"` // always in [0,1]
	Rationale   string  `json:"rationale"`
	PriceTarget float64 `json:"price_target,omitempty"`
	StopLoss    float64 `json:"stop_loss,omitempty"`
	TakeProfit  float64 `json:"take_profit,omitempty"`
}

// Params is the parameter mapping of a deployed strategy. Which fields are
// read depends on the strategy kind.
type Params struct {
	EntryThreshold  float64 `json:"entry_threshold,omitempty"`
	ExitThreshold   float64 `json:"exit_threshold,omitempty"`
	LookbackPeriod  int     `json:"lookback_period,omitempty"`
	StopLossPct     float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct   float64 `json:"take_profit_pct,omitempty"`
	PositionSizePct float64 `json:"position_size_pct,omitempty"`

	// mean reversion: "absolute" treats thresholds as prices, "ma_offset"
	// treats them as percent offsets from the moving average.
	ThresholdBasis string `json:"threshold_basis,omitempty"`

	// momentum: which oscillator drives the crossover ("macd" | "stochastic").
	Oscillator string `json:"oscillator,omitempty"`

	// volatility: CALL buys on a vol spike, PUT sells.
	OptionType string `json:"option_type,omitempty"`

	// breakout.
	BreakoutMarginPct float64 `json:"breakout_margin_pct,omitempty"`
	VolumeMultiple    float64 `json:"volume_multiple,omitempty"`

	// ensemble: action taken on a tied weighted vote. Empty means HOLD.
	DefaultAction string `json:"default_action,omitempty"`

	// risk gate overrides; zero falls back to the global risk config.
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`
	ApprovalNotional    float64 `json:"approval_notional,omitempty"`
}

// Member is one ensemble constituent: a non-ensemble strategy held by value
// with its voting weight.
type Member struct {
	Kind   Kind    `json:"kind"`
	Weight float64 `json:"weight"`
	Params Params  `json:"params"`
}

// Config is a deployed strategy: owned by a user, read-only to the pipeline,
// mutated only by explicit reconfiguration and soft-deleted on removal.
type Config struct {
	ID            string   `json:"id"`
	UserID        string   `json:"user_id"`
	Kind          Kind     `json:"kind"`
	Symbol        string   `json:"symbol"`
	RiskTolerance string   `json:"risk_tolerance,omitempty"`
	Params        Params   `json:"params"`
	Members       []Member `json:"members,omitempty"` // ensemble only
}

// Evaluator turns market data plus parameters into a signal. Implementations
// must be pure: no I/O, no mutation of the snapshot or config.
type Evaluator interface {
	Kind() Kind
	Evaluate(snap *market.MarketSnapshot, cfg *Config) Signal
}

// ForKind maps a kind onto its evaluator. The set of variants is fixed.
func ForKind(kind Kind) (Evaluator, error) {
	switch kind {
	case KindMeanReversion:
		return MeanReversion{}, nil
	case KindTrendFollowing:
		return TrendFollowing{}, nil
	case KindMomentum:
		return Momentum{}, nil
	case KindVolatility:
		return Volatility{}, nil
	case KindBreakout:
		return Breakout{}, nil
	case KindEnsemble:
		return Ensemble{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", kind)
	}
}

// RequiredIndicators lists the indicator names a kind needs in the snapshot.
func RequiredIndicators(kind Kind, p Params) []string {
	switch kind {
	case KindMeanReversion:
		if strings.EqualFold(p.ThresholdBasis, "ma_offset") {
			return []string{"sma"}
		}
		return nil
	case KindTrendFollowing:
		return []string{"sma"}
	case KindMomentum:
		if strings.EqualFold(p.Oscillator, "stochastic") {
			return []string{"stochastic"}
		}
		return []string{"macd"}
	case KindBreakout:
		return []string{"volume_sma"}
	default:
		return nil
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
