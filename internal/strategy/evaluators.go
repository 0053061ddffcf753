package strategy

import (
	"fmt"
	"math"
	"strings"

	"quantdesk/internal/market"
)

// holdSignal is the common "cannot act" result. Confidence is zero so the
// sizer short-circuits.
func holdSignal(cfg *Config, symbol, rationale string) Signal {
	return Signal{
		StrategyID: cfg.ID,
		Symbol:     symbol,
		Action:     ActionHold,
		Confidence: 0,
		Rationale:  rationale,
	}
}

// insufficientData is the mandated HOLD when a required indicator is absent.
func insufficientData(cfg *Config, symbol string) Signal {
	return holdSignal(cfg, symbol, "insufficient data")
}

// MeanReversion buys below the entry threshold and sells above the exit
// threshold. Thresholds are absolute prices, or percent offsets from the
// moving average when threshold_basis is "ma_offset".
type MeanReversion struct{}

func (MeanReversion) Kind() Kind { return KindMeanReversion }

func (MeanReversion) Evaluate(snap *market.MarketSnapshot, cfg *Config) Signal {
	p := cfg.Params
	price := snap.LastPrice
	entry, exit := p.EntryThreshold, p.ExitThreshold
	if strings.EqualFold(p.ThresholdBasis, "ma_offset") {
		ma, ok := snap.Indicator("sma")
		if !ok {
			return insufficientData(cfg, snap.Symbol)
		}
		entry = ma.Value * (1 - p.EntryThreshold/100)
		exit = ma.Value * (1 + p.ExitThreshold/100)
	}
	if entry <= 0 || exit <= 0 {
		return holdSignal(cfg, snap.Symbol, "thresholds not configured")
	}
	switch {
	case price < entry:
		deviation := (entry - price) / entry
		return Signal{
			StrategyID: cfg.ID,
			Symbol:     snap.Symbol,
			Action:     ActionBuy,
			Confidence: clamp01(0.5 + deviation*5),
			Rationale:  fmt.Sprintf("price %.2f below entry threshold %.2f", price, entry),
		}
	case price > exit:
		deviation := (price - exit) / exit
		return Signal{
			StrategyID: cfg.ID,
			Symbol:     snap.Symbol,
			Action:     ActionSell,
			Confidence: clamp01(0.5 + deviation*5),
			Rationale:  fmt.Sprintf("price %.2f above exit threshold %.2f", price, exit),
		}
	default:
		return holdSignal(cfg, snap.Symbol, fmt.Sprintf("price %.2f within band [%.2f, %.2f]", price, entry, exit))
	}
}

// TrendFollowing buys when price runs ahead of the moving average by the
// entry margin and sells when it falls behind by the exit margin. Margins
// are percents.
type TrendFollowing struct{}

func (TrendFollowing) Kind() Kind { return KindTrendFollowing }

func (TrendFollowing) Evaluate(snap *market.MarketSnapshot, cfg *Config) Signal {
	ma, ok := snap.Indicator("sma")
	if !ok || ma.Value <= 0 {
		return insufficientData(cfg, snap.Symbol)
	}
	p := cfg.Params
	price := snap.LastPrice
	upper := ma.Value * (1 + p.EntryThreshold/100)
	lower := ma.Value * (1 - p.ExitThreshold/100)
	switch {
	case price > upper:
		excess := (price - upper) / upper
		return Signal{
			StrategyID: cfg.ID,
			Symbol:     snap.Symbol,
			Action:     ActionBuy,
			Confidence: clamp01(0.5 + excess*10),
			Rationale:  fmt.Sprintf("price %.2f above MA band %.2f (+%.1f%%)", price, upper, p.EntryThreshold),
		}
	case price < lower:
		excess := (lower - price) / lower
		return Signal{
			StrategyID: cfg.ID,
			Symbol:     snap.Symbol,
			Action:     ActionSell,
			Confidence: clamp01(0.5 + excess*10),
			Rationale:  fmt.Sprintf("price %.2f below MA band %.2f (-%.1f%%)", price, lower, p.ExitThreshold),
		}
	default:
		return holdSignal(cfg, snap.Symbol, "price inside trend band")
	}
}

// Momentum trades oscillator crossovers: MACD line vs its signal line, or
// stochastic %K vs %D restricted to the oversold/overbought zones.
type Momentum struct{}

func (Momentum) Kind() Kind { return KindMomentum }

func (m Momentum) Evaluate(snap *market.MarketSnapshot, cfg *Config) Signal {
	if strings.EqualFold(cfg.Params.Oscillator, "stochastic") {
		return m.evaluateStochastic(snap, cfg)
	}
	return m.evaluateMACD(snap, cfg)
}

func (Momentum) evaluateMACD(snap *market.MarketSnapshot, cfg *Config) Signal {
	macd, ok := snap.Indicator("macd")
	if !ok {
		return insufficientData(cfg, snap.Symbol)
	}
	line := macd.Value
	signal := macd.Part("signal")
	prevLine := macd.Part("prev_line")
	prevSignal := macd.Part("prev_signal")
	hist := line - signal
	conf := clamp01(0.5 + math.Abs(hist)/math.Max(math.Abs(signal), 1e-9)*0.5)
	switch {
	case prevLine <= prevSignal && line > signal:
		return Signal{
			StrategyID: cfg.ID,
			Symbol:     snap.Symbol,
			Action:     ActionBuy,
			Confidence: conf,
			Rationale:  fmt.Sprintf("MACD bullish crossover (line %.4f > signal %.4f)", line, signal),
		}
	case prevLine >= prevSignal && line < signal:
		return Signal{
			StrategyID: cfg.ID,
			Symbol:     snap.Symbol,
			Action:     ActionSell,
			Confidence: conf,
			Rationale:  fmt.Sprintf("MACD bearish crossover (line %.4f < signal %.4f)", line, signal),
		}
	default:
		return holdSignal(cfg, snap.Symbol, "no MACD crossover")
	}
}

func (Momentum) evaluateStochastic(snap *market.MarketSnapshot, cfg *Config) Signal {
	stoch, ok := snap.Indicator("stochastic")
	if !ok {
		return insufficientData(cfg, snap.Symbol)
	}
	k := stoch.Part("k")
	d := stoch.Part("d")
	prevK := stoch.Part("prev_k")
	prevD := stoch.Part("prev_d")
	oversold := cfg.Params.EntryThreshold
	if oversold <= 0 {
		oversold = 20
	}
	overbought := cfg.Params.ExitThreshold
	if overbought <= 0 {
		overbought = 80
	}
	switch {
	case prevK <= prevD && k > d && k <= oversold:
		return Signal{
			StrategyID: cfg.ID,
			Symbol:     snap.Symbol,
			Action:     ActionBuy,
			Confidence: clamp01(0.5 + (oversold-k)/oversold),
			Rationale:  fmt.Sprintf("stochastic bullish crossover in oversold zone (k=%.1f)", k),
		}
	case prevK >= prevD && k < d && k >= overbought:
		return Signal{
			StrategyID: cfg.ID,
			Symbol:     snap.Symbol,
			Action:     ActionSell,
			Confidence: clamp01(0.5 + (k-overbought)/(100-overbought)),
			Rationale:  fmt.Sprintf("stochastic bearish crossover in overbought zone (k=%.1f)", k),
		}
	default:
		return holdSignal(cfg, snap.Symbol, "no stochastic crossover in permitted zone")
	}
}

// Volatility fires once realized volatility exceeds the entry threshold;
// direction comes from the configured option type (CALL buys, PUT sells).
type Volatility struct{}

func (Volatility) Kind() Kind { return KindVolatility }

func (Volatility) Evaluate(snap *market.MarketSnapshot, cfg *Config) Signal {
	p := cfg.Params
	lookback := p.LookbackPeriod
	if lookback <= 0 {
		lookback = 20
	}
	if len(snap.Window) < lookback+1 {
		return insufficientData(cfg, snap.Symbol)
	}
	vol := realizedVolPct(snap.Window, lookback)
	if vol < p.EntryThreshold {
		return holdSignal(cfg, snap.Symbol, fmt.Sprintf("realized vol %.2f%% below threshold %.2f%%", vol, p.EntryThreshold))
	}
	conf := clamp01(0.5 + (vol-p.EntryThreshold)/math.Max(p.EntryThreshold, 1e-9)*0.5)
	rationale := fmt.Sprintf("realized vol %.2f%% above threshold %.2f%%", vol, p.EntryThreshold)
	switch strings.ToUpper(p.OptionType) {
	case "CALL":
		return Signal{StrategyID: cfg.ID, Symbol: snap.Symbol, Action: ActionBuy, Confidence: conf, Rationale: rationale}
	case "PUT":
		return Signal{StrategyID: cfg.ID, Symbol: snap.Symbol, Action: ActionSell, Confidence: conf, Rationale: rationale}
	default:
		return holdSignal(cfg, snap.Symbol, "option_type not configured")
	}
}

// realizedVolPct is the annualized standard deviation of bar-to-bar returns
// over the trailing lookback, in percent.
func realizedVolPct(window []market.Candle, lookback int) float64 {
	closes := market.Closes(window)
	start := len(closes) - lookback - 1
	returns := make([]float64, 0, lookback)
	for i := start + 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance) * math.Sqrt(252) * 100
}

// Breakout buys a close above resistance plus margin on expanded volume, and
// sells the symmetric support breakdown.
type Breakout struct{}

func (Breakout) Kind() Kind { return KindBreakout }

func (Breakout) Evaluate(snap *market.MarketSnapshot, cfg *Config) Signal {
	avgVol, ok := snap.Indicator("volume_sma")
	if !ok || avgVol.Value <= 0 {
		return insufficientData(cfg, snap.Symbol)
	}
	p := cfg.Params
	lookback := p.LookbackPeriod
	if lookback <= 0 {
		lookback = 20
	}
	// Resistance/support exclude the current bar so a new extreme registers
	// as a break.
	if len(snap.Window) < lookback+1 {
		return insufficientData(cfg, snap.Symbol)
	}
	hist := snap.Window[len(snap.Window)-lookback-1 : len(snap.Window)-1]
	resistance, support := hist[0].High, hist[0].Low
	for _, c := range hist[1:] {
		resistance = math.Max(resistance, c.High)
		support = math.Min(support, c.Low)
	}
	last := snap.Window[len(snap.Window)-1]
	margin := p.BreakoutMarginPct / 100
	volMultiple := p.VolumeMultiple
	if volMultiple <= 0 {
		volMultiple = 1.5
	}
	volumeOK := last.Volume >= avgVol.Value*volMultiple
	switch {
	case last.Close > resistance*(1+margin) && volumeOK:
		strength := (last.Close - resistance) / resistance
		return Signal{
			StrategyID: cfg.ID,
			Symbol:     snap.Symbol,
			Action:     ActionBuy,
			Confidence: clamp01(0.5 + strength*10),
			Rationale:  fmt.Sprintf("close %.2f broke resistance %.2f on %.1fx volume", last.Close, resistance, last.Volume/avgVol.Value),
		}
	case last.Close < support*(1-margin) && volumeOK:
		strength := (support - last.Close) / support
		return Signal{
			StrategyID: cfg.ID,
			Symbol:     snap.Symbol,
			Action:     ActionSell,
			Confidence: clamp01(0.5 + strength*10),
			Rationale:  fmt.Sprintf("close %.2f broke support %.2f on %.1fx volume", last.Close, support, last.Volume/avgVol.Value),
		}
	default:
		return holdSignal(cfg, snap.Symbol, "no breakout")
	}
}
