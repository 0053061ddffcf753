// Package indicator computes technical indicators from an OHLCV window.
// All functions are pure and deterministic for identical input windows,
// which backtest reproducibility depends on. An indicator whose lookback
// exceeds the window is omitted from the output rather than zero-filled.
package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"quantdesk/internal/market"
)

// Indicator names accepted by Compute.
const (
	SMA        = "sma"
	EMA        = "ema"
	RSI        = "rsi"
	MACD       = "macd"
	Bollinger  = "bollinger"
	Stochastic = "stochastic"
	Ichimoku   = "ichimoku"
	VolumeSMA  = "volume_sma"
)

// Settings holds the lookback periods per indicator. Zero values fall back
// to the conventional defaults.
type Settings struct {
	SMAPeriod       int
	EMAPeriod       int
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerPeriod int
	BollingerMult   float64
	StochK          int
	StochD          int
	IchimokuTenkan  int
	IchimokuKijun   int
	IchimokuSenkouB int
	VolumePeriod    int
}

func (s Settings) withDefaults() Settings {
	if s.SMAPeriod <= 0 {
		s.SMAPeriod = 20
	}
	if s.EMAPeriod <= 0 {
		s.EMAPeriod = 20
	}
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.MACDFast <= 0 {
		s.MACDFast = 12
	}
	if s.MACDSlow <= 0 {
		s.MACDSlow = 26
	}
	if s.MACDSignal <= 0 {
		s.MACDSignal = 9
	}
	if s.BollingerPeriod <= 0 {
		s.BollingerPeriod = 20
	}
	if s.BollingerMult <= 0 {
		s.BollingerMult = 2
	}
	if s.StochK <= 0 {
		s.StochK = 14
	}
	if s.StochD <= 0 {
		s.StochD = 3
	}
	if s.IchimokuTenkan <= 0 {
		s.IchimokuTenkan = 9
	}
	if s.IchimokuKijun <= 0 {
		s.IchimokuKijun = 26
	}
	if s.IchimokuSenkouB <= 0 {
		s.IchimokuSenkouB = 52
	}
	if s.VolumePeriod <= 0 {
		s.VolumePeriod = 20
	}
	return s
}

// Compute evaluates the requested indicators over the window. Indicators the
// window is too short for are left out of the result; callers must treat a
// missing key as "unavailable".
func Compute(window []market.Candle, requested []string, cfg Settings) map[string]market.IndicatorValue {
	out := make(map[string]market.IndicatorValue, len(requested))
	if len(window) == 0 {
		return out
	}
	cfg = cfg.withDefaults()
	closes := market.Closes(window)
	highs := market.Highs(window)
	lows := market.Lows(window)
	volumes := market.Volumes(window)

	for _, name := range requested {
		switch name {
		case SMA:
			if len(closes) < cfg.SMAPeriod {
				continue
			}
			out[SMA] = market.IndicatorValue{Value: lastValid(talib.Sma(closes, cfg.SMAPeriod))}
		case EMA:
			if len(closes) < cfg.EMAPeriod {
				continue
			}
			out[EMA] = market.IndicatorValue{Value: lastValid(talib.Ema(closes, cfg.EMAPeriod))}
		case RSI:
			if len(closes) < cfg.RSIPeriod+1 {
				continue
			}
			val := clamp(lastValid(talib.Rsi(closes, cfg.RSIPeriod)), 0, 100)
			out[RSI] = market.IndicatorValue{Value: val}
		case MACD:
			if len(closes) < cfg.MACDSlow+cfg.MACDSignal {
				continue
			}
			macdLine, signal, hist := talib.Macd(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
			line := lastValid(macdLine)
			sig := lastValid(signal)
			out[MACD] = market.IndicatorValue{
				Value: line,
				Parts: map[string]float64{
					"signal":      sig,
					"histogram":   lastValid(hist),
					"prev_line":   prevValid(macdLine),
					"prev_signal": prevValid(signal),
				},
			}
		case Bollinger:
			if len(closes) < cfg.BollingerPeriod {
				continue
			}
			upper, middle, lower := talib.BBands(closes, cfg.BollingerPeriod, cfg.BollingerMult, cfg.BollingerMult, talib.SMA)
			out[Bollinger] = market.IndicatorValue{
				Value: lastValid(middle),
				Parts: map[string]float64{
					"upper":  lastValid(upper),
					"middle": lastValid(middle),
					"lower":  lastValid(lower),
				},
			}
		case Stochastic:
			// talib warms up over (K-1)+(slowK-1)+(slowD-1) bars; one more
			// bar so prev_k/prev_d have a second valid point.
			if len(closes) < cfg.StochK+2*cfg.StochD-1 {
				continue
			}
			k, d := talib.Stoch(highs, lows, closes, cfg.StochK, cfg.StochD, talib.SMA, cfg.StochD, talib.SMA)
			out[Stochastic] = market.IndicatorValue{
				Value: lastValid(k),
				Parts: map[string]float64{
					"k":      lastValid(k),
					"d":      lastValid(d),
					"prev_k": prevValid(k),
					"prev_d": prevValid(d),
				},
			}
		case Ichimoku:
			if len(window) < cfg.IchimokuSenkouB {
				continue
			}
			tenkan := midpoint(highs, lows, cfg.IchimokuTenkan)
			kijun := midpoint(highs, lows, cfg.IchimokuKijun)
			senkouB := midpoint(highs, lows, cfg.IchimokuSenkouB)
			out[Ichimoku] = market.IndicatorValue{
				Value: tenkan,
				Parts: map[string]float64{
					"tenkan":   tenkan,
					"kijun":    kijun,
					"senkou_a": (tenkan + kijun) / 2,
					"senkou_b": senkouB,
				},
			}
		case VolumeSMA:
			if len(volumes) < cfg.VolumePeriod {
				continue
			}
			out[VolumeSMA] = market.IndicatorValue{Value: lastValid(talib.Sma(volumes, cfg.VolumePeriod))}
		}
	}
	return out
}

// midpoint is the Ichimoku building block: (highest high + lowest low) / 2
// over the trailing period.
func midpoint(highs, lows []float64, period int) float64 {
	start := len(highs) - period
	hi := highs[start]
	lo := lows[start]
	for i := start + 1; i < len(highs); i++ {
		hi = math.Max(hi, highs[i])
		lo = math.Min(lo, lows[i])
	}
	return (hi + lo) / 2
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

// prevValid returns the second-to-last valid value, used for crossover
// detection against the latest one.
func prevValid(series []float64) float64 {
	seen := false
	for i := len(series) - 1; i >= 0; i-- {
		if math.IsNaN(series[i]) || math.IsInf(series[i], 0) {
			continue
		}
		if seen {
			return series[i]
		}
		seen = true
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
