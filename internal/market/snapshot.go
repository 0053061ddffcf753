package market

import (
	"context"
	"errors"
	"time"
)

// ErrDataUnavailable signals the provider could not produce a snapshot for
// this symbol right now. Callers treat it as a HOLD for the tick, not a
// failure.
var ErrDataUnavailable = errors.New("market data unavailable")

// IndicatorValue is one derived indicator attached to a snapshot. Value is
// the primary reading; multi-output indicators carry named components in
// Parts (e.g. macd: signal/histogram, bollinger: upper/lower).
type IndicatorValue struct {
	Value float64            `json:"value"`
	Parts map[string]float64 `json:"parts,omitempty"`
}

// Part returns a named component, falling back to the primary value when the
// component is absent.
func (v IndicatorValue) Part(name string) float64 {
	if p, ok := v.Parts[name]; ok {
		return p
	}
	return v.Value
}

// MarketSnapshot is the immutable per-tick view of one instrument: the last
// price, the recent OHLCV window and any indicators derived from it. It is
// regenerated every evaluation pass and never mutated afterwards.
type MarketSnapshot struct {
	Symbol     string                    `json:"symbol"`
	Exchange   string                    `json:"exchange"`
	Timestamp  time.Time                 `json:"timestamp"`
	LastPrice  float64                   `json:"last_price"`
	Window     []Candle                  `json:"window"`
	Indicators map[string]IndicatorValue `json:"indicators,omitempty"`
}

// Indicator looks up a derived indicator by name. The second return is false
// when the indicator was unavailable for this window (insufficient bars).
func (s *MarketSnapshot) Indicator(name string) (IndicatorValue, bool) {
	v, ok := s.Indicators[name]
	return v, ok
}

// Source is the market-data provider boundary. Implementations return a
// snapshot without derived indicators; the indicator engine fills those in.
type Source interface {
	GetSnapshot(ctx context.Context, symbol, exchange string) (*MarketSnapshot, error)
}
