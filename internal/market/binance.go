package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"
)

const maxKlineLimit = 1000

// BinanceConfig controls the kline fetch behind each snapshot.
type BinanceConfig struct {
	Interval          string
	Lookback          int
	RequestsPerSecond float64
}

// BinanceSource implements Source on top of the go-binance SDK. Requests are
// rate limited so scheduler fan-out cannot trip the exchange API limits.
type BinanceSource struct {
	cfg     BinanceConfig
	client  *binance.Client
	limiter *rate.Limiter
}

func NewBinanceSource(cfg BinanceConfig) *BinanceSource {
	if cfg.Interval == "" {
		cfg.Interval = "15m"
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 200
	}
	if cfg.Lookback > maxKlineLimit {
		cfg.Lookback = maxKlineLimit
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &BinanceSource{
		cfg:     cfg,
		client:  binance.NewClient("", ""),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (s *BinanceSource) GetSnapshot(ctx context.Context, symbol, exchange string) (*MarketSnapshot, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cleanSymbol := strings.ReplaceAll(strings.ToUpper(symbol), "/", "")
	kls, err := s.client.NewKlinesService().
		Symbol(cleanSymbol).
		Interval(s.cfg.Interval).
		Limit(s.cfg.Lookback + 1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, symbol, err)
	}
	window := make([]Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		window = append(window, Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	// The newest kline is still forming; drop it so the window only holds
	// closed bars.
	if len(window) > 1 {
		window = window[:len(window)-1]
	}
	if len(window) == 0 {
		return nil, fmt.Errorf("%w: %s: empty kline response", ErrDataUnavailable, symbol)
	}
	last := window[len(window)-1]
	return &MarketSnapshot{
		Symbol:    strings.ToUpper(symbol),
		Exchange:  exchange,
		Timestamp: time.UnixMilli(last.CloseTime),
		LastPrice: last.Close,
		Window:    window,
	}, nil
}

func parseFloat(raw string) float64 {
	val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return val
}
