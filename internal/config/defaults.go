package config

import (
	"fmt"
	"strings"
)

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = EnvDevelopment
	}
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/quantdesk.db"
	}
	if c.Market.Provider == "" {
		c.Market.Provider = "binance"
	}
	if c.Market.Interval == "" {
		c.Market.Interval = "15m"
	}
	if c.Market.Lookback <= 0 {
		c.Market.Lookback = 200
	}
	if c.Market.RequestsPerSecond <= 0 {
		c.Market.RequestsPerSecond = 5
	}
	if c.Trading.ExecutionMode == "" {
		c.Trading.ExecutionMode = "PAPER_TRADING"
	}
	c.Trading.ExecutionMode = strings.ToUpper(strings.TrimSpace(c.Trading.ExecutionMode))
	if c.Trading.SlippageRate < 0 {
		c.Trading.SlippageRate = 0
	}
	if c.Trading.SlippageRate == 0 {
		c.Trading.SlippageRate = 0.0002 // 2bps
	}
	if c.Trading.CommissionRate < 0 {
		c.Trading.CommissionRate = 0
	}
	if c.Trading.CommissionRate == 0 {
		c.Trading.CommissionRate = 0.0004 // 4bps
	}
	if c.Trading.OrderTimeoutSeconds <= 0 {
		c.Trading.OrderTimeoutSeconds = 5
	}
	if c.Trading.MinTradeUnit <= 0 {
		c.Trading.MinTradeUnit = 1
	}
	if c.Trading.Algo.Slices <= 0 {
		c.Trading.Algo.Slices = 4
	}
	if c.Trading.Algo.SliceDelayMs <= 0 {
		c.Trading.Algo.SliceDelayMs = 200
	}
	if c.Trading.Algo.IcebergPeakPct <= 0 || c.Trading.Algo.IcebergPeakPct > 1 {
		c.Trading.Algo.IcebergPeakPct = 0.25
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		c.Risk.MaxPositionPct = 0.20
	}
	if c.Risk.ConcentrationPct <= 0 || c.Risk.ConcentrationPct > 1 {
		c.Risk.ConcentrationPct = 0.25
	}
	if c.Risk.ConfidenceThreshold <= 0 || c.Risk.ConfidenceThreshold > 1 {
		c.Risk.ConfidenceThreshold = 0.6
	}
	if c.Risk.ApprovalNotional <= 0 {
		c.Risk.ApprovalNotional = 100000
	}
	if c.Scheduler.Interval == "" {
		c.Scheduler.Interval = c.Market.Interval
	}
	if c.Scheduler.MaxParallel <= 0 {
		c.Scheduler.MaxParallel = 4
	}
	if c.Runtime.Path == "" {
		c.Runtime.Path = "configs/runtime.yaml"
	}
	if c.Runtime.TTLSeconds <= 0 {
		c.Runtime.TTLSeconds = 2
	}
}

func validate(c *Config) error {
	switch c.App.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("app.env must be development/staging/production, got %q", c.App.Env)
	}
	switch c.Trading.ExecutionMode {
	case "PAPER_TRADING", "LIVE_TRADING":
	default:
		return fmt.Errorf("trading.execution_mode must be PAPER_TRADING or LIVE_TRADING, got %q", c.Trading.ExecutionMode)
	}
	switch strings.ToLower(c.Trading.Algo.Name) {
	case "", "twap", "vwap", "iceberg":
	default:
		return fmt.Errorf("trading.algo.name must be twap/vwap/iceberg or empty, got %q", c.Trading.Algo.Name)
	}
	if c.Market.Lookback < 60 {
		return fmt.Errorf("market.lookback must be at least 60 bars, got %d", c.Market.Lookback)
	}
	return nil
}
