package config

// Config is the main configuration carrier for quantdesk.
type Config struct {
	App       AppConfig       `toml:"app"`
	Database  DatabaseConfig  `toml:"database"`
	Market    MarketConfig    `toml:"market"`
	Trading   TradingConfig   `toml:"trading"`
	Risk      RiskConfig      `toml:"risk"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Runtime   RuntimeSource   `toml:"runtime"`
}

type AppConfig struct {
	Env      string `toml:"env"` // development | staging | production
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"` // admin API listen address; empty disables it
}

// IsProduction reports whether the deployment environment allows live orders.
func (a AppConfig) IsProduction() bool {
	return a.Env == EnvProduction
}

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type MarketConfig struct {
	Provider          string  `toml:"provider"`
	Interval          string  `toml:"interval"`
	Lookback          int     `toml:"lookback"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// TradingConfig controls how approved proposals are executed.
type TradingConfig struct {
	ExecutionMode       string     `toml:"execution_mode"` // PAPER_TRADING | LIVE_TRADING
	SlippageRate        float64    `toml:"slippage_rate"`
	CommissionRate      float64    `toml:"commission_rate"`
	OrderTimeoutSeconds int        `toml:"order_timeout_seconds"`
	MinTradeUnit        float64    `toml:"min_trade_unit"`
	APIKey              string     `toml:"api_key"` // broker credentials, live mode only
	SecretKey           string     `toml:"secret_key"`
	Algo                AlgoConfig `toml:"algo"`
}

// AlgoConfig configures live-mode order slicing (twap | vwap | iceberg).
// Empty name sends one market order.
type AlgoConfig struct {
	Name           string  `toml:"name"`
	Slices         int     `toml:"slices"`
	SliceDelayMs   int     `toml:"slice_delay_ms"`
	IcebergPeakPct float64 `toml:"iceberg_peak_pct"`
}

// RiskConfig holds the gate thresholds used when a user has no per-strategy
// overrides.
type RiskConfig struct {
	MaxPositionPct      float64 `toml:"max_position_pct"`     // single position cap, 0~1 of equity
	ConcentrationPct    float64 `toml:"concentration_pct"`    // per-symbol exposure cap, 0~1 of equity
	ConfidenceThreshold float64 `toml:"confidence_threshold"` // below this a proposal escalates
	ApprovalNotional    float64 `toml:"approval_notional"`    // above this a proposal escalates
}

type SchedulerConfig struct {
	Interval    string `toml:"interval"`
	MaxParallel int    `toml:"max_parallel"`
}

// RuntimeSource points at the operator-editable runtime file holding the
// execution mode and kill switches. Re-read per request with a short TTL.
type RuntimeSource struct {
	Path       string `toml:"path"`
	TTLSeconds int    `toml:"ttl_seconds"`
}
