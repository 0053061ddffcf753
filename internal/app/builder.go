package app

import (
	"context"
	"fmt"
	"time"

	"quantdesk/internal/config"
	"quantdesk/internal/execution"
	"quantdesk/internal/indicator"
	"quantdesk/internal/ledger"
	"quantdesk/internal/logger"
	"quantdesk/internal/market"
	"quantdesk/internal/orchestrator"
	"quantdesk/internal/risk"
	"quantdesk/internal/scheduler"
	"quantdesk/internal/sizing"
	"quantdesk/internal/store/sqlite"
	adminhttp "quantdesk/internal/transport/http/admin"
)

func build(cfg *config.Config) (*App, error) {
	st, err := sqlite.NewSqliteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	source, err := buildSource(cfg.Market)
	if err != nil {
		st.Close()
		return nil, err
	}

	runtime := config.NewRuntimeProvider(cfg.Runtime, cfg.Trading.ExecutionMode)

	paper := execution.PaperSimulator{
		SlippageRate:   cfg.Trading.SlippageRate,
		CommissionRate: cfg.Trading.CommissionRate,
	}
	var live *execution.LiveExecutor
	if cfg.Trading.APIKey != "" && cfg.Trading.SecretKey != "" {
		broker := execution.NewBinanceBroker(cfg.Trading.APIKey, cfg.Trading.SecretKey)
		live = execution.NewLiveExecutor(broker, execution.LiveConfig{
			OrderTimeout:   time.Duration(cfg.Trading.OrderTimeoutSeconds) * time.Second,
			CommissionRate: cfg.Trading.CommissionRate,
			Algo: execution.AlgoPlan{
				Name:           cfg.Trading.Algo.Name,
				Slices:         cfg.Trading.Algo.Slices,
				SliceDelay:     time.Duration(cfg.Trading.Algo.SliceDelayMs) * time.Millisecond,
				IcebergPeakPct: cfg.Trading.Algo.IcebergPeakPct,
			},
		})
	} else {
		logger.Infof("no broker credentials configured, live requests will downgrade to paper")
	}
	router := execution.NewRouter(cfg.App.Env, paper, live)

	led := ledger.New(st)
	recorder := ledger.NewRecorder(st.Audits())
	gate := risk.NewGate(cfg.Risk)
	sizer := sizing.Sizer{
		MinTradeUnit:          cfg.Trading.MinTradeUnit,
		DefaultMaxPositionPct: cfg.Risk.MaxPositionPct,
	}

	orch := orchestrator.New(orchestrator.Deps{
		Store:    st,
		Source:   source,
		Sizer:    sizer,
		Gate:     gate,
		Router:   router,
		Ledger:   led,
		Recorder: recorder,
		Runtime:  runtime,
		Exchange: cfg.Market.Provider,
		Settings: indicator.Settings{},
	})

	interval, ok := scheduler.ParseIntervalDuration(cfg.Scheduler.Interval)
	if !ok {
		interval, _ = scheduler.ParseIntervalDuration(cfg.Market.Interval)
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	runner := &scheduler.Runner{
		Strategies: st.Strategies(),
		Evaluate: func(ctx context.Context, userID, symbol string) error {
			_, err := orch.EvaluateAndMaybeExecute(ctx, userID, symbol)
			return err
		},
		MaxParallel: cfg.Scheduler.MaxParallel,
	}

	var admin *adminhttp.Server
	if cfg.App.HTTPAddr != "" {
		admin, err = adminhttp.NewServer(adminhttp.ServerConfig{
			Addr:  cfg.App.HTTPAddr,
			Pipe:  orch,
			Store: st,
		})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("build admin server: %w", err)
		}
	}

	return &App{
		cfg:          cfg,
		store:        st,
		runtime:      runtime,
		orch:         orch,
		runner:       runner,
		admin:        admin,
		tickInterval: interval,
	}, nil
}

func buildSource(cfg config.MarketConfig) (market.Source, error) {
	switch cfg.Provider {
	case "", "binance":
		return market.NewBinanceSource(market.BinanceConfig{
			Interval:          cfg.Interval,
			Lookback:          cfg.Lookback,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	default:
		return nil, fmt.Errorf("unknown market provider %q", cfg.Provider)
	}
}
