// Package app wires configuration, storage, market data and the pipeline
// into a runnable application.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"quantdesk/internal/config"
	"quantdesk/internal/logger"
	"quantdesk/internal/orchestrator"
	"quantdesk/internal/scheduler"
	"quantdesk/internal/store"
	adminhttp "quantdesk/internal/transport/http/admin"
)

// tickOffset delays each evaluation slightly past candle close so the
// provider has published the closed bar.
const tickOffset = 5 * time.Second

// App owns the application lifecycle: built once from config, run until the
// context is cancelled.
type App struct {
	cfg          *config.Config
	store        store.Store
	runtime      *config.RuntimeProvider
	orch         *orchestrator.Orchestrator
	runner       *scheduler.Runner
	admin        *adminhttp.Server
	tickInterval time.Duration
}

// NewApp builds the application object without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Orchestrator exposes the pipeline for manual-order and approval callers.
func (a *App) Orchestrator() *orchestrator.Orchestrator {
	if a == nil {
		return nil
	}
	return a.orch
}

// Run starts the evaluation loop and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	group, ctx := errgroup.WithContext(ctx)
	if a.admin != nil {
		group.Go(func() error {
			if err := a.admin.Start(ctx); err != nil {
				return fmt.Errorf("admin http server: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		ticker := scheduler.NewAlignedScheduler(ctx, a.tickInterval, tickOffset)
		ticker.Start(func() {
			a.runner.Tick(ctx)
		})
		return nil
	})
	return group.Wait()
}

// Close releases the store and runtime watcher.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.runtime != nil {
		if err := a.runtime.Close(); err != nil {
			logger.Warnf("close runtime provider: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warnf("close store: %v", err)
		}
	}
}
