// Package scheduler drives the autonomous evaluation loop: ticks aligned to
// candle close, fanned out across active user/symbol pairs.
package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"quantdesk/internal/logger"
	"quantdesk/internal/store"
)

// AlignedScheduler fires a task aligned to interval boundaries (candle
// close) plus an offset, so evaluation always sees a freshly closed bar.
type AlignedScheduler struct {
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewAlignedScheduler(ctx context.Context, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Start blocks, invoking task at every aligned boundary until the context
// is cancelled.
func (s *AlignedScheduler) Start(task func()) {
	if s == nil || task == nil {
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("scheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.Offset < 0 {
		s.Offset = 0
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	logger.Infof("scheduler started interval=%s offset=%s run_immediately=%v", s.Interval, s.Offset, s.RunImmediately)
	if s.RunImmediately {
		task()
	}

	for {
		now := s.nowFn().UTC()
		wakeAt, wait := s.nextWake(now)
		logger.Debugf("scheduler: next tick at %s (in %s)", wakeAt.Format(time.RFC3339), wait.Truncate(time.Second))

		if wait <= 0 {
			task()
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			logger.Infof("scheduler: context done, exit")
			return
		case <-timer.C:
		}
		task()
	}
}

func (s *AlignedScheduler) nextWake(now time.Time) (time.Time, time.Duration) {
	now = now.UTC()
	nextClose := now.Truncate(s.Interval).Add(s.Interval)
	wakeAt := nextClose.Add(s.Offset)
	return wakeAt, wakeAt.Sub(now)
}

// Runner fans one tick out over every user/symbol pair with an active
// strategy, bounded by MaxParallel. One pair failing never aborts the
// others; errors are logged and the tick continues.
type Runner struct {
	Strategies  store.StrategyRepository
	Evaluate    func(ctx context.Context, userID, symbol string) error
	MaxParallel int
}

// Tick evaluates all active pairs once.
func (r *Runner) Tick(ctx context.Context) {
	pairs, err := r.Strategies.ActivePairs(ctx)
	if err != nil {
		logger.Errorf("scheduler: list active pairs: %v", err)
		return
	}
	if len(pairs) == 0 {
		return
	}
	limit := r.MaxParallel
	if limit <= 0 {
		limit = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			if err := r.Evaluate(gctx, pair.UserID, pair.Symbol); err != nil {
				logger.Errorf("scheduler: evaluate user=%s symbol=%s: %v", pair.UserID, pair.Symbol, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
