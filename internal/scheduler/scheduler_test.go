package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"quantdesk/internal/store"
	"quantdesk/internal/strategy"
)

type stubStrategyRepo struct {
	pairs []store.UserSymbol
	err   error
}

func (s *stubStrategyRepo) Save(ctx context.Context, cfg *strategy.Config) error { return nil }
func (s *stubStrategyRepo) Get(ctx context.Context, id string) (*strategy.Config, error) {
	return nil, store.ErrNotFound
}
func (s *stubStrategyRepo) ListActive(ctx context.Context, userID, symbol string) ([]strategy.Config, error) {
	return nil, nil
}
func (s *stubStrategyRepo) ActivePairs(ctx context.Context) ([]store.UserSymbol, error) {
	return s.pairs, s.err
}
func (s *stubStrategyRepo) SoftDelete(ctx context.Context, id string) error { return nil }

func TestRunnerTick(t *testing.T) {
	t.Run("evaluates every active pair", func(t *testing.T) {
		repo := &stubStrategyRepo{pairs: []store.UserSymbol{
			{UserID: "u1", Symbol: "BTCUSDT"},
			{UserID: "u1", Symbol: "ETHUSDT"},
			{UserID: "u2", Symbol: "BTCUSDT"},
		}}
		var mu sync.Mutex
		seen := map[string]int{}
		runner := &Runner{
			Strategies: repo,
			Evaluate: func(ctx context.Context, userID, symbol string) error {
				mu.Lock()
				defer mu.Unlock()
				seen[userID+"/"+symbol]++
				return nil
			},
			MaxParallel: 2,
		}
		runner.Tick(context.Background())
		assert.Len(t, seen, 3)
		for pair, count := range seen {
			assert.Equal(t, 1, count, "pair %s evaluated more than once", pair)
		}
	})

	t.Run("one failing pair does not stop the others", func(t *testing.T) {
		repo := &stubStrategyRepo{pairs: []store.UserSymbol{
			{UserID: "u1", Symbol: "A"},
			{UserID: "u1", Symbol: "B"},
		}}
		var mu sync.Mutex
		calls := 0
		runner := &Runner{
			Strategies: repo,
			Evaluate: func(ctx context.Context, userID, symbol string) error {
				mu.Lock()
				defer mu.Unlock()
				calls++
				return errors.New("boom")
			},
		}
		runner.Tick(context.Background())
		assert.Equal(t, 2, calls)
	})

	t.Run("listing failure is a quiet no-op", func(t *testing.T) {
		runner := &Runner{
			Strategies: &stubStrategyRepo{err: errors.New("db closed")},
			Evaluate: func(ctx context.Context, userID, symbol string) error {
				t.Fatal("should not be called")
				return nil
			},
		}
		runner.Tick(context.Background())
	})
}

func TestAlignedSchedulerNextWake(t *testing.T) {
	s := &AlignedScheduler{Interval: 15 * time.Minute, Offset: 5 * time.Second}
	now := time.Date(2025, 6, 1, 10, 7, 0, 0, time.UTC)
	wakeAt, wait := s.nextWake(now)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 15, 5, 0, time.UTC), wakeAt)
	assert.Equal(t, 8*time.Minute+5*time.Second, wait)
}
