package execution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"quantdesk/internal/logger"
	"quantdesk/internal/pkg/circuit"
	"quantdesk/internal/types"
)

// AlgoPlan configures live-mode order slicing. An empty name places one
// market order.
type AlgoPlan struct {
	Name           string // "" | "twap" | "vwap" | "iceberg"
	Slices         int
	SliceDelay     time.Duration
	IcebergPeakPct float64
}

// LiveConfig tunes the live executor.
type LiveConfig struct {
	OrderTimeout   time.Duration
	RetryBackoff   time.Duration
	CommissionRate float64
	Algo           AlgoPlan
}

// LiveExecutor places real orders through the broker adapter. Adapter calls
// are bounded by a timeout, retried once after a backoff, and guarded by a
// circuit breaker. There is no silent fallback to paper fills.
type LiveExecutor struct {
	broker  Broker
	breaker *circuit.Breaker
	cfg     LiveConfig
}

func NewLiveExecutor(broker Broker, cfg LiveConfig) *LiveExecutor {
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 5 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &LiveExecutor{
		broker:  broker,
		breaker: circuit.NewBreaker("broker", 3, 30*time.Second),
		cfg:     cfg,
	}
}

// Execute fills the proposal, slicing it into child orders when an algo is
// configured. A child failure after its retry fails the whole request; fills
// already made are reported in Children so the operator can reconcile.
func (e *LiveExecutor) Execute(ctx context.Context, p *types.TradeProposal) types.ExecutionResult {
	if p == nil || p.Quantity <= 0 {
		return types.ExecutionResult{Status: types.ExecFailed, Mode: types.ModeLiveTrading, Error: "nothing to fill"}
	}
	slices := planSlices(p.Quantity, e.cfg.Algo)
	children := make([]types.ChildFill, 0, len(slices))
	for i, qty := range slices {
		if i > 0 && e.cfg.Algo.SliceDelay > 0 {
			if err := sleepWithContext(ctx, e.cfg.Algo.SliceDelay); err != nil {
				return failedResult(children, err)
			}
		}
		fill, err := e.placeWithRetry(ctx, Order{
			Symbol:   p.Symbol,
			Side:     string(p.Action),
			Quantity: qty,
			Price:    p.Price,
		})
		if err != nil {
			logger.Warnf("live execution failed for %s child %d/%d: %v", p.Symbol, i+1, len(slices), err)
			return failedResult(children, err)
		}
		children = append(children, types.ChildFill{
			Price:    fill.Price,
			Quantity: fill.Quantity,
			FilledAt: time.Now(),
		})
	}
	avgPrice, totalQty := aggregateFills(children)
	notional := decimal.NewFromFloat(avgPrice).Mul(decimal.NewFromFloat(totalQty))
	fee, _ := notional.Mul(decimal.NewFromFloat(e.cfg.CommissionRate)).Float64()
	return types.ExecutionResult{
		Status:         types.ExecFilled,
		Mode:           types.ModeLiveTrading,
		FilledPrice:    avgPrice,
		FilledQuantity: totalQty,
		Commission:     fee,
		Children:       children,
	}
}

// placeWithRetry makes at most two attempts: the initial call and one retry
// after the configured backoff. Timeouts are reported as such, never as
// success.
func (e *LiveExecutor) placeWithRetry(ctx context.Context, order Order) (Fill, error) {
	if !e.breaker.Allow() {
		return Fill{}, fmt.Errorf("%w: broker breaker open", ErrExecutionFailed)
	}
	var fill Fill
	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
		defer cancel()
		got, err := e.broker.PlaceOrder(callCtx, order)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
			}
			return fmt.Errorf("%w: %v", ErrExecutionFailed, err)
		}
		fill = got
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.cfg.RetryBackoff
	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, 1), ctx))
	if err != nil {
		e.breaker.Failure()
		return Fill{}, err
	}
	e.breaker.Success()
	return fill, nil
}

// planSlices splits the quantity according to the algo. Weights are
// normalized so the slices always sum back to the full quantity.
func planSlices(qty float64, algo AlgoPlan) []float64 {
	name := strings.ToLower(strings.TrimSpace(algo.Name))
	switch name {
	case "twap":
		n := algo.Slices
		if n <= 1 {
			return []float64{qty}
		}
		return weightedSlices(qty, uniformWeights(n))
	case "vwap":
		n := algo.Slices
		if n <= 1 {
			return []float64{qty}
		}
		// Without a live volume profile the standard default is the
		// U-shaped session curve: heavier at the open and close.
		return weightedSlices(qty, uShapeWeights(n))
	case "iceberg":
		peak := algo.IcebergPeakPct
		if peak <= 0 || peak >= 1 {
			return []float64{qty}
		}
		peakQty := qty * peak
		var out []float64
		remaining := qty
		for remaining > 1e-9 {
			child := math.Min(peakQty, remaining)
			out = append(out, child)
			remaining -= child
		}
		return out
	default:
		return []float64{qty}
	}
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

func uShapeWeights(n int) []float64 {
	w := make([]float64, n)
	mid := float64(n-1) / 2
	for i := range w {
		d := (float64(i) - mid) / math.Max(mid, 1)
		w[i] = 1 + d*d
	}
	return w
}

func weightedSlices(qty float64, weights []float64) []float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	out := make([]float64, len(weights))
	allocated := 0.0
	for i, w := range weights {
		out[i] = qty * w / total
		allocated += out[i]
	}
	// push rounding residue into the last slice
	out[len(out)-1] += qty - allocated
	return out
}

// aggregateFills reports the quantity-weighted average price over children.
func aggregateFills(children []types.ChildFill) (avgPrice, totalQty float64) {
	if len(children) == 0 {
		return 0, 0
	}
	notional := decimal.Zero
	qty := decimal.Zero
	for _, c := range children {
		p := decimal.NewFromFloat(c.Price)
		q := decimal.NewFromFloat(c.Quantity)
		notional = notional.Add(p.Mul(q))
		qty = qty.Add(q)
	}
	if qty.IsZero() {
		return 0, 0
	}
	avg, _ := notional.Div(qty).Float64()
	total, _ := qty.Float64()
	return avg, total
}

func failedResult(children []types.ChildFill, err error) types.ExecutionResult {
	return types.ExecutionResult{
		Status:   types.ExecFailed,
		Mode:     types.ModeLiveTrading,
		Children: children,
		Error:    err.Error(),
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
