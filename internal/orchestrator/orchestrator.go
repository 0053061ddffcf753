// Package orchestrator sequences the trade pipeline: snapshot, evaluation,
// sizing, risk review, execution and settlement.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"quantdesk/internal/config"
	"quantdesk/internal/execution"
	"quantdesk/internal/indicator"
	"quantdesk/internal/ledger"
	"quantdesk/internal/logger"
	"quantdesk/internal/market"
	"quantdesk/internal/risk"
	"quantdesk/internal/sizing"
	"quantdesk/internal/store"
	"quantdesk/internal/strategy"
	"quantdesk/internal/types"
)

// ErrAlreadyResolved reports a second resolution of the same pending
// proposal. The first resolution stands; nothing is re-applied.
var ErrAlreadyResolved = errors.New("pending proposal already resolved")

// Orchestrator drives one pipeline pass per request or tick. Portfolio
// mutations are serialized through per-portfolio locks; everything before
// the ledger runs without locking.
type Orchestrator struct {
	store      store.Store
	source     market.Source
	sizer      sizing.Sizer
	gate       *risk.Gate
	router     *execution.Router
	ledger     *ledger.Ledger
	recorder   *ledger.Recorder
	runtime    *config.RuntimeProvider
	exchange   string
	indicators indicator.Settings

	locks sync.Map // portfolio id -> *sync.Mutex
}

// Deps carries the orchestrator's collaborators.
type Deps struct {
	Store    store.Store
	Source   market.Source
	Sizer    sizing.Sizer
	Gate     *risk.Gate
	Router   *execution.Router
	Ledger   *ledger.Ledger
	Recorder *ledger.Recorder
	Runtime  *config.RuntimeProvider
	Exchange string
	Settings indicator.Settings
}

func New(d Deps) *Orchestrator {
	return &Orchestrator{
		store:      d.Store,
		source:     d.Source,
		sizer:      d.Sizer,
		gate:       d.Gate,
		router:     d.Router,
		ledger:     d.Ledger,
		recorder:   d.Recorder,
		runtime:    d.Runtime,
		exchange:   d.Exchange,
		indicators: d.Settings,
	}
}

// EvaluateAndMaybeExecute runs the autonomous path for one user and symbol:
// every active strategy for the pair is evaluated against a fresh snapshot
// and any resulting proposals flow through the full pipeline. Unavailable
// market data skips the tick rather than failing it.
func (o *Orchestrator) EvaluateAndMaybeExecute(ctx context.Context, userID, symbol string) ([]*types.Trade, error) {
	pf, err := o.store.Portfolios().GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load portfolio for user %s: %w", userID, err)
	}
	configs, err := o.store.Strategies().ListActive(ctx, userID, symbol)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, nil
	}

	snap, err := o.source.GetSnapshot(ctx, symbol, o.exchange)
	if err != nil {
		if errors.Is(err, market.ErrDataUnavailable) {
			logger.Warnf("market data unavailable for %s, holding this tick: %v", symbol, err)
			return nil, nil
		}
		return nil, err
	}
	snap.Indicators = indicator.Compute(snap.Window, requiredIndicators(configs), o.indicators)

	var trades []*types.Trade
	for i := range configs {
		cfg := &configs[i]
		trade, err := o.runStrategy(ctx, cfg, snap, pf)
		if err != nil {
			return trades, err
		}
		if trade != nil {
			trades = append(trades, trade)
			// Re-read state mutated by the previous fill before sizing
			// the next strategy.
			pf, err = o.store.Portfolios().GetByUser(ctx, userID)
			if err != nil {
				return trades, err
			}
		}
	}
	return trades, nil
}

func (o *Orchestrator) runStrategy(ctx context.Context, cfg *strategy.Config, snap *market.MarketSnapshot, pf *types.Portfolio) (*types.Trade, error) {
	eval, err := strategy.ForKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	traceID := uuid.NewString()
	sig := eval.Evaluate(snap, cfg)
	o.recorder.Record(ctx, traceID, string(cfg.Kind), types.StageSignal, snapshotSummary(snap), sig)
	if sig.Action == strategy.ActionHold {
		return nil, nil
	}

	proposal := o.sizer.Build(sig, snap.LastPrice, pf, cfg.Params)
	if proposal == nil {
		logger.Tracef(traceID, "signal %s %s produced no tradable proposal", sig.Action, sig.Symbol)
		return nil, nil
	}
	proposal.TraceID = traceID
	o.recorder.Record(ctx, traceID, "sizer", types.StageProposal, sig, proposal)

	return o.processProposal(ctx, proposal, cfg.Params)
}

// SubmitManualOrder runs the manual path: no strategy evaluation, but the
// proposal still passes the risk gate, router and ledger under its own
// trace id. Manual orders carry full confidence so they never escalate on
// the confidence check alone.
func (o *Orchestrator) SubmitManualOrder(ctx context.Context, userID, symbol string, action strategy.Action, quantity float64) (*types.Trade, error) {
	if action != strategy.ActionBuy && action != strategy.ActionSell {
		return nil, fmt.Errorf("manual order action must be BUY or SELL, got %q", action)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("manual order quantity must be positive")
	}
	pf, err := o.store.Portfolios().GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load portfolio for user %s: %w", userID, err)
	}
	snap, err := o.source.GetSnapshot(ctx, symbol, o.exchange)
	if err != nil {
		return nil, fmt.Errorf("manual order needs a price for %s: %w", symbol, err)
	}

	traceID := uuid.NewString()
	proposal := &types.TradeProposal{
		TraceID:           traceID,
		PortfolioID:       pf.ID,
		UserID:            userID,
		Symbol:            symbol,
		Action:            action,
		Quantity:          quantity,
		Price:             snap.LastPrice,
		EstimatedNotional: snap.LastPrice * quantity,
		Confidence:        1,
		CreatedAt:         time.Now(),
	}
	o.recorder.Record(ctx, traceID, userID, types.StageProposal, "manual order", proposal)

	return o.processProposal(ctx, proposal, strategy.Params{})
}

// processProposal takes a built proposal through risk review and, when
// approved, execution and settlement. Runtime state is re-read here so a
// kill switch flipped mid-tick still applies.
func (o *Orchestrator) processProposal(ctx context.Context, p *types.TradeProposal, overrides strategy.Params) (*types.Trade, error) {
	pf, err := o.store.Portfolios().Get(ctx, p.PortfolioID)
	if err != nil {
		return nil, err
	}
	rt := o.runtime.Current()
	decision := o.gate.Review(p, pf, rt, overrides)
	o.recorder.Record(ctx, p.TraceID, "risk_gate", types.StageRisk, p, decision)

	switch decision.Outcome {
	case types.RiskRejected:
		logger.Tracef(p.TraceID, "proposal rejected: %s", decision.Reason)
		return nil, nil
	case types.RiskPendingApproval:
		pending := &types.PendingProposal{
			Proposal:  *p,
			Reason:    decision.Reason,
			Status:    types.PendingOpen,
			CreatedAt: time.Now(),
		}
		if err := o.store.Pending().Enqueue(ctx, pending); err != nil {
			return nil, fmt.Errorf("enqueue pending proposal: %w", err)
		}
		logger.Tracef(p.TraceID, "proposal escalated to manual approval: %s", decision.Reason)
		return nil, nil
	}

	return o.executeAndSettle(ctx, p, types.ExecutionMode(rt.ExecutionMode))
}

// ResolvePending applies a reviewer decision to a queued proposal. The
// operation is idempotent: a second resolution returns ErrAlreadyResolved
// and never re-applies to the ledger. Approval re-enters the pipeline at
// the execution router under the original trace id.
func (o *Orchestrator) ResolvePending(ctx context.Context, traceID string, approve bool, reviewer string) (*types.Trade, error) {
	status := types.PendingRejected
	if approve {
		status = types.PendingApproved
	}
	prior, err := o.store.Pending().Resolve(ctx, traceID, status, reviewer)
	if err != nil {
		return nil, err
	}
	if prior != types.PendingOpen {
		logger.Tracef(traceID, "pending proposal already resolved as %s, ignoring", prior)
		return nil, ErrAlreadyResolved
	}
	o.recorder.Record(ctx, traceID, reviewer, types.StageRisk, "pending resolution", string(status))
	if !approve {
		return nil, nil
	}

	pending, err := o.store.Pending().GetByTrace(ctx, traceID)
	if err != nil {
		return nil, err
	}
	rt := o.runtime.Current()
	return o.executeAndSettle(ctx, &pending.Proposal, types.ExecutionMode(rt.ExecutionMode))
}

func (o *Orchestrator) executeAndSettle(ctx context.Context, p *types.TradeProposal, mode types.ExecutionMode) (*types.Trade, error) {
	res := o.router.Execute(ctx, p, mode)
	o.recorder.Record(ctx, p.TraceID, "execution_router", types.StageExecution, p, res)
	if res.Downgraded {
		o.recorder.Record(ctx, p.TraceID, "execution_router", types.StageExecution, string(mode), "downgraded to PAPER_TRADING")
	}

	unlock := o.lockPortfolio(p.PortfolioID)
	defer unlock()
	trade, err := o.ledger.Apply(ctx, p, &res)
	if err != nil {
		return nil, err
	}
	logger.Tracef(p.TraceID, "trade settled: %s %s %.8f @ %.2f status=%s", trade.Action, trade.Symbol, trade.Quantity, trade.Price, trade.Status)
	return trade, nil
}

// lockPortfolio serializes ledger applies for one portfolio. Different
// portfolios never contend.
func (o *Orchestrator) lockPortfolio(portfolioID string) func() {
	v, _ := o.locks.LoadOrStore(portfolioID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// requiredIndicators unions the indicator needs of every strategy in the
// pass, descending into ensemble members.
func requiredIndicators(configs []strategy.Config) []string {
	seen := make(map[string]struct{})
	add := func(names []string) {
		for _, n := range names {
			seen[n] = struct{}{}
		}
	}
	for i := range configs {
		cfg := &configs[i]
		add(strategy.RequiredIndicators(cfg.Kind, cfg.Params))
		for _, m := range cfg.Members {
			add(strategy.RequiredIndicators(m.Kind, m.Params))
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	return out
}

func snapshotSummary(s *market.MarketSnapshot) string {
	return fmt.Sprintf("%s@%s price=%.4f bars=%d indicators=%d", s.Symbol, s.Exchange, s.LastPrice, len(s.Window), len(s.Indicators))
}
