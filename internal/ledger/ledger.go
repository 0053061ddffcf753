// Package ledger settles execution results into portfolio state and keeps
// the append-only audit trail.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"quantdesk/internal/logger"
	"quantdesk/internal/store"
	"quantdesk/internal/types"
)

// ErrInvariantViolation means the post-apply portfolio failed its balance
// check. The transaction is rolled back; nothing is partially applied.
var ErrInvariantViolation = errors.New("ledger invariant violation")

const tolerance = 1e-6

// Ledger applies fills to portfolios. All mutations happen inside one
// transaction per apply; callers serialize applies per portfolio.
type Ledger struct {
	store store.Store
}

func New(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// Apply settles one execution result against the proposal's portfolio and
// records the trade. Cash, holdings and the trade row commit together or not
// at all. Failed executions are recorded as FAILED trades without touching
// the portfolio, so they are never silently dropped.
func (l *Ledger) Apply(ctx context.Context, p *types.TradeProposal, res *types.ExecutionResult) (*types.Trade, error) {
	trade := &types.Trade{
		ID:          uuid.NewString(),
		TraceID:     p.TraceID,
		PortfolioID: p.PortfolioID,
		UserID:      p.UserID,
		StrategyID:  p.StrategyID,
		Symbol:      p.Symbol,
		Action:      p.Action,
		Quantity:    res.FilledQuantity,
		Price:       res.FilledPrice,
		Commission:  res.Commission,
		Mode:        res.Mode,
		Status:      res.Status,
		ExecutedAt:  time.Now(),
	}

	uow, err := l.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback()
		}
	}()

	if res.Status == types.ExecFailed {
		if err := uow.Trades().Insert(ctx, trade); err != nil {
			return nil, err
		}
		if err := appendLedgerAudit(ctx, uow.Audits(), p.TraceID, trade, "execution failed, no settlement"); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return trade, nil
	}

	pf, err := uow.Portfolios().Get(ctx, p.PortfolioID)
	if err != nil {
		return nil, err
	}
	cashBefore := pf.CashBalance

	notional := res.FilledPrice * res.FilledQuantity
	switch {
	case p.Action.IsBuy():
		pf.CashBalance -= notional + res.Commission
		h := pf.Holdings[p.Symbol]
		newQty := h.Quantity + res.FilledQuantity
		h.Symbol = p.Symbol
		h.AvgPrice = (h.Quantity*h.AvgPrice + notional) / newQty
		h.Quantity = newQty
		pf.Holdings[p.Symbol] = h
	case p.Action.IsSell():
		h, ok := pf.Holdings[p.Symbol]
		if !ok || h.Quantity+tolerance < res.FilledQuantity {
			err := fmt.Errorf("%w: sell of %.8f %s exceeds held quantity", ErrInvariantViolation, res.FilledQuantity, p.Symbol)
			l.alertInvariant(ctx, p.TraceID, err)
			return nil, err
		}
		pf.CashBalance += notional - res.Commission
		trade.PnL = (res.FilledPrice-h.AvgPrice)*res.FilledQuantity - res.Commission
		h.Quantity -= res.FilledQuantity
		if h.Quantity <= tolerance {
			delete(pf.Holdings, p.Symbol)
		} else {
			pf.Holdings[p.Symbol] = h
		}
		if trade.PnL >= 0 {
			pf.Wins++
		} else {
			pf.Losses++
		}
	default:
		return nil, fmt.Errorf("ledger cannot apply action %q", p.Action)
	}

	pf.InvestedAmount = bookValue(pf)

	if err := checkInvariants(pf, cashBefore, notional, res.Commission, p.Action.IsBuy()); err != nil {
		l.alertInvariant(ctx, p.TraceID, err)
		return nil, err
	}

	if err := uow.Portfolios().Save(ctx, pf); err != nil {
		return nil, err
	}
	if err := uow.Trades().Insert(ctx, trade); err != nil {
		return nil, err
	}
	if err := appendLedgerAudit(ctx, uow.Audits(), p.TraceID, trade, fmt.Sprintf("cash %.2f -> %.2f", cashBefore, pf.CashBalance)); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return trade, nil
}

func bookValue(pf *types.Portfolio) float64 {
	var total float64
	for _, h := range pf.Holdings {
		total += h.Quantity * h.AvgPrice
	}
	return total
}

func checkInvariants(pf *types.Portfolio, cashBefore, notional, commission float64, buy bool) error {
	expected := cashBefore + notional - commission
	if buy {
		expected = cashBefore - notional - commission
	}
	if math.Abs(pf.CashBalance-expected) > tolerance {
		return fmt.Errorf("%w: cash %.8f, expected %.8f", ErrInvariantViolation, pf.CashBalance, expected)
	}
	if pf.CashBalance < -tolerance {
		return fmt.Errorf("%w: cash balance went negative (%.8f)", ErrInvariantViolation, pf.CashBalance)
	}
	if math.Abs(pf.InvestedAmount-bookValue(pf)) > tolerance {
		return fmt.Errorf("%w: invested amount drifted from holdings book value", ErrInvariantViolation)
	}
	return nil
}

// alertInvariant writes an alert-worthy audit entry outside the aborted
// transaction so the violation survives the rollback.
func (l *Ledger) alertInvariant(ctx context.Context, traceID string, cause error) {
	logger.Errorf("ledger invariant violated trace=%s: %v", traceID, cause)
	entry := types.AuditEntry{
		TraceID:   traceID,
		Actor:     "ledger",
		Stage:     types.StageLedger,
		Input:     "invariant check",
		Output:    "ALERT: " + cause.Error(),
		Timestamp: time.Now(),
	}
	if err := l.store.Audits().Append(ctx, entry); err != nil {
		logger.Errorf("failed to record invariant alert trace=%s: %v", traceID, err)
	}
}

func appendLedgerAudit(ctx context.Context, audits store.AuditRepository, traceID string, trade *types.Trade, detail string) error {
	return audits.Append(ctx, types.AuditEntry{
		TraceID:   traceID,
		Actor:     "ledger",
		Stage:     types.StageLedger,
		Input:     fmt.Sprintf("%s %s %.8f @ %.2f (%s)", trade.Action, trade.Symbol, trade.Quantity, trade.Price, trade.Status),
		Output:    detail,
		Timestamp: time.Now(),
	})
}
