package store

import (
	"context"
	"errors"

	"quantdesk/internal/strategy"
	"quantdesk/internal/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// UnitOfWork defines a transaction scope. The ledger runs its whole apply
// step inside one unit so cash, holdings and the trade row commit together.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	// Portfolios returns the portfolio repository within this transaction.
	Portfolios() PortfolioRepository
	// Trades returns the trade repository within this transaction.
	Trades() TradeRepository
	// Audits returns the audit repository within this transaction.
	Audits() AuditRepository
	// Pending returns the approval-queue repository within this transaction.
	Pending() PendingRepository
}

// Store is the entry point for database access. The plain accessors serve
// read-mostly callers outside any transaction.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	// Close closes the store connection.
	Close() error

	Portfolios() PortfolioRepository
	Trades() TradeRepository
	Audits() AuditRepository
	Pending() PendingRepository
	Strategies() StrategyRepository
}

// PortfolioRepository handles portfolio and holding persistence.
type PortfolioRepository interface {
	Get(ctx context.Context, id string) (*types.Portfolio, error)
	GetByUser(ctx context.Context, userID string) (*types.Portfolio, error)
	Save(ctx context.Context, pf *types.Portfolio) error
}

// TradeRepository is append-only: trades are never updated or deleted.
type TradeRepository interface {
	Insert(ctx context.Context, trade *types.Trade) error
	ListRecent(ctx context.Context, portfolioID string, limit int) ([]types.Trade, error)
}

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, entry types.AuditEntry) error
	ListByTrace(ctx context.Context, traceID string) ([]types.AuditEntry, error)
}

// PendingRepository persists the manual-approval queue.
type PendingRepository interface {
	Enqueue(ctx context.Context, pending *types.PendingProposal) error
	GetByTrace(ctx context.Context, traceID string) (*types.PendingProposal, error)
	// Resolve marks an open proposal; it reports ErrNotFound when the
	// proposal does not exist and returns the prior status so callers can
	// detect double resolution.
	Resolve(ctx context.Context, traceID string, status types.PendingStatus, reviewer string) (types.PendingStatus, error)
	ListOpen(ctx context.Context, limit int) ([]types.PendingProposal, error)
}

// UserSymbol is one scheduling unit: a user with at least one active
// strategy on a symbol.
type UserSymbol struct {
	UserID string
	Symbol string
}

// StrategyRepository handles deployed strategy configs. Removal is a soft
// delete; the pipeline only reads active rows.
type StrategyRepository interface {
	Save(ctx context.Context, cfg *strategy.Config) error
	Get(ctx context.Context, id string) (*strategy.Config, error)
	ListActive(ctx context.Context, userID, symbol string) ([]strategy.Config, error)
	// ActivePairs lists the distinct (user, symbol) pairs with active
	// strategies, for the scheduler's fan-out.
	ActivePairs(ctx context.Context) ([]UserSymbol, error)
	SoftDelete(ctx context.Context, id string) error
}
