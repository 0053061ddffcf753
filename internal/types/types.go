// Package types holds the domain records shared across pipeline stages.
package types

import (
	"time"

	"quantdesk/internal/strategy"
)

// ExecutionMode selects simulated or real settlement. The two are mutually
// exclusive for a request.
type ExecutionMode string

const (
	ModePaperTrading ExecutionMode = "PAPER_TRADING"
	ModeLiveTrading  ExecutionMode = "LIVE_TRADING"
)

// Holding is one position inside a portfolio.
type Holding struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

// Portfolio is the per-user account state. Mutated exclusively by the ledger
// under a per-portfolio write lock. Invariants: CashBalance >= 0 and
// InvestedAmount == Σ(quantity × avg price).
type Portfolio struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	CashBalance     float64            `json:"cash_balance"`
	InvestedAmount  float64            `json:"invested_amount"`
	RealizedWinRate float64            `json:"realized_win_rate"`
	Wins            int                `json:"wins"`
	Losses          int                `json:"losses"`
	Holdings        map[string]Holding `json:"holdings"`
}

// Equity is cash plus invested book value.
func (p *Portfolio) Equity() float64 {
	return p.CashBalance + p.InvestedAmount
}

// Holding returns the position for symbol, if any.
func (p *Portfolio) Holding(symbol string) (Holding, bool) {
	h, ok := p.Holdings[symbol]
	return h, ok
}

// TradeProposal is a sized, priced candidate order derived from a signal.
// It lives only for one orchestration pass unless escalated to the pending
// approval queue.
type TradeProposal struct {
	TraceID           string          `json:"trace_id"`
	PortfolioID       string          `json:"portfolio_id"`
	UserID            string          `json:"user_id"`
	StrategyID        string          `json:"strategy_id,omitempty"` // empty for manual orders
	Symbol            string          `json:"symbol"`
	Action            strategy.Action `json:"action"`
	Quantity          float64         `json:"quantity"`
	Price             float64         `json:"price"` // last snapshot price at build time
	EstimatedNotional float64         `json:"estimated_notional"`
	StopLoss          float64         `json:"stop_loss"`
	TakeProfit        float64         `json:"take_profit"`
	Confidence        float64         `json:"confidence"`
	CreatedAt         time.Time       `json:"created_at"`
}

// RiskOutcome is the risk gate's terminal state for one pass.
type RiskOutcome string

const (
	RiskApproved        RiskOutcome = "APPROVED"
	RiskRejected        RiskOutcome = "REJECTED"
	RiskPendingApproval RiskOutcome = "PENDING_APPROVAL"
)

// RiskDecision records which rule decided and the threshold it evaluated,
// so rejections are reconstructible from the audit trail.
type RiskDecision struct {
	Outcome   RiskOutcome `json:"outcome"`
	Reason    string      `json:"reason"`
	Rule      string      `json:"rule,omitempty"`
	Threshold float64     `json:"threshold,omitempty"`
	Observed  float64     `json:"observed,omitempty"`
}

// ExecStatus is the terminal state of an execution attempt.
type ExecStatus string

const (
	ExecFilled ExecStatus = "FILLED"
	ExecFailed ExecStatus = "FAILED"
)

// ChildFill is one slice fill produced by an execution algorithm.
type ChildFill struct {
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	FilledAt time.Time `json:"filled_at"`
}

// ExecutionResult is what the router reports to the ledger. For sliced live
// orders FilledPrice is the quantity-weighted average over Children.
type ExecutionResult struct {
	Status         ExecStatus    `json:"status"`
	Mode           ExecutionMode `json:"mode"`
	FilledPrice    float64       `json:"filled_price"`
	FilledQuantity float64       `json:"filled_quantity"`
	Commission     float64       `json:"commission"`
	Downgraded     bool          `json:"downgraded,omitempty"` // live request served by paper
	Children       []ChildFill   `json:"children,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// Trade is the immutable historical record of one execution outcome.
// Append-only; never updated or deleted.
type Trade struct {
	ID          string          `json:"id"`
	TraceID     string          `json:"trace_id"`
	PortfolioID string          `json:"portfolio_id"`
	UserID      string          `json:"user_id"`
	StrategyID  string          `json:"strategy_id,omitempty"`
	Symbol      string          `json:"symbol"`
	Action      strategy.Action `json:"action"`
	Quantity    float64         `json:"quantity"`
	Price       float64         `json:"price"`
	Commission  float64         `json:"commission"`
	PnL         float64         `json:"pnl"`
	Mode        ExecutionMode   `json:"execution_mode"`
	Status      ExecStatus      `json:"status"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

// PendingStatus tracks a queued proposal through reviewer resolution.
type PendingStatus string

const (
	PendingOpen     PendingStatus = "PENDING"
	PendingApproved PendingStatus = "APPROVED"
	PendingRejected PendingStatus = "REJECTED"
)

// PendingProposal is a proposal escalated to manual approval. Persisted so a
// restart does not lose the queue; resolution re-enters the pipeline at the
// execution router under the original trace id.
type PendingProposal struct {
	Proposal   TradeProposal `json:"proposal"`
	Reason     string        `json:"reason"`
	Status     PendingStatus `json:"status"`
	ResolvedBy string        `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// AuditEntry is one stage transition in a pipeline pass. Entries for a pass
// share the trace id.
type AuditEntry struct {
	TraceID   string    `json:"trace_id"`
	Actor     string    `json:"actor"`
	Stage     string    `json:"stage"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
}

// Audit stages in pipeline order.
const (
	StageSignal    = "signal_produced"
	StageProposal  = "proposal_built"
	StageRisk      = "risk_decision"
	StageExecution = "execution_result"
	StageLedger    = "ledger_applied"
)
