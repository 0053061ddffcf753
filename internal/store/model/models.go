package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PortfolioModel struct {
	ID             string  `gorm:"column:id;primaryKey"`
	UserID         string  `gorm:"column:user_id;uniqueIndex"`
	CashBalance    float64 `gorm:"column:cash_balance"`
	InvestedAmount float64 `gorm:"column:invested_amount"`
	Wins           int     `gorm:"column:wins"`
	Losses         int     `gorm:"column:losses"`
	CreatedAtUnix  int64   `gorm:"column:created_at"`
	UpdatedAtUnix  int64   `gorm:"column:updated_at"`
}

func (PortfolioModel) TableName() string { return "portfolios" }

type HoldingModel struct {
	ID          int64   `gorm:"column:id;primaryKey"`
	PortfolioID string  `gorm:"column:portfolio_id;uniqueIndex:idx_holding,priority:1"`
	Symbol      string  `gorm:"column:symbol;uniqueIndex:idx_holding,priority:2"`
	Quantity    float64 `gorm:"column:quantity"`
	AvgPrice    float64 `gorm:"column:avg_price"`
}

func (HoldingModel) TableName() string { return "holdings" }

type TradeModel struct {
	ID             string  `gorm:"column:id;primaryKey"`
	TraceID        string  `gorm:"column:trace_id;index"`
	PortfolioID    string  `gorm:"column:portfolio_id;index"`
	UserID         string  `gorm:"column:user_id"`
	StrategyID     string  `gorm:"column:strategy_id"`
	Symbol         string  `gorm:"column:symbol"`
	Action         string  `gorm:"column:action"`
	Quantity       float64 `gorm:"column:quantity"`
	Price          float64 `gorm:"column:price"`
	Commission     float64 `gorm:"column:commission"`
	PnL            float64 `gorm:"column:pnl"`
	Mode           string  `gorm:"column:execution_mode"`
	Status         string  `gorm:"column:status"`
	ExecutedAtUnix int64   `gorm:"column:executed_at"`
}

func (TradeModel) TableName() string { return "trades" }

type AuditEntryModel struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	TraceID       string `gorm:"column:trace_id;index"`
	Actor         string `gorm:"column:actor"`
	Stage         string `gorm:"column:stage"`
	Input         string `gorm:"column:input;type:TEXT"`
	Output        string `gorm:"column:output;type:TEXT"`
	CreatedAtUnix int64  `gorm:"column:created_at"`
}

func (AuditEntryModel) TableName() string { return "audit_entries" }

type PendingProposalModel struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	TraceID        string         `gorm:"column:trace_id;uniqueIndex"`
	PortfolioID    string         `gorm:"column:portfolio_id;index"`
	UserID         string         `gorm:"column:user_id"`
	Symbol         string         `gorm:"column:symbol"`
	Status         string         `gorm:"column:status;index"`
	Reason         string         `gorm:"column:reason"`
	ProposalJSON   datatypes.JSON `gorm:"column:proposal_json;type:TEXT"`
	ResolvedBy     string         `gorm:"column:resolved_by"`
	ResolvedAtUnix *int64         `gorm:"column:resolved_at"`
	CreatedAtUnix  int64          `gorm:"column:created_at"`
}

func (PendingProposalModel) TableName() string { return "pending_proposals" }

type StrategyConfigModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	UserID        string         `gorm:"column:user_id;index"`
	Symbol        string         `gorm:"column:symbol;index"`
	Kind          string         `gorm:"column:kind"`
	RiskTolerance string         `gorm:"column:risk_tolerance"`
	ParamsJSON    datatypes.JSON `gorm:"column:params_json;type:TEXT"`
	MembersJSON   datatypes.JSON `gorm:"column:members_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (StrategyConfigModel) TableName() string { return "strategy_configs" }
