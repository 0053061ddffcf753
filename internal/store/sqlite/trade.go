package sqlite

import (
	"context"
	"time"

	"gorm.io/gorm"

	"quantdesk/internal/store/model"
	"quantdesk/internal/strategy"
	"quantdesk/internal/types"
)

type tradeRepo struct {
	db *gorm.DB
}

func (r *tradeRepo) Insert(ctx context.Context, trade *types.Trade) error {
	row := model.TradeModel{
		ID:             trade.ID,
		TraceID:        trade.TraceID,
		PortfolioID:    trade.PortfolioID,
		UserID:         trade.UserID,
		StrategyID:     trade.StrategyID,
		Symbol:         trade.Symbol,
		Action:         string(trade.Action),
		Quantity:       trade.Quantity,
		Price:          trade.Price,
		Commission:     trade.Commission,
		PnL:            trade.PnL,
		Mode:           string(trade.Mode),
		Status:         string(trade.Status),
		ExecutedAtUnix: trade.ExecutedAt.Unix(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *tradeRepo) ListRecent(ctx context.Context, portfolioID string, limit int) ([]types.Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.TradeModel
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("executed_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.Trade, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.Trade{
			ID:          row.ID,
			TraceID:     row.TraceID,
			PortfolioID: row.PortfolioID,
			UserID:      row.UserID,
			StrategyID:  row.StrategyID,
			Symbol:      row.Symbol,
			Action:      strategy.Action(row.Action),
			Quantity:    row.Quantity,
			Price:       row.Price,
			Commission:  row.Commission,
			PnL:         row.PnL,
			Mode:        types.ExecutionMode(row.Mode),
			Status:      types.ExecStatus(row.Status),
			ExecutedAt:  time.Unix(row.ExecutedAtUnix, 0),
		})
	}
	return out, nil
}
