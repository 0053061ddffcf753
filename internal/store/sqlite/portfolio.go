package sqlite

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quantdesk/internal/store"
	"quantdesk/internal/store/model"
	"quantdesk/internal/types"
)

type portfolioRepo struct {
	db *gorm.DB
}

func (r *portfolioRepo) Get(ctx context.Context, id string) (*types.Portfolio, error) {
	var row model.PortfolioModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, row)
}

func (r *portfolioRepo) GetByUser(ctx context.Context, userID string) (*types.Portfolio, error) {
	var row model.PortfolioModel
	if err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, row)
}

func (r *portfolioRepo) hydrate(ctx context.Context, row model.PortfolioModel) (*types.Portfolio, error) {
	var holdings []model.HoldingModel
	if err := r.db.WithContext(ctx).Where("portfolio_id = ?", row.ID).Find(&holdings).Error; err != nil {
		return nil, err
	}
	pf := &types.Portfolio{
		ID:             row.ID,
		UserID:         row.UserID,
		CashBalance:    row.CashBalance,
		InvestedAmount: row.InvestedAmount,
		Wins:           row.Wins,
		Losses:         row.Losses,
		Holdings:       make(map[string]types.Holding, len(holdings)),
	}
	for _, h := range holdings {
		pf.Holdings[h.Symbol] = types.Holding{Symbol: h.Symbol, Quantity: h.Quantity, AvgPrice: h.AvgPrice}
	}
	if total := pf.Wins + pf.Losses; total > 0 {
		pf.RealizedWinRate = float64(pf.Wins) / float64(total)
	}
	return pf, nil
}

// Save upserts the portfolio row and replaces its holdings. Callers hold the
// per-portfolio write lock, so the delete-and-insert is not racy.
func (r *portfolioRepo) Save(ctx context.Context, pf *types.Portfolio) error {
	now := time.Now().Unix()
	row := model.PortfolioModel{
		ID:             pf.ID,
		UserID:         pf.UserID,
		CashBalance:    pf.CashBalance,
		InvestedAmount: pf.InvestedAmount,
		Wins:           pf.Wins,
		Losses:         pf.Losses,
		CreatedAtUnix:  now,
		UpdatedAtUnix:  now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cash_balance", "invested_amount", "wins", "losses", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Where("portfolio_id = ?", pf.ID).Delete(&model.HoldingModel{}).Error; err != nil {
		return err
	}
	if len(pf.Holdings) == 0 {
		return nil
	}
	rows := make([]model.HoldingModel, 0, len(pf.Holdings))
	for _, h := range pf.Holdings {
		if h.Quantity <= 0 {
			continue
		}
		rows = append(rows, model.HoldingModel{
			PortfolioID: pf.ID,
			Symbol:      h.Symbol,
			Quantity:    h.Quantity,
			AvgPrice:    h.AvgPrice,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}
