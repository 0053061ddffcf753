package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quantdesk/internal/store"
	"quantdesk/internal/store/model"
	"quantdesk/internal/strategy"
)

type strategyRepo struct {
	db *gorm.DB
}

// Save validates the deployment before persisting it. Schema-invalid
// parameters never reach the evaluators.
func (r *strategyRepo) Save(ctx context.Context, cfg *strategy.Config) error {
	if err := strategy.ValidateConfig(cfg); err != nil {
		return err
	}
	paramsJSON, err := json.Marshal(cfg.Params)
	if err != nil {
		return err
	}
	var membersJSON []byte
	if len(cfg.Members) > 0 {
		membersJSON, err = json.Marshal(cfg.Members)
		if err != nil {
			return err
		}
	}
	now := time.Now().Unix()
	row := model.StrategyConfigModel{
		ID:            cfg.ID,
		UserID:        cfg.UserID,
		Symbol:        cfg.Symbol,
		Kind:          string(cfg.Kind),
		RiskTolerance: cfg.RiskTolerance,
		ParamsJSON:    paramsJSON,
		MembersJSON:   membersJSON,
		CreatedAtUnix: now,
		UpdatedAtUnix: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"symbol", "kind", "risk_tolerance", "params_json", "members_json", "updated_at",
		}),
	}).Create(&row).Error
}

func (r *strategyRepo) Get(ctx context.Context, id string) (*strategy.Config, error) {
	var row model.StrategyConfigModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return fromStrategyRow(row)
}

func (r *strategyRepo) ListActive(ctx context.Context, userID, symbol string) ([]strategy.Config, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var rows []model.StrategyConfigModel
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]strategy.Config, 0, len(rows))
	for _, row := range rows {
		cfg, err := fromStrategyRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *cfg)
	}
	return out, nil
}

func (r *strategyRepo) ActivePairs(ctx context.Context) ([]store.UserSymbol, error) {
	var rows []struct {
		UserID string
		Symbol string
	}
	err := r.db.WithContext(ctx).Model(&model.StrategyConfigModel{}).
		Distinct("user_id", "symbol").
		Order("user_id, symbol").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]store.UserSymbol, 0, len(rows))
	for _, row := range rows {
		out = append(out, store.UserSymbol{UserID: row.UserID, Symbol: row.Symbol})
	}
	return out, nil
}

func (r *strategyRepo) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.StrategyConfigModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return res.Error
}

func fromStrategyRow(row model.StrategyConfigModel) (*strategy.Config, error) {
	cfg := &strategy.Config{
		ID:            row.ID,
		UserID:        row.UserID,
		Kind:          strategy.Kind(row.Kind),
		Symbol:        row.Symbol,
		RiskTolerance: row.RiskTolerance,
	}
	if len(row.ParamsJSON) > 0 {
		if err := json.Unmarshal(row.ParamsJSON, &cfg.Params); err != nil {
			return nil, err
		}
	}
	if len(row.MembersJSON) > 0 {
		if err := json.Unmarshal(row.MembersJSON, &cfg.Members); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
