package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"quantdesk/internal/store"
	"quantdesk/internal/store/model"
	"quantdesk/internal/types"
)

type pendingRepo struct {
	db *gorm.DB
}

func (r *pendingRepo) Enqueue(ctx context.Context, pending *types.PendingProposal) error {
	raw, err := json.Marshal(pending.Proposal)
	if err != nil {
		return err
	}
	row := model.PendingProposalModel{
		TraceID:       pending.Proposal.TraceID,
		PortfolioID:   pending.Proposal.PortfolioID,
		UserID:        pending.Proposal.UserID,
		Symbol:        pending.Proposal.Symbol,
		Status:        string(pending.Status),
		Reason:        pending.Reason,
		ProposalJSON:  raw,
		CreatedAtUnix: pending.CreatedAt.Unix(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *pendingRepo) GetByTrace(ctx context.Context, traceID string) (*types.PendingProposal, error) {
	var row model.PendingProposalModel
	if err := r.db.WithContext(ctx).First(&row, "trace_id = ?", traceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return fromPendingRow(row)
}

// Resolve flips an open proposal to its terminal status and returns the
// status the row held beforehand. A second resolution finds a non-PENDING
// prior status and must not change the row again, so the update is gated on
// the current status.
func (r *pendingRepo) Resolve(ctx context.Context, traceID string, status types.PendingStatus, reviewer string) (types.PendingStatus, error) {
	var row model.PendingProposalModel
	if err := r.db.WithContext(ctx).First(&row, "trace_id = ?", traceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	prior := types.PendingStatus(row.Status)
	if prior != types.PendingOpen {
		return prior, nil
	}
	now := time.Now().Unix()
	res := r.db.WithContext(ctx).Model(&model.PendingProposalModel{}).
		Where("trace_id = ? AND status = ?", traceID, string(types.PendingOpen)).
		Updates(map[string]interface{}{
			"status":      string(status),
			"resolved_by": reviewer,
			"resolved_at": now,
		})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race to another resolver; re-read for the actual prior.
		if err := r.db.WithContext(ctx).First(&row, "trace_id = ?", traceID).Error; err != nil {
			return "", err
		}
		return types.PendingStatus(row.Status), nil
	}
	return prior, nil
}

func (r *pendingRepo) ListOpen(ctx context.Context, limit int) ([]types.PendingProposal, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []model.PendingProposalModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(types.PendingOpen)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.PendingProposal, 0, len(rows))
	for _, row := range rows {
		p, err := fromPendingRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func fromPendingRow(row model.PendingProposalModel) (*types.PendingProposal, error) {
	var proposal types.TradeProposal
	if err := json.Unmarshal(row.ProposalJSON, &proposal); err != nil {
		return nil, err
	}
	p := &types.PendingProposal{
		Proposal:   proposal,
		Reason:     row.Reason,
		Status:     types.PendingStatus(row.Status),
		ResolvedBy: row.ResolvedBy,
		CreatedAt:  time.Unix(row.CreatedAtUnix, 0),
	}
	if row.ResolvedAtUnix != nil {
		t := time.Unix(*row.ResolvedAtUnix, 0)
		p.ResolvedAt = &t
	}
	return p, nil
}
