package sqlite

import (
	"context"
	"time"

	"gorm.io/gorm"

	"quantdesk/internal/store/model"
	"quantdesk/internal/types"
)

type auditRepo struct {
	db *gorm.DB
}

func (r *auditRepo) Append(ctx context.Context, entry types.AuditEntry) error {
	row := model.AuditEntryModel{
		TraceID:       entry.TraceID,
		Actor:         entry.Actor,
		Stage:         entry.Stage,
		Input:         entry.Input,
		Output:        entry.Output,
		CreatedAtUnix: entry.Timestamp.Unix(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *auditRepo) ListByTrace(ctx context.Context, traceID string) ([]types.AuditEntry, error) {
	var rows []model.AuditEntryModel
	err := r.db.WithContext(ctx).
		Where("trace_id = ?", traceID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.AuditEntry{
			TraceID:   row.TraceID,
			Actor:     row.Actor,
			Stage:     row.Stage,
			Input:     row.Input,
			Output:    row.Output,
			Timestamp: time.Unix(row.CreatedAtUnix, 0),
		})
	}
	return out, nil
}
