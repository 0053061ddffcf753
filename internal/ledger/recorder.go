package ledger

import (
	"context"
	"encoding/json"
	"time"

	"quantdesk/internal/logger"
	"quantdesk/internal/store"
	"quantdesk/internal/types"
)

// Recorder appends one audit entry per pipeline stage transition. Entries
// for a single pass share the trace id, so a rejected or failed request is
// reconstructible end to end.
type Recorder struct {
	audits store.AuditRepository
}

func NewRecorder(audits store.AuditRepository) *Recorder {
	return &Recorder{audits: audits}
}

// Record serializes input and output as JSON summaries and appends the
// entry. Audit failures are logged, never propagated: a broken audit sink
// must not block trading decisions already made.
func (r *Recorder) Record(ctx context.Context, traceID, actor, stage string, input, output any) {
	entry := types.AuditEntry{
		TraceID:   traceID,
		Actor:     actor,
		Stage:     stage,
		Input:     summarize(input),
		Output:    summarize(output),
		Timestamp: time.Now(),
	}
	if err := r.audits.Append(ctx, entry); err != nil {
		logger.Errorf("audit append failed trace=%s stage=%s: %v", traceID, stage, err)
	}
}

func summarize(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "unserializable"
	}
	return string(raw)
}
