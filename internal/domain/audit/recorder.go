// Package audit defines the audit trail contract used by the costing engines.
// Audit writing is a side effect: a failed write is logged and never
// undoes or blocks the business operation that produced it.
package audit

import (
	"context"
	"time"

	appctx "clinicstock/internal/core/context"
	"clinicstock/internal/core/id"
	"clinicstock/pkg/logger"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReverse Action = "reverse"
)

// Entry is a single audit record.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	UserID     string
	Changes    map[string]any
	CreatedAt  time.Time
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Emit records entry on r and swallows the error after logging it.
// A nil recorder is a no-op.
func Emit(ctx context.Context, r Recorder, entry Entry) {
	if r == nil {
		return
	}
	if entry.UserID == "" {
		entry.UserID = appctx.GetUserID(ctx)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := r.Record(ctx, entry); err != nil {
		logger.Warn(ctx, "audit record failed",
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"action", entry.Action,
			"error", err,
		)
	}
}
