package write_off

import (
	"context"
	"time"

	"clinicstock/internal/core/id"
)

// Repository defines operations for write-off documents.
type Repository interface {
	Create(ctx context.Context, doc *WriteOff) error
	GetByID(ctx context.Context, docID id.ID) (*WriteOff, error)

	// GetForUpdate reads and locks the document for the transaction.
	GetForUpdate(ctx context.Context, docID id.ID) (*WriteOff, error)

	MarkReversed(ctx context.Context, docID id.ID, at time.Time) error
}
