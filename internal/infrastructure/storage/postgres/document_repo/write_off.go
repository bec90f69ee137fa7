package document_repo

import (
	"context"
	"time"

	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/documents/write_off"
	"clinicstock/internal/infrastructure/storage/postgres"
)

// WriteOffRepo implements write_off.Repository.
type WriteOffRepo struct {
	*BaseDocumentRepo[write_off.WriteOff]
}

// NewWriteOffRepo creates a new write-off repository.
func NewWriteOffRepo(txm *postgres.TxManager) *WriteOffRepo {
	return &WriteOffRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[write_off.WriteOff](txm, postgres.TableWriteOffs, "write_off"),
	}
}

// MarkReversed stamps reversed_at.
func (r *WriteOffRepo) MarkReversed(ctx context.Context, docID id.ID, at time.Time) error {
	return r.SetTimestamp(ctx, docID, "reversed_at", at)
}
