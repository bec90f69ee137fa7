package entity

import (
	"context"
	"time"

	"clinicstock/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// BaseDocument contains the identity and audit fields shared by business
// documents (goods receipts, write-offs, service sales).
type BaseDocument struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Number is the human-readable document number, e.g. GR-2026-00001.
	// Empty when the document was created without a numerator.
	Number string `db:"number" json:"number,omitempty"`

	// Audit fields
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`

	// DeletedAt marks a soft-deleted document
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// NewBaseDocument creates a new BaseDocument with generated ID and timestamps.
func NewBaseDocument() BaseDocument {
	now := time.Now().UTC()
	return BaseDocument{
		ID:        id.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp.
func (b *BaseDocument) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// MarkDeleted soft-deletes the document.
func (b *BaseDocument) MarkDeleted(at time.Time) {
	b.DeletedAt = &at
	b.UpdatedAt = at
}

// IsDeleted reports whether the document was soft-deleted.
func (b *BaseDocument) IsDeleted() bool {
	return b.DeletedAt != nil
}
