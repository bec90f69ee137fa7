package goods_receipt

import (
	"context"

	"clinicstock/internal/core/id"
)

// Repository defines operations for goods receipt documents.
type Repository interface {
	// Create stores the header and all items.
	Create(ctx context.Context, doc *GoodsReceipt) error
	// GetByID returns the receipt with items or apperror NotFound.
	GetByID(ctx context.Context, docID id.ID) (*GoodsReceipt, error)
}
