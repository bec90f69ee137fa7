package service_sale

import (
	"context"

	"clinicstock/internal/core/id"
)

// Repository defines operations for service sales.
type Repository interface {
	// Create stores the sale and its snapshots.
	Create(ctx context.Context, sale *ServiceSale) error

	// GetByID returns the sale with snapshots. Soft-deleted sales are
	// reported as NotFound.
	GetByID(ctx context.Context, saleID id.ID) (*ServiceSale, error)

	// GetForUpdate is GetByID with a row lock held until commit.
	GetForUpdate(ctx context.Context, saleID id.ID) (*ServiceSale, error)

	// Update writes header fields. Snapshots are immutable and ignored.
	Update(ctx context.Context, sale *ServiceSale) error
}
