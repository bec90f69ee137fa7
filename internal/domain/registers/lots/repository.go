package lots

import (
	"context"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
)

// Repository defines persistence for material lots.
// Consumption runs under the material's row lock, so implementations do
// not lock lot rows themselves.
type Repository interface {
	Create(ctx context.Context, lot entity.MaterialLot) error

	// Get returns a lot by id or apperror NotFound.
	Get(ctx context.Context, lotID id.ID) (entity.MaterialLot, error)

	// ListAvailable returns lots of a material with positive remaining
	// quantity in the given order.
	ListAvailable(ctx context.Context, materialID id.ID, order Order) ([]entity.MaterialLot, error)

	UpdateQuantity(ctx context.Context, lotID id.ID, quantity decimal.Decimal) error

	// Delete physically removes a depleted lot.
	Delete(ctx context.Context, lotID id.ID) error

	// SumRemaining returns the total remaining quantity of a material's lots.
	SumRemaining(ctx context.Context, materialID id.ID) (decimal.Decimal, error)

	// SumRemainingByMaterial returns remaining quantity for every material
	// that has at least one lot.
	SumRemainingByMaterial(ctx context.Context) (map[id.ID]decimal.Decimal, error)
}
