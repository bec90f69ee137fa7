package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
)

// MovementFilter narrows a history query. The zero value selects the
// complete history of the material.
type MovementFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Repository defines data access for materials and the movement journal.
type Repository interface {
	// LockMaterial reads the material row and holds a write lock on it
	// until the surrounding transaction ends. Returns NotFound for
	// unknown materials.
	LockMaterial(ctx context.Context, materialID id.ID) (entity.Material, error)

	// GetMaterial reads the material without locking.
	GetMaterial(ctx context.Context, materialID id.ID) (entity.Material, error)

	// ListMaterialIDs returns every material id.
	ListMaterialIDs(ctx context.Context) ([]id.ID, error)

	// UpdateAverageCost writes the cached weighted-average cost.
	UpdateAverageCost(ctx context.Context, materialID id.ID, cost decimal.Decimal) error

	// InsertMovement appends one journal entry.
	InsertMovement(ctx context.Context, m entity.StockMovement) error

	// ListMovements returns movements of a material ordered by
	// movement date then creation.
	ListMovements(ctx context.Context, materialID id.ID, filter MovementFilter) ([]entity.StockMovement, error)

	// ListActiveOut returns OUT movements of a source that have not been
	// reversed.
	ListActiveOut(ctx context.Context, source entity.SourceRef) ([]entity.StockMovement, error)

	// MarkReversed stamps an OUT movement as compensated.
	MarkReversed(ctx context.Context, movementID id.ID, at time.Time) error
}
