// Package ledger provides the stock movement journal and the balance
// and weighted-average cost calculator derived from it.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/pkg/logger"
)

// Service records movements and keeps each material's cached average
// cost equal to the value derived from its history.
// Transactions are managed by the caller (costing engine).
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new ledger service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// MovementInput describes one journal entry to append.
type MovementInput struct {
	MaterialID id.ID
	Type       entity.MovementType
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
	Source     entity.SourceRef
	Date       time.Time
	Note       string
	ReversalOf *id.ID
}

// Validate checks the input without touching storage.
func (in MovementInput) Validate() error {
	if id.IsNil(in.MaterialID) {
		return apperror.NewValidation("material_id is required")
	}
	if in.Type != entity.MovementIn && in.Type != entity.MovementOut {
		return apperror.NewValidation(fmt.Sprintf("unknown movement type %q", in.Type))
	}
	if !in.Quantity.IsPositive() {
		return apperror.NewValidation("movement quantity must be positive")
	}
	if in.UnitCost.IsNegative() {
		return apperror.NewValidation("movement unit cost must not be negative")
	}
	if !in.Source.Type.Valid() || id.IsNil(in.Source.ID) {
		return apperror.NewValidation("movement source is required")
	}
	return nil
}

// RecordMovement appends one movement and recomputes the material's
// average cost from its full history. Sufficiency is the caller's
// concern: the ledger never rejects a well-formed movement.
func (s *Service) RecordMovement(ctx context.Context, in MovementInput) (entity.StockMovement, Position, error) {
	if err := in.Validate(); err != nil {
		return entity.StockMovement{}, Position{}, err
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	m := entity.NewStockMovement(in.MaterialID, in.Type, in.Quantity, in.UnitCost, in.Source, date, in.Note)
	m.ReversalOf = in.ReversalOf

	if err := s.repo.InsertMovement(ctx, m); err != nil {
		return entity.StockMovement{}, Position{}, fmt.Errorf("insert movement: %w", err)
	}

	pos, err := s.Recompute(ctx, in.MaterialID)
	if err != nil {
		return entity.StockMovement{}, Position{}, err
	}

	logger.Debug(ctx, "recorded stock movement",
		"material_id", in.MaterialID,
		"type", in.Type,
		"quantity", in.Quantity,
		"unit_cost", in.UnitCost,
		"source", in.Source.String(),
		"balance", pos.Quantity,
		"average_cost", pos.AverageCost,
	)

	return m, pos, nil
}

// Recompute derives the material's position from its full history and
// stores the resulting average cost on the material.
func (s *Service) Recompute(ctx context.Context, materialID id.ID) (Position, error) {
	pos, err := s.Position(ctx, materialID)
	if err != nil {
		return Position{}, err
	}
	if err := s.repo.UpdateAverageCost(ctx, materialID, pos.AverageCost); err != nil {
		return Position{}, fmt.Errorf("update average cost: %w", err)
	}
	return pos, nil
}

// Position derives balance and average cost from the ledger. A material
// without history has a zero position.
func (s *Service) Position(ctx context.Context, materialID id.ID) (Position, error) {
	movements, err := s.repo.ListMovements(ctx, materialID, MovementFilter{})
	if err != nil {
		return Position{}, fmt.Errorf("list movements: %w", err)
	}
	return Calculate(materialID, movements), nil
}

// Balance returns the ledger-derived on-hand quantity.
func (s *Service) Balance(ctx context.Context, materialID id.ID) (decimal.Decimal, error) {
	pos, err := s.Position(ctx, materialID)
	if err != nil {
		return decimal.Zero, err
	}
	return pos.Quantity, nil
}

// AverageCost returns the ledger-derived weighted-average cost.
func (s *Service) AverageCost(ctx context.Context, materialID id.ID) (decimal.Decimal, error) {
	pos, err := s.Position(ctx, materialID)
	if err != nil {
		return decimal.Zero, err
	}
	return pos.AverageCost, nil
}

// Lock takes row locks on the given materials in ascending id order and
// returns their positions read under the lock. Must run inside a
// transaction.
func (s *Service) Lock(ctx context.Context, materialIDs ...id.ID) (map[id.ID]Position, error) {
	positions := make(map[id.ID]Position, len(materialIDs))
	for _, materialID := range id.SortedUnique(materialIDs) {
		if _, err := s.repo.LockMaterial(ctx, materialID); err != nil {
			return nil, err
		}
		pos, err := s.Position(ctx, materialID)
		if err != nil {
			return nil, err
		}
		positions[materialID] = pos
	}
	return positions, nil
}

// Material returns the catalog record of a material.
func (s *Service) Material(ctx context.Context, materialID id.ID) (entity.Material, error) {
	return s.repo.GetMaterial(ctx, materialID)
}

// ActiveOutMovements returns the not yet reversed OUT movements of a source.
func (s *Service) ActiveOutMovements(ctx context.Context, source entity.SourceRef) ([]entity.StockMovement, error) {
	out, err := s.repo.ListActiveOut(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("list active out movements: %w", err)
	}
	return out, nil
}

// MarkReversed closes an OUT movement after its compensating IN was written.
func (s *Service) MarkReversed(ctx context.Context, movementID id.ID) error {
	if err := s.repo.MarkReversed(ctx, movementID, s.now()); err != nil {
		return fmt.Errorf("mark movement reversed: %w", err)
	}
	return nil
}

// History returns a page of the material's movements.
func (s *Service) History(ctx context.Context, materialID id.ID, filter MovementFilter) ([]entity.StockMovement, error) {
	if _, err := s.repo.GetMaterial(ctx, materialID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, materialID, filter)
}

// MaterialIDs returns every known material.
func (s *Service) MaterialIDs(ctx context.Context) ([]id.ID, error) {
	return s.repo.ListMaterialIDs(ctx)
}
