package costing

import (
	"context"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/registers/ledger"
)

// StockPosition is a material's ledger position with catalog context.
type StockPosition struct {
	ledger.Position
	Unit              string          `json:"unit,omitempty"`
	MinStockThreshold decimal.Decimal `json:"minStockThreshold"`
	BelowMinimum      bool            `json:"belowMinimum"`
}

// Position returns the material's balance and average cost. Unknown
// materials and materials without history have a zero position.
func (e *Engine) Position(ctx context.Context, materialID id.ID) (StockPosition, error) {
	pos, err := e.ledger.Position(ctx, materialID)
	if err != nil {
		return StockPosition{}, err
	}
	result := StockPosition{Position: pos, MinStockThreshold: decimal.Zero}

	material, err := e.ledger.Material(ctx, materialID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return result, nil
		}
		return StockPosition{}, err
	}
	result.Unit = material.Unit
	result.MinStockThreshold = material.MinStockThreshold
	result.BelowMinimum = material.MinStockThreshold.IsPositive() && pos.Quantity.LessThan(material.MinStockThreshold)
	return result, nil
}

// Balance returns the ledger-derived on-hand quantity, 0 when unknown.
func (e *Engine) Balance(ctx context.Context, materialID id.ID) (decimal.Decimal, error) {
	return e.ledger.Balance(ctx, materialID)
}

// AverageCost returns the ledger-derived average cost, 0 when unknown.
func (e *Engine) AverageCost(ctx context.Context, materialID id.ID) (decimal.Decimal, error) {
	return e.ledger.AverageCost(ctx, materialID)
}

// Movements returns the material's movement history.
func (e *Engine) Movements(ctx context.Context, materialID id.ID, filter ledger.MovementFilter) ([]entity.StockMovement, error) {
	return e.ledger.History(ctx, materialID, filter)
}

// Lots returns the material's remaining lots in the order the current
// policy would consume them.
func (e *Engine) Lots(ctx context.Context, materialID id.ID) ([]entity.MaterialLot, error) {
	policy, err := e.policy(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := e.ledger.Material(ctx, materialID); err != nil {
		return nil, err
	}
	return e.lots.List(ctx, materialID, lotOrder(policy))
}
