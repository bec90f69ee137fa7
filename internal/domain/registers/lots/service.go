package lots

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// Service implements lot creation and consumption.
// Transactions and material locks are managed by the caller.
type Service struct {
	repo Repository
}

// NewService creates a new lot service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Request describes a consumption across a material's lots.
type Request struct {
	MaterialID id.ID
	Quantity   decimal.Decimal
	Order      Order

	// LedgerBalance is the ledger-derived balance the caller already
	// checked. A lot shortfall with a sufficient ledger balance is
	// reported as desynchronization.
	LedgerBalance decimal.Decimal

	// BestEffort draws whatever the lots hold instead of failing when
	// they cannot cover Quantity. The uncovered part is returned as
	// Consumption.Shortfall.
	BestEffort bool
}

// Draw is the part of a consumption taken from one lot.
type Draw struct {
	LotID    id.ID
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	Depleted bool
}

// Consumption is the result of drawing a quantity from lots.
type Consumption struct {
	Quantity   decimal.Decimal
	TotalValue decimal.Decimal
	// UnitCost is TotalValue / Quantity rounded to cost scale.
	UnitCost decimal.Decimal
	Draws    []Draw
	// Shortfall is the requested quantity no lot could cover.
	// Only a best-effort request can leave one.
	Shortfall decimal.Decimal
}

// Receive stores a new lot.
func (s *Service) Receive(ctx context.Context, lot entity.MaterialLot) error {
	if !lot.Quantity.IsPositive() {
		return apperror.NewValidation("lot quantity must be positive")
	}
	if lot.UnitCost.IsNegative() {
		return apperror.NewValidation("lot unit cost must not be negative")
	}
	if err := s.repo.Create(ctx, lot); err != nil {
		return fmt.Errorf("create lot: %w", err)
	}
	return nil
}

// Consume draws req.Quantity from the material's lots greedily in
// req.Order. Depleted lots are deleted, partially used lots decremented.
// Nothing is mutated when the lots cannot cover the quantity, unless the
// request is best-effort.
func (s *Service) Consume(ctx context.Context, req Request) (Consumption, error) {
	if !req.Quantity.IsPositive() {
		return Consumption{}, apperror.NewValidation("consumption quantity must be positive")
	}

	available, err := s.repo.ListAvailable(ctx, req.MaterialID, req.Order)
	if err != nil {
		return Consumption{}, fmt.Errorf("list lots: %w", err)
	}

	onHand := decimal.Zero
	for _, lot := range available {
		onHand = onHand.Add(lot.Quantity)
	}
	quantity := req.Quantity
	switch {
	case onHand.GreaterThanOrEqual(req.Quantity):
	case req.BestEffort:
		quantity = onHand
	default:
		if req.LedgerBalance.GreaterThanOrEqual(req.Quantity) {
			return Consumption{}, apperror.NewLotDesynchronization(
				req.MaterialID.String(),
				req.Quantity.String(),
				onHand.String(),
				req.LedgerBalance.String(),
			)
		}
		return Consumption{}, apperror.NewInsufficientStock(
			req.MaterialID.String(),
			req.Quantity.String(),
			onHand.String(),
			req.Quantity.Sub(onHand).String(),
		)
	}

	result := Consumption{
		Quantity:   quantity,
		TotalValue: decimal.Zero,
		Shortfall:  req.Quantity.Sub(quantity),
	}
	remaining := quantity

	for _, lot := range available {
		if !remaining.IsPositive() {
			break
		}

		take := decimal.Min(remaining, lot.Quantity)
		left := lot.Quantity.Sub(take)
		draw := Draw{LotID: lot.ID, Quantity: take, UnitCost: lot.UnitCost, Depleted: left.IsZero()}

		if draw.Depleted {
			if err := s.repo.Delete(ctx, lot.ID); err != nil {
				return Consumption{}, fmt.Errorf("delete lot %s: %w", lot.ID, err)
			}
		} else {
			if err := s.repo.UpdateQuantity(ctx, lot.ID, left); err != nil {
				return Consumption{}, fmt.Errorf("update lot %s: %w", lot.ID, err)
			}
		}

		result.TotalValue = result.TotalValue.Add(take.Mul(lot.UnitCost))
		result.Draws = append(result.Draws, draw)
		remaining = remaining.Sub(take)
	}

	if quantity.IsPositive() {
		result.UnitCost = types.RoundCost(result.TotalValue.Div(quantity))
	}
	return result, nil
}

// ConsumeLot draws quantity from one specific lot of a material.
// The material's aggregate balance is not considered here.
func (s *Service) ConsumeLot(ctx context.Context, lotID, materialID id.ID, quantity decimal.Decimal) (Draw, error) {
	if !quantity.IsPositive() {
		return Draw{}, apperror.NewValidation("consumption quantity must be positive")
	}

	lot, err := s.repo.Get(ctx, lotID)
	if err != nil {
		return Draw{}, err
	}
	if lot.MaterialID != materialID {
		return Draw{}, apperror.NewValidation("lot does not belong to material").
			WithDetail("lot_id", lotID.String()).
			WithDetail("material_id", materialID.String())
	}
	if lot.Quantity.LessThan(quantity) {
		return Draw{}, apperror.NewInsufficientLotQuantity(
			lotID.String(),
			quantity.String(),
			lot.Quantity.String(),
			quantity.Sub(lot.Quantity).String(),
		)
	}

	left := lot.Quantity.Sub(quantity)
	draw := Draw{LotID: lot.ID, Quantity: quantity, UnitCost: lot.UnitCost, Depleted: left.IsZero()}
	if draw.Depleted {
		err = s.repo.Delete(ctx, lot.ID)
	} else {
		err = s.repo.UpdateQuantity(ctx, lot.ID, left)
	}
	if err != nil {
		return Draw{}, fmt.Errorf("consume lot %s: %w", lot.ID, err)
	}
	return draw, nil
}

// List returns the material's remaining lots in the given order.
func (s *Service) List(ctx context.Context, materialID id.ID, order Order) ([]entity.MaterialLot, error) {
	return s.repo.ListAvailable(ctx, materialID, order)
}

// Remaining returns the material's total remaining lot quantity.
func (s *Service) Remaining(ctx context.Context, materialID id.ID) (decimal.Decimal, error) {
	return s.repo.SumRemaining(ctx, materialID)
}

// RemainingByMaterial returns remaining lot quantity per material.
func (s *Service) RemainingByMaterial(ctx context.Context) (map[id.ID]decimal.Decimal, error) {
	return s.repo.SumRemainingByMaterial(ctx)
}
