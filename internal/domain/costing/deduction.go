package costing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/registers/ledger"
	"clinicstock/internal/domain/registers/lots"
	"clinicstock/internal/domain/settings"
	"clinicstock/pkg/logger"
)

// SaleLine is one material to deduct for a sale.
type SaleLine struct {
	MaterialID id.ID
	Quantity   decimal.Decimal
	// FallbackUnitCost is used when outflows are not costed from lots.
	// The financial engine passes the average cost it priced the line at.
	FallbackUnitCost decimal.Decimal
}

// Deduction is the OUT movement written for one sale line.
type Deduction struct {
	MaterialID id.ID
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
	Movement   entity.StockMovement
}

func validateSaleLines(saleID id.ID, lines []SaleLine) error {
	if id.IsNil(saleID) {
		return apperror.NewValidation("sale id is required")
	}
	if len(lines) == 0 {
		return apperror.NewValidation("at least one material line is required").
			WithDetail("field", "materials")
	}
	for i, line := range lines {
		if id.IsNil(line.MaterialID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: material is required", i+1))
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
		if line.FallbackUnitCost.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("line %d: unit cost must not be negative", i+1))
		}
	}
	return nil
}

// DeductForSale writes one OUT movement per line. Every line is
// re-checked against the balance at deduction time; if any line is short
// nothing is deducted.
func (e *Engine) DeductForSale(ctx context.Context, saleID id.ID, lines []SaleLine, date time.Time) ([]Deduction, error) {
	if err := validateSaleLines(saleID, lines); err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, "DeductForSale",
		attribute.String("sale.id", saleID.String()),
		attribute.Int("sale.lines", len(lines)),
	)
	defer span.End()

	policy, err := e.policy(ctx)
	if err != nil {
		return nil, err
	}

	materialIDs := make([]id.ID, 0, len(lines))
	for _, line := range lines {
		materialIDs = append(materialIDs, line.MaterialID)
	}

	deductions := make([]Deduction, 0, len(lines))
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.ledger.Lock(ctx, materialIDs...); err != nil {
			return err
		}

		for _, line := range lines {
			// Earlier lines of the same sale may have moved this material.
			pos, err := e.ledger.Position(ctx, line.MaterialID)
			if err != nil {
				return err
			}
			if err := ensureBalance(line.MaterialID, pos.Quantity, line.Quantity); err != nil {
				return err
			}

			consumption, err := e.depleteLots(ctx, policy, line.MaterialID, line.Quantity, pos.Quantity)
			if err != nil {
				return err
			}
			unitCost := line.FallbackUnitCost
			if policy.UsesFIFO() {
				unitCost = consumption.UnitCost
			}

			movement, _, err := e.ledger.RecordMovement(ctx, ledger.MovementInput{
				MaterialID: line.MaterialID,
				Type:       entity.MovementOut,
				Quantity:   line.Quantity,
				UnitCost:   unitCost,
				Source:     entity.ServiceSale(saleID),
				Date:       date,
			})
			if err != nil {
				return err
			}
			deductions = append(deductions, Deduction{
				MaterialID: line.MaterialID,
				Quantity:   line.Quantity,
				UnitCost:   unitCost,
				Movement:   movement,
			})
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "stock deducted for sale",
		"sale_id", saleID,
		"lines", len(deductions),
		"write_off_method", policy.WriteOffMethod,
	)
	return deductions, nil
}

// depleteLots draws an outflow from the material's lots when lots are in
// use. Under FIFO the lots cost the outflow and must cover it. Under
// AVERAGE with lot tracking they are only kept in step: whatever they
// hold is depleted and the uncovered rest shows up in LotDiscrepancies.
func (e *Engine) depleteLots(ctx context.Context, policy settings.InventorySettings, materialID id.ID, quantity, balance decimal.Decimal) (lots.Consumption, error) {
	if !policy.UsesLots() {
		return lots.Consumption{}, nil
	}

	consumption, err := e.lots.Consume(ctx, lots.Request{
		MaterialID:    materialID,
		Quantity:      quantity,
		Order:         lotOrder(policy),
		LedgerBalance: balance,
		BestEffort:    !policy.UsesFIFO(),
	})
	if err != nil {
		return lots.Consumption{}, err
	}
	if consumption.Shortfall.IsPositive() {
		logger.Warn(ctx, "lots do not cover outflow",
			"material_id", materialID,
			"quantity", quantity,
			"shortfall", consumption.Shortfall,
		)
	}
	return consumption, nil
}
