package costing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"clinicstock/internal/core/apperror"
	appctx "clinicstock/internal/core/context"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/numerator"
	"clinicstock/internal/domain/audit"
	"clinicstock/internal/domain/documents/write_off"
	"clinicstock/internal/domain/registers/ledger"
	"clinicstock/internal/domain/registers/lots"
	"clinicstock/pkg/logger"
)

// WriteOffInput describes a manual write-off.
type WriteOffInput struct {
	MaterialID id.ID
	// LotID restricts the deduction to one lot.
	LotID    *id.ID
	Quantity decimal.Decimal
	Reason   string
	Date     time.Time
}

// WriteOffResult is what a write-off produced.
type WriteOffResult struct {
	WriteOff *write_off.WriteOff
	Movement entity.StockMovement
	Position ledger.Position
	Draws    []lots.Draw
}

// WriteOff removes stock for a stated reason.
//
// With a lot id only that lot is depleted and the lot's unit cost is used.
// Otherwise the ledger balance must cover the quantity; the unit cost
// comes from lot consumption under FIFO and from the current average
// cost otherwise. With lot tracking under AVERAGE the lots are depleted
// as far as they reach but never fail the write-off.
func (e *Engine) WriteOff(ctx context.Context, in WriteOffInput) (*WriteOffResult, error) {
	doc := write_off.NewWriteOff(in.MaterialID, in.LotID, in.Quantity, in.Reason, in.Date)
	doc.CreatedBy = appctx.GetUserID(ctx)
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, "WriteOff",
		attribute.String("material.id", in.MaterialID.String()),
		attribute.String("quantity", in.Quantity.String()),
	)
	defer span.End()

	policy, err := e.policy(ctx)
	if err != nil {
		return nil, err
	}

	result := &WriteOffResult{WriteOff: doc}
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		positions, err := e.ledger.Lock(ctx, doc.MaterialID)
		if err != nil {
			return err
		}
		pos := positions[doc.MaterialID]

		var unitCost decimal.Decimal
		if doc.LotID != nil {
			draw, err := e.lots.ConsumeLot(ctx, *doc.LotID, doc.MaterialID, doc.Quantity)
			if err != nil {
				return err
			}
			// Lots may hold more than the ledger once a policy change stops
			// outflows from depleting them; the balance must stay non-negative.
			if err := ensureBalance(doc.MaterialID, pos.Quantity, doc.Quantity); err != nil {
				return err
			}
			unitCost = draw.UnitCost
			result.Draws = []lots.Draw{draw}
		} else {
			if err := ensureBalance(doc.MaterialID, pos.Quantity, doc.Quantity); err != nil {
				return err
			}
			consumption, err := e.depleteLots(ctx, policy, doc.MaterialID, doc.Quantity, pos.Quantity)
			if err != nil {
				return err
			}
			unitCost = pos.AverageCost
			if policy.UsesFIFO() {
				unitCost = consumption.UnitCost
			}
			result.Draws = consumption.Draws
		}

		doc.SetCost(unitCost)
		if doc.Number, err = numerator.Assign(ctx, e.numbers, numerator.WriteOffNumbers, doc.WriteOffDate); err != nil {
			return err
		}
		if err := e.writeOffs.Create(ctx, doc); err != nil {
			return err
		}

		movement, newPos, err := e.ledger.RecordMovement(ctx, ledger.MovementInput{
			MaterialID: doc.MaterialID,
			Type:       entity.MovementOut,
			Quantity:   doc.Quantity,
			UnitCost:   unitCost,
			Source:     doc.Source(),
			Date:       doc.WriteOffDate,
			Note:       doc.Reason,
		})
		if err != nil {
			return err
		}
		result.Movement = movement
		result.Position = newPos
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "stock written off",
		"write_off_id", doc.ID,
		"number", doc.Number,
		"material_id", doc.MaterialID,
		"lot_id", doc.LotID,
		"quantity", doc.Quantity,
		"unit_cost", doc.UnitCost,
		"balance", result.Position.Quantity,
	)
	audit.Emit(ctx, e.audit, audit.Entry{
		EntityType: "write_off",
		EntityID:   doc.ID,
		Action:     audit.ActionCreate,
		Changes: map[string]any{
			"material_id": doc.MaterialID,
			"quantity":    doc.Quantity.String(),
			"unit_cost":   doc.UnitCost.String(),
			"reason":      doc.Reason,
		},
	})

	return result, nil
}

// GetWriteOff returns a write-off document.
func (e *Engine) GetWriteOff(ctx context.Context, writeOffID id.ID) (*write_off.WriteOff, error) {
	return e.writeOffs.GetByID(ctx, writeOffID)
}

// ensureBalance fails with the shortfall when balance cannot cover requested.
func ensureBalance(materialID id.ID, balance, requested decimal.Decimal) error {
	if requested.GreaterThan(balance) {
		return apperror.NewInsufficientStock(
			materialID.String(),
			requested.String(),
			balance.String(),
			requested.Sub(balance).String(),
		)
	}
	return nil
}
