package costing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/audit"
	"clinicstock/internal/domain/registers/ledger"
	"clinicstock/pkg/logger"
)

// ReversalResult lists the compensating movements written by a reversal.
// It is empty when there was nothing left to reverse.
type ReversalResult struct {
	Source    entity.SourceRef
	Movements []entity.StockMovement
}

// Reverse undoes every active OUT movement of source: each gets a
// compensating IN at the same unit cost, tagged with the same source,
// and is then marked reversed. Lots depleted by the original OUTs are
// not recreated; LotDiscrepancies reports the resulting gap.
// Reversing a source with no active OUT movements is a no-op.
func (e *Engine) Reverse(ctx context.Context, source entity.SourceRef) (*ReversalResult, error) {
	if !source.Type.Valid() || id.IsNil(source.ID) {
		return nil, apperror.NewValidation("reversal source is required")
	}

	ctx, span := startSpan(ctx, "Reverse", attribute.String("source", source.String()))
	defer span.End()

	var result *ReversalResult
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = e.reverse(ctx, source)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// reverse runs inside the caller's transaction.
func (e *Engine) reverse(ctx context.Context, source entity.SourceRef) (*ReversalResult, error) {
	result := &ReversalResult{Source: source}

	outs, err := e.ledger.ActiveOutMovements(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return result, nil
	}

	materialIDs := make([]id.ID, 0, len(outs))
	for _, out := range outs {
		materialIDs = append(materialIDs, out.MaterialID)
	}
	if _, err := e.ledger.Lock(ctx, materialIDs...); err != nil {
		return nil, err
	}
	// A concurrent reversal may have closed some of them before the locks.
	outs, err = e.ledger.ActiveOutMovements(ctx, source)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, out := range outs {
		reversalOf := out.ID
		movement, _, err := e.ledger.RecordMovement(ctx, ledger.MovementInput{
			MaterialID: out.MaterialID,
			Type:       entity.MovementIn,
			Quantity:   out.Quantity,
			UnitCost:   out.UnitCost,
			Source:     source,
			Date:       now,
			Note:       fmt.Sprintf("reversal of %s", out.ID),
			ReversalOf: &reversalOf,
		})
		if err != nil {
			return nil, err
		}
		if err := e.ledger.MarkReversed(ctx, out.ID); err != nil {
			return nil, err
		}
		result.Movements = append(result.Movements, movement)
	}

	logger.Info(ctx, "stock deduction reversed",
		"source", source.String(),
		"movements", len(result.Movements),
	)
	return result, nil
}

// ReverseWriteOff undoes a write-off. Reversing an already reversed
// write-off is a no-op.
func (e *Engine) ReverseWriteOff(ctx context.Context, writeOffID id.ID) (*ReversalResult, error) {
	ctx, span := startSpan(ctx, "ReverseWriteOff", attribute.String("write_off.id", writeOffID.String()))
	defer span.End()

	var (
		result  *ReversalResult
		changed bool
	)
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := e.writeOffs.GetForUpdate(ctx, writeOffID)
		if err != nil {
			return err
		}
		if doc.IsReversed() {
			result = &ReversalResult{Source: doc.Source()}
			return nil
		}

		result, err = e.reverse(ctx, doc.Source())
		if err != nil {
			return err
		}
		changed = true
		return e.writeOffs.MarkReversed(ctx, doc.ID, time.Now().UTC())
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if changed {
		audit.Emit(ctx, e.audit, audit.Entry{
			EntityType: "write_off",
			EntityID:   writeOffID,
			Action:     audit.ActionReverse,
			Changes:    map[string]any{"movements": len(result.Movements)},
		})
	}
	return result, nil
}
