package costing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/id"
	"clinicstock/pkg/logger"
)

// LotDiscrepancy is a material whose lots do not add up to its ledger
// balance. A positive Gap is ledger stock not backed by any lot, the
// usual outcome of reversing a lot-consuming deduction.
type LotDiscrepancy struct {
	MaterialID    id.ID           `json:"materialId"`
	LedgerBalance decimal.Decimal `json:"ledgerBalance"`
	LotQuantity   decimal.Decimal `json:"lotQuantity"`
	Gap           decimal.Decimal `json:"gap"`
}

// LotDiscrepancies compares every material's ledger balance with the sum
// of its lots. Nothing is reported while lots are not in use. The report
// is read-only: repairs are an explicit, separate decision.
func (e *Engine) LotDiscrepancies(ctx context.Context) ([]LotDiscrepancy, error) {
	policy, err := e.policy(ctx)
	if err != nil {
		return nil, err
	}
	if !policy.UsesLots() {
		return []LotDiscrepancy{}, nil
	}

	materialIDs, err := e.ledger.MaterialIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	remaining, err := e.lots.RemainingByMaterial(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum lots: %w", err)
	}

	report := make([]LotDiscrepancy, 0)
	for _, materialID := range materialIDs {
		balance, err := e.ledger.Balance(ctx, materialID)
		if err != nil {
			return nil, err
		}
		lotQty, ok := remaining[materialID]
		if !ok {
			lotQty = decimal.Zero
		}
		if balance.Equal(lotQty) {
			continue
		}

		d := LotDiscrepancy{
			MaterialID:    materialID,
			LedgerBalance: balance,
			LotQuantity:   lotQty,
			Gap:           balance.Sub(lotQty),
		}
		report = append(report, d)
		logger.Warn(ctx, "lot quantity out of sync with ledger",
			"material_id", materialID,
			"ledger_balance", balance,
			"lot_quantity", lotQty,
			"gap", d.Gap,
		)
	}
	return report, nil
}

// RecomputeAll re-derives every material's cached average cost from its
// movement history, one transaction per material. Returns how many
// materials were processed.
func (e *Engine) RecomputeAll(ctx context.Context) (int, error) {
	materialIDs, err := e.ledger.MaterialIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list materials: %w", err)
	}

	for i, materialID := range materialIDs {
		err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			if _, err := e.ledger.Lock(ctx, materialID); err != nil {
				return err
			}
			_, err := e.ledger.Recompute(ctx, materialID)
			return err
		})
		if err != nil {
			return i, fmt.Errorf("recompute %s: %w", materialID, err)
		}
	}

	logger.Info(ctx, "average costs recomputed", "materials", len(materialIDs))
	return len(materialIDs), nil
}
