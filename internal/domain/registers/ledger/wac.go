package ledger

import (
	"github.com/shopspring/decimal"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// Position is the ledger-derived state of one material.
type Position struct {
	MaterialID  id.ID           `json:"materialId"`
	Quantity    decimal.Decimal `json:"quantity"`
	Value       decimal.Decimal `json:"value"`
	AverageCost decimal.Decimal `json:"averageCost"`
}

// Calculate derives balance and weighted-average cost from the full
// movement history of a material. The result depends only on the
// movements, so repeated calls never drift.
func Calculate(materialID id.ID, movements []entity.StockMovement) Position {
	pos := Position{
		MaterialID:  materialID,
		Quantity:    decimal.Zero,
		Value:       decimal.Zero,
		AverageCost: decimal.Zero,
	}

	for i := range movements {
		m := &movements[i]
		pos.Quantity = pos.Quantity.Add(m.SignedQuantity())
		pos.Value = pos.Value.Add(m.SignedValue())
	}

	if pos.Quantity.IsPositive() {
		pos.AverageCost = types.RoundCost(pos.Value.Div(pos.Quantity))
	}
	return pos
}
