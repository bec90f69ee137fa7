package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/id"
)

// MaterialLot is the remaining quantity of one goods-receipt line, kept for
// FIFO/FEFO costing. Lots are working state: they are decremented on
// consumption and physically deleted once empty.
type MaterialLot struct {
	ID         id.ID `db:"id" json:"id"`
	MaterialID id.ID `db:"material_id" json:"materialId"`

	// Quantity is the remaining quantity.
	Quantity decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost decimal.Decimal `db:"unit_cost" json:"unitCost"`

	ReceivedAt time.Time  `db:"received_at" json:"receivedAt"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	ReceiptItemID id.ID     `db:"receipt_item_id" json:"receiptItemId"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// NewMaterialLot creates a lot for a received line.
func NewMaterialLot(materialID, receiptItemID id.ID, quantity, unitCost decimal.Decimal, receivedAt time.Time, expiry *time.Time) MaterialLot {
	return MaterialLot{
		ID:            id.New(),
		MaterialID:    materialID,
		Quantity:      quantity,
		UnitCost:      unitCost,
		ReceivedAt:    receivedAt,
		ExpiryDate:    expiry,
		ReceiptItemID: receiptItemID,
		CreatedAt:     time.Now().UTC(),
	}
}

// Value returns remaining quantity x unit cost.
func (l *MaterialLot) Value() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost)
}
