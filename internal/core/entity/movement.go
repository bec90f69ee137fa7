// Package entity provides core domain entities.
package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/id"
)

// MovementType defines movement direction in the stock ledger.
type MovementType string

const (
	// MovementIn increases the balance.
	MovementIn MovementType = "IN"
	// MovementOut decreases the balance.
	MovementOut MovementType = "OUT"
)

// SourceType names the kind of business document behind a movement.
type SourceType string

const (
	SourceStockEntry  SourceType = "STOCK_ENTRY"
	SourceWriteOff    SourceType = "WRITE_OFF"
	SourceServiceSale SourceType = "SERVICE_SALE"
)

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceStockEntry, SourceWriteOff, SourceServiceSale:
		return true
	}
	return false
}

// SourceRef points at the document that produced a movement.
// Construct it with StockEntry, WriteOff or ServiceSale so the pair is
// always one of the three known variants.
type SourceRef struct {
	Type SourceType
	ID   id.ID
}

// StockEntry references a goods receipt.
func StockEntry(receiptID id.ID) SourceRef {
	return SourceRef{Type: SourceStockEntry, ID: receiptID}
}

// WriteOff references a manual write-off.
func WriteOff(writeOffID id.ID) SourceRef {
	return SourceRef{Type: SourceWriteOff, ID: writeOffID}
}

// ServiceSale references a service sale.
func ServiceSale(saleID id.ID) SourceRef {
	return SourceRef{Type: SourceServiceSale, ID: saleID}
}

func (s SourceRef) String() string {
	return fmt.Sprintf("%s:%s", s.Type, s.ID)
}

// StockMovement is one immutable entry of the stock ledger.
// The only mutation ever applied is setting ReversedAt when a reversal
// compensates the movement.
type StockMovement struct {
	ID         id.ID        `db:"id" json:"id"`
	MaterialID id.ID        `db:"material_id" json:"materialId"`
	Type       MovementType `db:"type" json:"type"`

	Quantity decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost decimal.Decimal `db:"unit_cost" json:"unitCost"`

	SourceType SourceType `db:"source_type" json:"sourceType"`
	SourceID   id.ID      `db:"source_id" json:"sourceId"`

	MovementDate time.Time `db:"movement_date" json:"movementDate"`
	Note         string    `db:"note" json:"note,omitempty"`

	// ReversalOf is set on compensating IN movements.
	ReversalOf *id.ID `db:"reversal_of" json:"reversalOf,omitempty"`
	// ReversedAt is the soft-delete marker of an OUT that has been compensated.
	ReversedAt *time.Time `db:"reversed_at" json:"reversedAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewStockMovement creates a new ledger entry with a generated ID.
func NewStockMovement(
	materialID id.ID,
	movementType MovementType,
	quantity, unitCost decimal.Decimal,
	source SourceRef,
	movementDate time.Time,
	note string,
) StockMovement {
	return StockMovement{
		ID:           id.New(),
		MaterialID:   materialID,
		Type:         movementType,
		Quantity:     quantity,
		UnitCost:     unitCost,
		SourceType:   source.Type,
		SourceID:     source.ID,
		MovementDate: movementDate,
		Note:         note,
		CreatedAt:    time.Now().UTC(),
	}
}

// Source returns the typed source reference.
func (m *StockMovement) Source() SourceRef {
	return SourceRef{Type: m.SourceType, ID: m.SourceID}
}

// SignedQuantity returns quantity with sign based on movement type.
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	if m.Type == MovementOut {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// SignedValue returns quantity x unit cost with the movement's sign.
func (m *StockMovement) SignedValue() decimal.Decimal {
	return m.SignedQuantity().Mul(m.UnitCost)
}

// IsReversed reports whether an OUT movement has been compensated.
func (m *StockMovement) IsReversed() bool {
	return m.ReversedAt != nil
}
