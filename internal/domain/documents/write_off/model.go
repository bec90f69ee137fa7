// Package write_off provides the manual write-off document.
package write_off

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// WriteOff removes a quantity of one material from stock for a stated
// reason (expired, damaged, used internally). The ledger OUT movement
// carries the quantity and cost truth; the document carries the reason.
type WriteOff struct {
	entity.BaseDocument

	MaterialID id.ID `db:"material_id" json:"materialId"`
	// LotID is set when the write-off targets one specific lot.
	LotID *id.ID `db:"lot_id" json:"lotId,omitempty"`

	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost  decimal.Decimal `db:"unit_cost" json:"unitCost"`
	TotalCost decimal.Decimal `db:"total_cost" json:"totalCost"`

	Reason       string    `db:"reason" json:"reason"`
	WriteOffDate time.Time `db:"write_off_date" json:"writeOffDate"`

	ReversedAt *time.Time `db:"reversed_at" json:"reversedAt,omitempty"`
}

// NewWriteOff creates a write-off document without cost; SetCost fills
// it once the costing engine has determined the unit cost.
func NewWriteOff(materialID id.ID, lotID *id.ID, quantity decimal.Decimal, reason string, date time.Time) *WriteOff {
	return &WriteOff{
		BaseDocument: entity.NewBaseDocument(),
		MaterialID:   materialID,
		LotID:        lotID,
		Quantity:     quantity,
		UnitCost:     decimal.Zero,
		TotalCost:    decimal.Zero,
		Reason:       reason,
		WriteOffDate: date,
	}
}

// SetCost stores the unit cost and derived total.
func (w *WriteOff) SetCost(unitCost decimal.Decimal) {
	w.UnitCost = unitCost
	w.TotalCost = types.RoundMoney(w.Quantity.Mul(unitCost))
}

// Source returns the ledger source reference for this document.
func (w *WriteOff) Source() entity.SourceRef {
	return entity.WriteOff(w.ID)
}

// IsReversed reports whether the write-off was undone.
func (w *WriteOff) IsReversed() bool {
	return w.ReversedAt != nil
}

// Validate implements entity.Validatable.
func (w *WriteOff) Validate(ctx context.Context) error {
	if id.IsNil(w.MaterialID) {
		return apperror.NewValidation("material is required").
			WithDetail("field", "materialId")
	}
	if w.LotID != nil && id.IsNil(*w.LotID) {
		return apperror.NewValidation("lot id must not be empty").
			WithDetail("field", "lotId")
	}
	if !w.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	if w.Reason == "" {
		return apperror.NewValidation("reason is required").
			WithDetail("field", "reason")
	}
	if w.WriteOffDate.IsZero() {
		return apperror.NewValidation("write-off date is required").
			WithDetail("field", "writeOffDate")
	}
	return nil
}

var _ entity.Validatable = (*WriteOff)(nil)
