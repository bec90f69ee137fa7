// Package goods_receipt provides the GoodsReceipt document.
package goods_receipt

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// GoodsReceipt records materials received from a supplier.
// Each item becomes one IN movement and, when lots are in use, one lot.
type GoodsReceipt struct {
	entity.BaseDocument

	SupplierID  id.ID     `db:"supplier_id" json:"supplierId"`
	ReceiptDate time.Time `db:"receipt_date" json:"receiptDate"`

	// DeliveryCost is recorded on the document only; it is not spread
	// into item unit costs.
	DeliveryCost *decimal.Decimal `db:"delivery_cost" json:"deliveryCost,omitempty"`

	Note string `db:"note" json:"note,omitempty"`

	// TotalAmount is Σ item amount + delivery cost.
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`

	// Table part: received materials
	Items []Item `db:"-" json:"items"`
}

// Item is one received material line.
type Item struct {
	ID        id.ID `db:"id" json:"id"`
	ReceiptID id.ID `db:"receipt_id" json:"receiptId"`
	LineNo    int   `db:"line_no" json:"lineNo"`

	MaterialID id.ID           `db:"material_id" json:"materialId"`
	Quantity   decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unitPrice"`
	ExpiryDate *time.Time      `db:"expiry_date" json:"expiryDate,omitempty"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
}

// NewGoodsReceipt creates an empty receipt.
func NewGoodsReceipt(supplierID id.ID, receiptDate time.Time, deliveryCost *decimal.Decimal, note string) *GoodsReceipt {
	return &GoodsReceipt{
		BaseDocument: entity.NewBaseDocument(),
		SupplierID:   supplierID,
		ReceiptDate:  receiptDate,
		DeliveryCost: deliveryCost,
		Note:         note,
		Items:        make([]Item, 0),
	}
}

// AddItem appends a line and recalculates totals.
func (g *GoodsReceipt) AddItem(materialID id.ID, quantity, unitPrice decimal.Decimal, expiry *time.Time) {
	g.Items = append(g.Items, Item{
		ID:         id.New(),
		ReceiptID:  g.ID,
		LineNo:     len(g.Items) + 1,
		MaterialID: materialID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		ExpiryDate: expiry,
		Amount:     types.RoundMoney(quantity.Mul(unitPrice)),
	})
	g.recalculateTotals()
}

func (g *GoodsReceipt) recalculateTotals() {
	total := decimal.Zero
	for _, item := range g.Items {
		total = total.Add(item.Amount)
	}
	if g.DeliveryCost != nil {
		total = total.Add(*g.DeliveryCost)
	}
	g.TotalAmount = total
}

// MaterialIDs returns the materials referenced by the items.
func (g *GoodsReceipt) MaterialIDs() []id.ID {
	ids := make([]id.ID, 0, len(g.Items))
	for _, item := range g.Items {
		ids = append(ids, item.MaterialID)
	}
	return ids
}

// Validate implements entity.Validatable.
func (g *GoodsReceipt) Validate(ctx context.Context) error {
	if id.IsNil(g.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}

	if g.ReceiptDate.IsZero() {
		return apperror.NewValidation("receipt date is required").
			WithDetail("field", "receiptDate")
	}

	if g.DeliveryCost != nil && g.DeliveryCost.IsNegative() {
		return apperror.NewValidation("delivery cost must not be negative").
			WithDetail("field", "deliveryCost")
	}

	if len(g.Items) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}

	for _, item := range g.Items {
		if id.IsNil(item.MaterialID) {
			return apperror.NewValidation("material is required").
				WithDetail("field", "items").
				WithDetail("lineNo", item.LineNo)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "items").
				WithDetail("lineNo", item.LineNo)
		}
		if item.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price must not be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", item.LineNo)
		}
	}

	return nil
}

var _ entity.Validatable = (*GoodsReceipt)(nil)
