// Package service_sale provides the service sale document and its frozen
// material cost snapshots.
package service_sale

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

// ServiceSale is one sold clinic service with the materials it consumed.
type ServiceSale struct {
	entity.BaseDocument

	ServiceID id.ID     `db:"service_id" json:"serviceId"`
	SaleDate  time.Time `db:"sale_date" json:"saleDate"`

	TotalPrice  decimal.Decimal `db:"total_price" json:"totalPrice"`
	LaborAmount decimal.Decimal `db:"labor_amount" json:"laborAmount"`

	// MaterialCostTotal is frozen at sale time. Edits to price or labor
	// recompute margin from it, never from current average cost.
	MaterialCostTotal decimal.Decimal `db:"material_cost_total" json:"materialCostTotal"`
	GrossMargin       decimal.Decimal `db:"gross_margin" json:"grossMargin"`
	MarginPercent     decimal.Decimal `db:"margin_percent" json:"marginPercent"`

	Note string `db:"note" json:"note,omitempty"`

	// DeductionReversedAt is set once the sale's stock deduction was undone.
	DeductionReversedAt *time.Time `db:"deduction_reversed_at" json:"deductionReversedAt,omitempty"`

	Snapshots []MaterialSnapshot `db:"-" json:"materials"`
}

// MaterialSnapshot freezes the cost of one material line at sale time.
type MaterialSnapshot struct {
	ID     id.ID `db:"id" json:"id"`
	SaleID id.ID `db:"sale_id" json:"saleId"`

	MaterialID       id.ID           `db:"material_id" json:"materialId"`
	Quantity         decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCostSnapshot decimal.Decimal `db:"unit_cost_snapshot" json:"unitCostSnapshot"`
	TotalCost        decimal.Decimal `db:"total_cost" json:"totalCost"`
	AssignedAmount   decimal.Decimal `db:"assigned_amount" json:"assignedAmount"`
}

// NewServiceSale creates a sale without material lines.
func NewServiceSale(serviceID id.ID, saleDate time.Time, totalPrice, laborAmount decimal.Decimal, note string) *ServiceSale {
	return &ServiceSale{
		BaseDocument:      entity.NewBaseDocument(),
		ServiceID:         serviceID,
		SaleDate:          saleDate,
		TotalPrice:        totalPrice,
		LaborAmount:       laborAmount,
		MaterialCostTotal: decimal.Zero,
		GrossMargin:       decimal.Zero,
		MarginPercent:     decimal.Zero,
		Note:              note,
		Snapshots:         make([]MaterialSnapshot, 0),
	}
}

// AddSnapshot freezes one material line at unitCost.
func (s *ServiceSale) AddSnapshot(materialID id.ID, quantity, unitCost, assigned decimal.Decimal) {
	s.Snapshots = append(s.Snapshots, MaterialSnapshot{
		ID:               id.New(),
		SaleID:           s.ID,
		MaterialID:       materialID,
		Quantity:         quantity,
		UnitCostSnapshot: unitCost,
		TotalCost:        types.RoundMoney(quantity.Mul(unitCost)),
		AssignedAmount:   assigned,
	})
	total := decimal.Zero
	for _, snap := range s.Snapshots {
		total = total.Add(snap.TotalCost)
	}
	s.MaterialCostTotal = total
}

// RecalculateMargin derives margin fields from price and the frozen cost.
func (s *ServiceSale) RecalculateMargin() {
	s.GrossMargin, s.MarginPercent = ComputeMargin(s.TotalPrice, s.MaterialCostTotal)
}

// Source returns the ledger source reference for this sale.
func (s *ServiceSale) Source() entity.SourceRef {
	return entity.ServiceSale(s.ID)
}

// ComputeMargin returns price - cost and its share of price in percent.
// The percentage is 0 when price is 0.
func ComputeMargin(totalPrice, materialCost decimal.Decimal) (margin, percent decimal.Decimal) {
	margin = types.RoundMoney(totalPrice.Sub(materialCost))
	if totalPrice.IsZero() {
		return margin, decimal.Zero
	}
	percent = types.RoundMoney(totalPrice.Sub(materialCost).Div(totalPrice).Mul(decimal.NewFromInt(100)))
	return margin, percent
}

// CheckAllocation rejects allocations where assigned revenue plus labor
// exceeds the total price by more than the tolerance.
func CheckAllocation(totalPrice, laborAmount decimal.Decimal, assigned []decimal.Decimal) error {
	allocated := laborAmount.Add(types.Sum(assigned...))
	if allocated.GreaterThan(totalPrice.Add(types.AllocationTolerance)) {
		return apperror.NewAllocationExceeded(allocated.String(), totalPrice.String())
	}
	return nil
}

// Validate implements entity.Validatable.
func (s *ServiceSale) Validate(ctx context.Context) error {
	if id.IsNil(s.ServiceID) {
		return apperror.NewValidation("service is required").
			WithDetail("field", "serviceId")
	}
	if s.SaleDate.IsZero() {
		return apperror.NewValidation("sale date is required").
			WithDetail("field", "saleDate")
	}
	if s.TotalPrice.IsNegative() {
		return apperror.NewValidation("total price must not be negative").
			WithDetail("field", "totalPrice")
	}
	if s.LaborAmount.IsNegative() {
		return apperror.NewValidation("labor amount must not be negative").
			WithDetail("field", "laborAmount")
	}
	return nil
}

var _ entity.Validatable = (*ServiceSale)(nil)
