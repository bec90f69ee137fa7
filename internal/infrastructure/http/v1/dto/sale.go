package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/costing"
	"clinicstock/internal/domain/documents/service_sale"
	"clinicstock/internal/domain/finance"
)

// CreateSaleRequest registers a service sale with its consumed materials.
type CreateSaleRequest struct {
	ServiceID   string                `json:"serviceId" binding:"required,uuid"`
	SaleDate    *time.Time            `json:"saleDate,omitempty"`
	TotalPrice  decimal.Decimal       `json:"totalPrice"`
	LaborAmount decimal.Decimal       `json:"laborAmount"`
	Note        string                `json:"note,omitempty" binding:"max=1000"`
	Materials   []SaleMaterialRequest `json:"materials" binding:"required,min=1,dive"`
}

// SaleMaterialRequest is one consumed material line.
type SaleMaterialRequest struct {
	MaterialID     string          `json:"materialId" binding:"required,uuid"`
	Quantity       decimal.Decimal `json:"quantity"`
	AssignedAmount decimal.Decimal `json:"assignedAmount"`
}

// ToInput converts the request to an engine input.
func (r *CreateSaleRequest) ToInput() (finance.SaleInput, error) {
	serviceID, err := ParseID("serviceId", r.ServiceID)
	if err != nil {
		return finance.SaleInput{}, err
	}

	in := finance.SaleInput{
		ServiceID:   serviceID,
		SaleDate:    dateOrNow(r.SaleDate),
		TotalPrice:  r.TotalPrice,
		LaborAmount: r.LaborAmount,
		Note:        r.Note,
		Materials:   make([]finance.MaterialLine, 0, len(r.Materials)),
	}
	for _, m := range r.Materials {
		materialID, err := ParseID("materialId", m.MaterialID)
		if err != nil {
			return finance.SaleInput{}, err
		}
		in.Materials = append(in.Materials, finance.MaterialLine{
			MaterialID:     materialID,
			Quantity:       m.Quantity,
			AssignedAmount: m.AssignedAmount,
		})
	}
	return in, nil
}

// UpdateSaleRequest edits price fields of a sale. Omitted fields keep
// their stored value.
type UpdateSaleRequest struct {
	TotalPrice  *decimal.Decimal `json:"totalPrice,omitempty"`
	LaborAmount *decimal.Decimal `json:"laborAmount,omitempty"`
	Note        *string          `json:"note,omitempty" binding:"omitempty,max=1000"`
}

// ToUpdate converts the request to an engine update.
func (r *UpdateSaleRequest) ToUpdate() finance.SaleUpdate {
	return finance.SaleUpdate{
		TotalPrice:  r.TotalPrice,
		LaborAmount: r.LaborAmount,
		Note:        r.Note,
	}
}

// DeductionRequest deducts stock for a sale priced outside this service.
type DeductionRequest struct {
	Date  *time.Time             `json:"date,omitempty"`
	Lines []DeductionLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// DeductionLineRequest is one deducted material.
type DeductionLineRequest struct {
	MaterialID       string          `json:"materialId" binding:"required,uuid"`
	Quantity         decimal.Decimal `json:"quantity"`
	FallbackUnitCost decimal.Decimal `json:"fallbackUnitCost"`
}

// ToLines converts the request to engine lines.
func (r *DeductionRequest) ToLines() ([]costing.SaleLine, time.Time, error) {
	lines := make([]costing.SaleLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		materialID, err := ParseID("materialId", l.MaterialID)
		if err != nil {
			return nil, time.Time{}, err
		}
		lines = append(lines, costing.SaleLine{
			MaterialID:       materialID,
			Quantity:         l.Quantity,
			FallbackUnitCost: l.FallbackUnitCost,
		})
	}
	return lines, dateOrNow(r.Date), nil
}

// DeductionResponse is one line's ledger effect.
type DeductionResponse struct {
	MaterialID id.ID                `json:"materialId"`
	Quantity   decimal.Decimal      `json:"quantity"`
	UnitCost   decimal.Decimal      `json:"unitCost"`
	Movement   entity.StockMovement `json:"movement"`
}

// FromDeductions builds the response list.
func FromDeductions(ds []costing.Deduction) []DeductionResponse {
	out := make([]DeductionResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, DeductionResponse{
			MaterialID: d.MaterialID,
			Quantity:   d.Quantity,
			UnitCost:   d.UnitCost,
			Movement:   d.Movement,
		})
	}
	return out
}

// SaleResponse is a registered sale with its deductions.
type SaleResponse struct {
	Sale       *service_sale.ServiceSale `json:"sale"`
	Deductions []DeductionResponse       `json:"deductions"`
}

// FromSaleResult builds the response.
func FromSaleResult(r *finance.SaleResult) SaleResponse {
	return SaleResponse{
		Sale:       r.Sale,
		Deductions: FromDeductions(r.Deductions),
	}
}
