package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/domain/costing"
	"clinicstock/internal/domain/documents/goods_receipt"
)

// CreateReceiptRequest registers a goods receipt.
type CreateReceiptRequest struct {
	SupplierID   string               `json:"supplierId" binding:"required,uuid"`
	ReceiptDate  *time.Time           `json:"receiptDate,omitempty"`
	DeliveryCost *decimal.Decimal     `json:"deliveryCost,omitempty"`
	Note         string               `json:"note,omitempty" binding:"max=1000"`
	Items        []ReceiptItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ReceiptItemRequest is one received material line.
type ReceiptItemRequest struct {
	MaterialID string          `json:"materialId" binding:"required,uuid"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	ExpiryDate *time.Time      `json:"expiryDate,omitempty"`
}

// ToInput converts the request to an engine input.
func (r *CreateReceiptRequest) ToInput() (costing.ReceiptInput, error) {
	supplierID, err := ParseID("supplierId", r.SupplierID)
	if err != nil {
		return costing.ReceiptInput{}, err
	}

	in := costing.ReceiptInput{
		SupplierID:   supplierID,
		ReceiptDate:  dateOrNow(r.ReceiptDate),
		DeliveryCost: r.DeliveryCost,
		Note:         r.Note,
		Items:        make([]costing.ReceiptItem, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		materialID, err := ParseID("materialId", item.MaterialID)
		if err != nil {
			return costing.ReceiptInput{}, err
		}
		in.Items = append(in.Items, costing.ReceiptItem{
			MaterialID: materialID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			ExpiryDate: item.ExpiryDate,
		})
	}
	return in, nil
}

// ReceiptResponse is the registered receipt with its ledger effects.
type ReceiptResponse struct {
	Receipt   *goods_receipt.GoodsReceipt `json:"receipt"`
	Movements []entity.StockMovement      `json:"movements"`
	Lots      []entity.MaterialLot        `json:"lots"`
}

// FromReceiptResult builds the response.
func FromReceiptResult(r *costing.ReceiptResult) ReceiptResponse {
	resp := ReceiptResponse{
		Receipt:   r.Receipt,
		Movements: r.Movements,
		Lots:      r.Lots,
	}
	if resp.Lots == nil {
		resp.Lots = []entity.MaterialLot{}
	}
	return resp
}
