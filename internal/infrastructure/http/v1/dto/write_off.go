package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/costing"
	"clinicstock/internal/domain/documents/write_off"
	"clinicstock/internal/domain/registers/ledger"
)

// CreateWriteOffRequest writes off a quantity of one material.
type CreateWriteOffRequest struct {
	MaterialID string          `json:"materialId" binding:"required,uuid"`
	LotID      *string         `json:"lotId,omitempty" binding:"omitempty,uuid"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reason     string          `json:"reason" binding:"required,max=500"`
	Date       *time.Time      `json:"date,omitempty"`
}

// ToInput converts the request to an engine input.
func (r *CreateWriteOffRequest) ToInput() (costing.WriteOffInput, error) {
	materialID, err := ParseID("materialId", r.MaterialID)
	if err != nil {
		return costing.WriteOffInput{}, err
	}
	lotID, err := parseOptionalID("lotId", r.LotID)
	if err != nil {
		return costing.WriteOffInput{}, err
	}
	return costing.WriteOffInput{
		MaterialID: materialID,
		LotID:      lotID,
		Quantity:   r.Quantity,
		Reason:     r.Reason,
		Date:       dateOrNow(r.Date),
	}, nil
}

// LotDrawResponse is one lot touched by a consumption.
type LotDrawResponse struct {
	LotID    id.ID           `json:"lotId"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unitCost"`
	Depleted bool            `json:"depleted"`
}

// WriteOffResponse is a write-off with its ledger effect.
type WriteOffResponse struct {
	WriteOff *write_off.WriteOff  `json:"writeOff"`
	Movement entity.StockMovement `json:"movement"`
	Position ledger.Position      `json:"position"`
	Draws    []LotDrawResponse    `json:"draws"`
}

// FromWriteOffResult builds the response.
func FromWriteOffResult(r *costing.WriteOffResult) WriteOffResponse {
	resp := WriteOffResponse{
		WriteOff: r.WriteOff,
		Movement: r.Movement,
		Position: r.Position,
		Draws:    make([]LotDrawResponse, 0, len(r.Draws)),
	}
	for _, d := range r.Draws {
		resp.Draws = append(resp.Draws, LotDrawResponse{
			LotID:    d.LotID,
			Quantity: d.Quantity,
			UnitCost: d.UnitCost,
			Depleted: d.Depleted,
		})
	}
	return resp
}

// ReversalResponse lists the compensating movements of a reversal.
type ReversalResponse struct {
	SourceType entity.SourceType      `json:"sourceType"`
	SourceID   id.ID                  `json:"sourceId"`
	Movements  []entity.StockMovement `json:"movements"`
}

// FromReversalResult builds the response.
func FromReversalResult(r *costing.ReversalResult) ReversalResponse {
	resp := ReversalResponse{
		SourceType: r.Source.Type,
		SourceID:   r.Source.ID,
		Movements:  r.Movements,
	}
	if resp.Movements == nil {
		resp.Movements = []entity.StockMovement{}
	}
	return resp
}
