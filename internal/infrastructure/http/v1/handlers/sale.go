package handlers

import (
	"github.com/gin-gonic/gin"

	"clinicstock/internal/domain/finance"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles service sale requests.
type SaleHandler struct {
	*BaseHandler
	finance *finance.Engine
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, fin *finance.Engine) *SaleHandler {
	return &SaleHandler{BaseHandler: base, finance: fin}
}

// Create registers a sale and deducts its materials.
// POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.finance.RegisterSale(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSaleResult(result))
}

// Get returns a sale with its material snapshots.
// GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	sale, err := h.finance.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sale)
}

// Update edits price fields; margin is recomputed from frozen costs.
// PATCH /sales/:id
func (h *SaleHandler) Update(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.finance.UpdateSale(c.Request.Context(), saleID, req.ToUpdate())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sale)
}

// Reverse compensates the sale's stock deduction.
// POST /sales/:id/reverse
func (h *SaleHandler) Reverse(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	result, err := h.finance.ReverseSaleDeduction(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReversalResult(result))
}

// Delete reverses the deduction and soft-deletes the sale.
// DELETE /sales/:id
func (h *SaleHandler) Delete(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.finance.DeleteSale(c.Request.Context(), saleID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Deduct deducts stock for a sale priced by another system.
// POST /sales/:id/deductions
func (h *SaleHandler) Deduct(c *gin.Context) {
	saleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.DeductionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, date, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	deductions, err := h.finance.DeductForSale(c.Request.Context(), saleID, lines, date)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.NewItemsResponse(dto.FromDeductions(deductions)))
}
