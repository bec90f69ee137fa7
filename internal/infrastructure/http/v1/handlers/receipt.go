package handlers

import (
	"github.com/gin-gonic/gin"

	"clinicstock/internal/domain/costing"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// ReceiptHandler handles goods receipt requests.
type ReceiptHandler struct {
	*BaseHandler
	engine *costing.Engine
}

// NewReceiptHandler creates a new receipt handler.
func NewReceiptHandler(base *BaseHandler, engine *costing.Engine) *ReceiptHandler {
	return &ReceiptHandler{BaseHandler: base, engine: engine}
}

// Create registers a goods receipt.
// POST /receipts
func (h *ReceiptHandler) Create(c *gin.Context) {
	var req dto.CreateReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.engine.RegisterReceipt(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromReceiptResult(result))
}
