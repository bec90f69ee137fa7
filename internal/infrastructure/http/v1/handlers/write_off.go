package handlers

import (
	"github.com/gin-gonic/gin"

	"clinicstock/internal/domain/costing"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// WriteOffHandler handles write-off requests.
type WriteOffHandler struct {
	*BaseHandler
	engine *costing.Engine
}

// NewWriteOffHandler creates a new write-off handler.
func NewWriteOffHandler(base *BaseHandler, engine *costing.Engine) *WriteOffHandler {
	return &WriteOffHandler{BaseHandler: base, engine: engine}
}

// Create writes off stock.
// POST /write-offs
func (h *WriteOffHandler) Create(c *gin.Context) {
	var req dto.CreateWriteOffRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.engine.WriteOff(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromWriteOffResult(result))
}

// Get returns a write-off document.
// GET /write-offs/:id
func (h *WriteOffHandler) Get(c *gin.Context) {
	writeOffID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	doc, err := h.engine.GetWriteOff(c.Request.Context(), writeOffID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Reverse compensates a write-off.
// POST /write-offs/:id/reverse
func (h *WriteOffHandler) Reverse(c *gin.Context) {
	writeOffID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	result, err := h.engine.ReverseWriteOff(c.Request.Context(), writeOffID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromReversalResult(result))
}
