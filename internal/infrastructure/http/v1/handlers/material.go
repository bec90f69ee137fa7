package handlers

import (
	"github.com/gin-gonic/gin"

	"clinicstock/internal/domain/costing"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// MaterialHandler serves ledger reads for a material.
type MaterialHandler struct {
	*BaseHandler
	engine *costing.Engine
}

// NewMaterialHandler creates a new material handler.
func NewMaterialHandler(base *BaseHandler, engine *costing.Engine) *MaterialHandler {
	return &MaterialHandler{BaseHandler: base, engine: engine}
}

// Position returns balance, average cost and the low-stock flag.
// GET /materials/:id/position
func (h *MaterialHandler) Position(c *gin.Context) {
	materialID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	pos, err := h.engine.Position(c.Request.Context(), materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, pos)
}

// Movements returns the movement history.
// GET /materials/:id/movements?from=&to=&limit=&offset=
func (h *MaterialHandler) Movements(c *gin.Context) {
	materialID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var q dto.MovementQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	movements, err := h.engine.Movements(c.Request.Context(), materialID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemsResponse(movements))
}

// Lots returns remaining lots in consumption order.
// GET /materials/:id/lots
func (h *MaterialHandler) Lots(c *gin.Context) {
	materialID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	result, err := h.engine.Lots(c.Request.Context(), materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemsResponse(result))
}
