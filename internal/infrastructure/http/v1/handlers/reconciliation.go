package handlers

import (
	"github.com/gin-gonic/gin"

	"clinicstock/internal/domain/costing"
	"clinicstock/internal/infrastructure/http/v1/dto"
)

// ReconciliationHandler reports ledger and lot mismatches.
type ReconciliationHandler struct {
	*BaseHandler
	engine *costing.Engine
}

// NewReconciliationHandler creates a new reconciliation handler.
func NewReconciliationHandler(base *BaseHandler, engine *costing.Engine) *ReconciliationHandler {
	return &ReconciliationHandler{BaseHandler: base, engine: engine}
}

// Lots lists materials whose lots disagree with the ledger balance.
// GET /reconciliation/lots
func (h *ReconciliationHandler) Lots(c *gin.Context) {
	gaps, err := h.engine.LotDiscrepancies(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewItemsResponse(gaps))
}
