package handlers

import (
	"github.com/gin-gonic/gin"

	"lotkeeper/internal/domain/documents/inventory"
	"lotkeeper/internal/infrastructure/http/v1/dto"
)

// InventoryHandler handles physical counts and batch write-offs.
type InventoryHandler struct {
	*BaseHandler
	counts *inventory.Service
}

// NewInventoryHandler creates a new inventory count handler.
func NewInventoryHandler(base *BaseHandler, counts *inventory.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, counts: counts}
}

// Create handles POST /inventory/counts.
func (h *InventoryHandler) Create(c *gin.Context) {
	var req dto.CreateCountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.counts.Reconcile(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// Get handles GET /inventory/counts/:id.
func (h *InventoryHandler) Get(c *gin.Context) {
	countID, ok := h.ParamID(c)
	if !ok {
		return
	}
	doc, err := h.counts.Get(c.Request.Context(), countID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// List handles GET /inventory/counts.
func (h *InventoryHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.counts.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// DiscardBatch handles DELETE /batches/:id.
func (h *InventoryHandler) DiscardBatch(c *gin.Context) {
	batchID, ok := h.ParamID(c)
	if !ok {
		return
	}
	res, err := h.counts.DiscardBatch(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}
