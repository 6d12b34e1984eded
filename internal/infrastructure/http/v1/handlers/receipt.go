package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/domain/documents/reversal"
	"lotkeeper/internal/infrastructure/http/v1/dto"
)

// ReceiptHandler handles HTTP requests for stock entries.
type ReceiptHandler struct {
	*BaseHandler
	purchases *purchase.Service
	reversals *reversal.Service
}

// NewReceiptHandler creates a new receipt handler.
func NewReceiptHandler(base *BaseHandler, purchases *purchase.Service, reversals *reversal.Service) *ReceiptHandler {
	return &ReceiptHandler{BaseHandler: base, purchases: purchases, reversals: reversals}
}

// Create handles POST /receipts.
func (h *ReceiptHandler) Create(c *gin.Context) {
	var req dto.CreateReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := req.ToEntry()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.purchases.Receive(c.Request.Context(), entry)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, res)
}

// Get handles GET /receipts/:id.
func (h *ReceiptHandler) Get(c *gin.Context) {
	receiptID, ok := h.ParamID(c)
	if !ok {
		return
	}
	doc, err := h.purchases.Get(c.Request.Context(), receiptID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// List handles GET /receipts.
func (h *ReceiptHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.purchases.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Cancel handles POST /receipts/:id/cancel.
func (h *ReceiptHandler) Cancel(c *gin.Context) {
	receiptID, ok := h.ParamID(c)
	if !ok {
		return
	}
	res, err := h.reversals.CancelPurchase(c.Request.Context(), receiptID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Respond(c, http.StatusOK, res)
}
