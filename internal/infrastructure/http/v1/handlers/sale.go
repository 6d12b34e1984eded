package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lotkeeper/internal/domain/documents/reversal"
	"lotkeeper/internal/domain/documents/sale"
	"lotkeeper/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles HTTP requests for sales and their reversals.
type SaleHandler struct {
	*BaseHandler
	sales     *sale.Service
	reversals *reversal.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, sales *sale.Service, reversals *reversal.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, sales: sales, reversals: reversals}
}

// Create handles POST /sales.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.sales.Complete(c.Request.Context(), req.ToCheckout())
	if res == nil {
		h.Error(c, err)
		return
	}
	h.Result(c, http.StatusCreated, res, err)
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParamID(c)
	if !ok {
		return
	}
	doc, err := h.sales.Get(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.sales.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Void handles POST /sales/:id/void.
func (h *SaleHandler) Void(c *gin.Context) {
	saleID, ok := h.ParamID(c)
	if !ok {
		return
	}
	res, err := h.reversals.VoidSale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// Return handles POST /sales/:id/returns.
func (h *SaleHandler) Return(c *gin.Context) {
	saleID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.ReturnItemsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := h.reversals.ReturnItems(c.Request.Context(), saleID, req.ToLines())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// Settle handles POST /sales/:id/settle: the deferred receivable is paid.
func (h *SaleHandler) Settle(c *gin.Context) {
	saleID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.SettleRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	tx, err := h.sales.SettleDeferred(c.Request.Context(), saleID, req.PaidAtOrNow())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, tx)
}
