package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/domain/registers/stock"
	"lotkeeper/internal/domain/reports"
)

// StockHandler exposes a product's batches, movements and reconciliation.
type StockHandler struct {
	*BaseHandler
	batches *batch.Service
	stock   *stock.Service
	reports *reports.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, batches *batch.Service, st *stock.Service, rep *reports.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, batches: batches, stock: st, reports: rep}
}

// MovementQuery filters GET /products/:id/movements.
type MovementQuery struct {
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
	Limit  int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int        `form:"offset" binding:"omitempty,min=0"`
}

// Batches handles GET /products/:id/batches in FIFO order.
func (h *StockHandler) Batches(c *gin.Context) {
	productID, ok := h.ParamID(c)
	if !ok {
		return
	}
	items, err := h.batches.List(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": orEmpty(items)})
}

// Movements handles GET /products/:id/movements, newest first.
func (h *StockHandler) Movements(c *gin.Context) {
	productID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var q MovementQuery
	if !h.BindQuery(c, &q) {
		return
	}
	items, err := h.stock.History(c.Request.Context(), stock.MovementFilter{
		ProductID: id.Ptr(productID),
		FromDate:  q.From,
		ToDate:    q.To,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": orEmpty(items)})
}

// Reconciliation handles GET /products/:id/reconciliation.
func (h *StockHandler) Reconciliation(c *gin.Context) {
	productID, ok := h.ParamID(c)
	if !ok {
		return
	}
	rep, err := h.reports.Reconcile(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rep)
}
