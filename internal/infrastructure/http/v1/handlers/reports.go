package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"lotkeeper/internal/domain/reports"
)

// ReportsHandler serves read-only projections.
type ReportsHandler struct {
	*BaseHandler
	reports *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, rep *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, reports: rep}
}

// PeriodQuery bounds a report window (inclusive from, exclusive to).
type PeriodQuery struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

// Valuation handles GET /reports/valuation.
func (h *ReportsHandler) Valuation(c *gin.Context) {
	v, err := h.reports.Valuation(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, v)
}

// Margins handles GET /reports/margins.
func (h *ReportsHandler) Margins(c *gin.Context) {
	var q PeriodQuery
	if !h.BindQuery(c, &q) {
		return
	}
	sum, err := h.reports.MarginSummary(c.Request.Context(), q.From, q.To)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sum)
}

// SaleMargin handles GET /reports/sales/:id/margin.
func (h *ReportsHandler) SaleMargin(c *gin.Context) {
	saleID, ok := h.ParamID(c)
	if !ok {
		return
	}
	m, err := h.reports.SaleMargin(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}
