package handlers

import (
	"github.com/gin-gonic/gin"

	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/infrastructure/http/v1/dto"
)

// LedgerHandler exposes financial entries.
type LedgerHandler struct {
	*BaseHandler
	ledger *finance.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, ledger *finance.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, ledger: ledger}
}

// List handles GET /ledger.
func (h *LedgerHandler) List(c *gin.Context) {
	var q dto.LedgerQuery
	if !h.BindQuery(c, &q) {
		return
	}
	items, err := h.ledger.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": orEmpty(items)})
}

// Summary handles GET /ledger/summary.
func (h *LedgerHandler) Summary(c *gin.Context) {
	var q dto.LedgerQuery
	if !h.BindQuery(c, &q) {
		return
	}
	sum, err := h.ledger.Summarize(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sum)
}

// Settle handles POST /ledger/:id/settle.
func (h *LedgerHandler) Settle(c *gin.Context) {
	txID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.SettleRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	tx, err := h.ledger.Settle(c.Request.Context(), txID, req.PaidAtOrNow())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, tx)
}
