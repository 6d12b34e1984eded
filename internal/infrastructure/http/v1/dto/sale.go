package dto

import (
	"time"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/documents/reversal"
	"lotkeeper/internal/domain/documents/sale"
)

// SaleLineRequest is one finalized cart line.
type SaleLineRequest struct {
	ProductID id.ID          `json:"productId" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	UnitPrice types.Money    `json:"unitPrice"`
}

// CreateSaleRequest is the body of POST /sales.
type CreateSaleRequest struct {
	Lines         []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
	PaymentMethod string            `json:"paymentMethod" binding:"required"`
	CustomerID    *id.ID            `json:"customerId"`
	Date          *time.Time        `json:"date"`
}

// ToCheckout maps the request to the reconciler input.
func (r CreateSaleRequest) ToCheckout() sale.Checkout {
	co := sale.Checkout{
		Lines:         make([]sale.CartLine, len(r.Lines)),
		PaymentMethod: sale.PaymentMethod(r.PaymentMethod),
		CustomerID:    r.CustomerID,
	}
	for i, l := range r.Lines {
		co.Lines[i] = sale.CartLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	if r.Date != nil {
		co.Date = *r.Date
	}
	return co
}

// ReturnItemsRequest is the body of POST /sales/:id/returns.
type ReturnItemsRequest struct {
	Lines []ReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ReturnLineRequest is one returned quantity.
type ReturnLineRequest struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity" binding:"required"`
}

// ToLines maps the request to reversal lines.
func (r ReturnItemsRequest) ToLines() []reversal.ReturnLine {
	out := make([]reversal.ReturnLine, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = reversal.ReturnLine{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	return out
}

// SettleRequest is the body of settle endpoints; paidAt defaults to now.
type SettleRequest struct {
	PaidAt *time.Time `json:"paidAt"`
}

// PaidAtOrNow returns the payment time.
func (r SettleRequest) PaidAtOrNow() time.Time {
	if r.PaidAt != nil {
		return *r.PaidAt
	}
	return time.Now().UTC()
}
