// Package sale provides the sale document and its reconciler.
package sale

import (
	"context"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// PaymentMethod of a sale.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
	PaymentPix  PaymentMethod = "PIX"

	// PaymentDeferred ("fiado") is settled later against customer credit.
	PaymentDeferred PaymentMethod = "FIADO"
)

// IsValid reports whether m is a known method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentPix, PaymentDeferred:
		return true
	}
	return false
}

// IsDeferred reports whether m creates a receivable instead of cash.
func (m PaymentMethod) IsDeferred() bool { return m == PaymentDeferred }

// Status of a sale.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

// Item is one sale line. UnitCost is the FIFO cost captured at sale time and
// never changes afterwards.
type Item struct {
	ID        id.ID          `db:"id" json:"id"`
	SaleID    id.ID          `db:"sale_id" json:"-"`
	LineNo    int            `db:"line_no" json:"lineNo"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	UnitCost  types.Money    `db:"unit_cost" json:"unitCostAtSaleTime"`
	Subtotal  types.Money    `db:"subtotal" json:"subtotal"`
}

// Allocation records which batch a sale consumed, so reversals restore exactly it.
type Allocation struct {
	ID        id.ID          `db:"id" json:"id"`
	SaleID    id.ID          `db:"sale_id" json:"-"`
	Seq       int            `db:"seq" json:"seq"`
	ProductID id.ID          `db:"product_id" json:"productId"`
	BatchID   id.ID          `db:"batch_id" json:"batchId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitCost  types.Money    `db:"unit_cost" json:"unitCost"`
}

// Sale is a completed (or canceled) sale document.
type Sale struct {
	entity.Document

	CustomerID    *id.ID        `db:"customer_id" json:"customerId,omitempty"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`
	Status        Status        `db:"status" json:"status"`
	Total         types.Money   `db:"total" json:"total"`
	CanceledAt    *time.Time    `db:"canceled_at" json:"canceledAt,omitempty"`

	Items       []Item       `db:"-" json:"items"`
	Allocations []Allocation `db:"-" json:"allocations,omitempty"`
}

// IsCanceled reports whether the sale was voided or fully returned.
func (s *Sale) IsCanceled() bool { return s.Status == StatusCanceled }

// Recalculate refreshes subtotals and the total.
func (s *Sale) Recalculate() {
	total := types.Zero()
	for i := range s.Items {
		it := &s.Items[i]
		it.Subtotal = types.RoundMoney(it.Quantity.Mul(it.UnitPrice))
		total = total.Add(it.Subtotal)
	}
	s.Total = types.RoundMoney(total)
}

// COGS is Σ quantity * unitCostAtSaleTime over the current items.
func (s *Sale) COGS() types.Money {
	total := types.Zero()
	for _, it := range s.Items {
		total = total.Add(it.Quantity.Mul(it.UnitCost))
	}
	return types.RoundMoney(total)
}

// ItemByID returns the line with itemID.
func (s *Sale) ItemByID(itemID id.ID) (*Item, bool) {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return &s.Items[i], true
		}
	}
	return nil, false
}

// CartLine is one finalized cart entry (kits already expanded).
type CartLine struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`
}

// Checkout is the input of Service.Complete.
type Checkout struct {
	Lines         []CartLine    `json:"lines"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CustomerID    *id.ID        `json:"customerId,omitempty"`

	// Date of the sale; now when zero
	Date time.Time `json:"date"`
}

// Validate implements entity.Validatable interface.
func (c *Checkout) Validate(ctx context.Context) error {
	if len(c.Lines) == 0 {
		return apperror.NewValidation("sale must have at least one line").WithDetail("field", "lines")
	}
	if !c.PaymentMethod.IsValid() {
		return apperror.NewValidation("invalid payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(c.PaymentMethod))
	}
	if c.PaymentMethod.IsDeferred() && (c.CustomerID == nil || id.IsNil(*c.CustomerID)) {
		return apperror.NewValidation("deferred sale requires a customer").WithDetail("field", "customerId")
	}
	for i, l := range c.Lines {
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation("product is required").WithDetail("line", i+1)
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("line", i+1).
				WithDetail("value", l.Quantity.String())
		}
		if l.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").WithDetail("line", i+1)
		}
	}
	return nil
}

// demand is the total quantity per product, in first-appearance order.
type demand struct {
	ProductID id.ID
	Quantity  types.Quantity
}

func (c *Checkout) demand() []demand {
	var out []demand
	index := make(map[id.ID]int)
	for _, l := range c.Lines {
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, demand{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

// ProductIDs returns every product referenced by the cart.
func (c *Checkout) ProductIDs() []id.ID {
	ids := make([]id.ID, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ProductID
	}
	return ids
}
