package purchase

import (
	"context"
	"strings"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// Kind of stock entry.
type Kind string

const (
	KindPurchase   Kind = "PURCHASE"
	KindDonation   Kind = "DONATION"
	KindBonus      Kind = "BONUS"
	KindAdjustment Kind = "ADJUSTMENT"
)

// Label used in movement reasons and ledger descriptions.
func (k Kind) Label() string {
	switch k {
	case KindPurchase:
		return "Purchase"
	case KindDonation:
		return "Donation"
	case KindBonus:
		return "Bonus"
	default:
		return "Adjustment"
	}
}

// Line is one received product.
type Line struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
	UnitCost  types.Money    `json:"unitCost"`

	// RetailPrice overrides the margin-derived retail price
	RetailPrice *types.Money `json:"retailPrice,omitempty"`
	ExpiryDate  *time.Time   `json:"expiryDate,omitempty"`
}

// Header is shared by every entry kind.
type Header struct {
	SupplierName string    `json:"supplierName"`
	Date         time.Time `json:"date"`
	Lines        []Line    `json:"lines"`
}

// Entry is a stock entry decided at the boundary: exactly one of Purchase,
// Donation, Bonus or Adjustment.
type Entry interface {
	Kind() Kind
	header() *Header
	validate(ctx context.Context) error
}

// Purchase is a paid or credit acquisition; it creates expense entries.
type Purchase struct {
	Header

	// Total of the invoice; Σ qty*unitCost when zero
	Total types.Money `json:"total"`

	// Paid purchases post one PAID expense; otherwise entries are PENDING
	Paid bool `json:"paid"`

	// DueDate of the first installment (credit only)
	DueDate *time.Time `json:"dueDate,omitempty"`

	// Installments > 1 splits a credit purchase; ignored when Paid
	Installments int `json:"installments"`
	IntervalDays int `json:"intervalDays"`
}

// Donation brings stock in at the given cost with no financial entry.
type Donation struct{ Header }

// Bonus is supplier merchandise received free or at promotional cost.
type Bonus struct{ Header }

// Adjustment is a manual correction entry.
type Adjustment struct{ Header }

func (Purchase) Kind() Kind   { return KindPurchase }
func (Donation) Kind() Kind   { return KindDonation }
func (Bonus) Kind() Kind      { return KindBonus }
func (Adjustment) Kind() Kind { return KindAdjustment }

func (p *Purchase) header() *Header   { return &p.Header }
func (d *Donation) header() *Header   { return &d.Header }
func (b *Bonus) header() *Header      { return &b.Header }
func (a *Adjustment) header() *Header { return &a.Header }

// LinesTotal is Σ qty*unitCost, rounded to cents.
func (h *Header) LinesTotal() types.Money {
	total := types.Zero()
	for _, l := range h.Lines {
		total = total.Add(l.Quantity.Mul(l.UnitCost))
	}
	return types.RoundMoney(total)
}

func (h *Header) validate(ctx context.Context, supplierRequired bool) error {
	if supplierRequired && strings.TrimSpace(h.SupplierName) == "" {
		return apperror.NewValidation("supplier name is required").WithDetail("field", "supplierName")
	}
	if len(h.Lines) == 0 {
		return apperror.NewValidation("entry must have at least one line").WithDetail("field", "lines")
	}
	for i, l := range h.Lines {
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation("product is required").WithDetail("line", i+1)
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("line", i+1).
				WithDetail("value", l.Quantity.String())
		}
		if l.UnitCost.IsNegative() {
			return apperror.NewValidation("unit cost cannot be negative").WithDetail("line", i+1)
		}
		if l.RetailPrice != nil && l.RetailPrice.IsNegative() {
			return apperror.NewValidation("retail price cannot be negative").WithDetail("line", i+1)
		}
	}
	return nil
}

func (p *Purchase) validate(ctx context.Context) error {
	if err := p.Header.validate(ctx, true); err != nil {
		return err
	}
	if p.Total.IsNegative() {
		return apperror.NewValidation("total cannot be negative").WithDetail("field", "total")
	}
	if p.Installments < 0 {
		return apperror.NewValidation("installments cannot be negative").WithDetail("field", "installments")
	}
	if p.IntervalDays < 0 {
		return apperror.NewValidation("interval cannot be negative").WithDetail("field", "intervalDays")
	}
	return nil
}

func (d *Donation) validate(ctx context.Context) error   { return d.Header.validate(ctx, true) }
func (b *Bonus) validate(ctx context.Context) error      { return b.Header.validate(ctx, true) }
func (a *Adjustment) validate(ctx context.Context) error { return a.Header.validate(ctx, false) }

var (
	_ Entry = (*Purchase)(nil)
	_ Entry = (*Donation)(nil)
	_ Entry = (*Bonus)(nil)
	_ Entry = (*Adjustment)(nil)
)
