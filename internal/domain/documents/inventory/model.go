// Package inventory provides the physical count document and its reconciler.
package inventory

import (
	"context"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// Count is a reconciled physical count.
type Count struct {
	entity.Document

	Note string `db:"note" json:"note,omitempty"`

	// Totals (calculated)
	TotalSurplus  types.Quantity `db:"total_surplus" json:"totalSurplus"`
	TotalShortage types.Quantity `db:"total_shortage" json:"totalShortage"`

	Lines []Line `db:"-" json:"lines"`
}

// Line compares the system quantity with what was counted.
type Line struct {
	ID        id.ID `db:"id" json:"id"`
	CountID   id.ID `db:"count_id" json:"-"`
	LineNo    int   `db:"line_no" json:"lineNo"`
	ProductID id.ID `db:"product_id" json:"productId"`

	BookQuantity    types.Quantity `db:"book_quantity" json:"bookQuantity"`
	CountedQuantity types.Quantity `db:"counted_quantity" json:"countedQuantity"`

	// Deviation = counted - book
	Deviation types.Quantity `db:"deviation" json:"deviation"`

	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// BatchID of the lot created for a surplus
	BatchID *id.ID `db:"batch_id" json:"batchId,omitempty"`
}

func (c *Count) recalculateTotals() {
	c.TotalSurplus, c.TotalShortage = 0, 0
	for _, l := range c.Lines {
		if l.Deviation > 0 {
			c.TotalSurplus += l.Deviation
		} else if l.Deviation < 0 {
			c.TotalShortage += -l.Deviation
		}
	}
}

// CountedLine is one product's counted quantity.
type CountedLine struct {
	ProductID id.ID          `json:"productId"`
	Counted   types.Quantity `json:"counted"`

	// UnitCost of the surplus lot; zero when omitted
	UnitCost *types.Money `json:"unitCost,omitempty"`
}

// Input is the input of Service.Reconcile.
type Input struct {
	Date  time.Time     `json:"date"`
	Note  string        `json:"note"`
	Lines []CountedLine `json:"lines"`
}

// Validate implements entity.Validatable interface.
func (in *Input) Validate(ctx context.Context) error {
	if len(in.Lines) == 0 {
		return apperror.NewValidation("count must have at least one line").WithDetail("field", "lines")
	}
	seen := make(map[id.ID]bool, len(in.Lines))
	for i, l := range in.Lines {
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation("product is required").WithDetail("line", i+1)
		}
		if seen[l.ProductID] {
			return apperror.NewValidation("product counted twice").
				WithDetail("line", i+1).
				WithDetail("product_id", l.ProductID.String())
		}
		seen[l.ProductID] = true
		if l.Counted.IsNegative() {
			return apperror.NewValidation("counted quantity cannot be negative").
				WithDetail("line", i+1).
				WithDetail("value", l.Counted.String())
		}
		if l.UnitCost != nil && l.UnitCost.IsNegative() {
			return apperror.NewValidation("unit cost cannot be negative").WithDetail("line", i+1)
		}
	}
	return nil
}

// ProductIDs returns every counted product.
func (in *Input) ProductIDs() []id.ID {
	out := make([]id.ID, len(in.Lines))
	for i, l := range in.Lines {
		out[i] = l.ProductID
	}
	return out
}
