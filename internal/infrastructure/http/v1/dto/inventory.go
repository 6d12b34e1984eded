package dto

import (
	"time"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/documents/inventory"
)

// CountLineRequest is one counted product.
type CountLineRequest struct {
	ProductID id.ID          `json:"productId" binding:"required"`
	Counted   types.Quantity `json:"counted"`
	UnitCost  *types.Money   `json:"unitCost"`
}

// CreateCountRequest is the body of POST /inventory/counts.
type CreateCountRequest struct {
	Date  *time.Time         `json:"date"`
	Note  string             `json:"note"`
	Lines []CountLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToInput maps the request to the count input.
func (r CreateCountRequest) ToInput() inventory.Input {
	in := inventory.Input{Note: r.Note, Lines: make([]inventory.CountedLine, len(r.Lines))}
	if r.Date != nil {
		in.Date = *r.Date
	}
	for i, l := range r.Lines {
		in.Lines[i] = inventory.CountedLine{ProductID: l.ProductID, Counted: l.Counted, UnitCost: l.UnitCost}
	}
	return in
}
