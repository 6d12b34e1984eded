// Package batch provides the FIFO cost-lot ledger.
//
// Every received quantity becomes a StockBatch with its own unit cost. Sales
// consume batches oldest first so each sold unit is costed at what was actually
// paid for it. A batch that reaches zero stays in the ledger as history.
package batch

import (
	"context"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// StockBatch is one cost lot. Invariant: 0 <= QtyRemaining <= QtyOriginal.
type StockBatch struct {
	ID        id.ID `db:"id" json:"id"`
	ProductID id.ID `db:"product_id" json:"productId"`

	// SourceTransactionID links the lot to the expense entry that paid for it
	// (nil for donations, bonuses, adjustments and counts)
	SourceTransactionID *id.ID `db:"source_transaction_id" json:"sourceTransactionId,omitempty"`

	QtyOriginal  types.Quantity `db:"qty_original" json:"qtyOriginal"`
	QtyRemaining types.Quantity `db:"qty_remaining" json:"qtyRemaining"`
	UnitCost     types.Money    `db:"unit_cost" json:"unitCost"`

	AcquisitionDate time.Time  `db:"acquisition_date" json:"acquisitionDate"`
	ExpiryDate      *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// Sequence is the store-assigned insertion order; FIFO tie-break
	Sequence int64 `db:"seq" json:"sequence"`

	// QtyConsumed is what allocations took from the lot and no release has
	// put back yet. Withdrawals do not count.
	QtyConsumed types.Quantity `db:"qty_consumed" json:"qtyConsumed"`

	// ConsumeSeq orders lots of one product by their latest allocation;
	// zero for a lot never drawn from
	ConsumeSeq int64 `db:"consume_seq" json:"consumeSeq"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Value is QtyRemaining * UnitCost.
func (b *StockBatch) Value() types.Money {
	return b.QtyRemaining.Mul(b.UnitCost)
}

// Room is how much can be restored before hitting QtyOriginal.
func (b *StockBatch) Room() types.Quantity {
	return b.QtyOriginal - b.QtyRemaining
}

// Releasable is how much an unattributed release may put back: only what
// allocations took, and never past QtyOriginal.
func (b *StockBatch) Releasable() types.Quantity {
	return types.MinQuantity(b.Room(), b.QtyConsumed)
}

// NewBatch is the input of Service.CreateBatch.
type NewBatch struct {
	ProductID           id.ID
	SourceTransactionID *id.ID
	Quantity            types.Quantity
	UnitCost            types.Money
	AcquisitionDate     time.Time
	ExpiryDate          *time.Time
}

// Validate implements entity.Validatable interface.
func (n NewBatch) Validate(ctx context.Context) error {
	if id.IsNil(n.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if !n.Quantity.IsPositive() {
		return apperror.NewValidation("batch quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", n.Quantity.String())
	}
	if n.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost").
			WithDetail("value", n.UnitCost.String())
	}
	return nil
}

// Lot is a quantity taken from, or restored to, one batch.
type Lot struct {
	BatchID  id.ID          `json:"batchId"`
	Quantity types.Quantity `json:"quantity"`
	UnitCost types.Money    `json:"unitCost"`
}

// Allocation is the outcome of consuming stock for one product.
type Allocation struct {
	ProductID id.ID          `json:"productId"`
	Requested types.Quantity `json:"requested"`

	// Lots in FIFO order
	Lots []Lot `json:"lots"`

	// Shortfall is the part not covered by batches, costed at the fallback cost
	Shortfall     types.Quantity `json:"shortfall"`
	ShortfallCost types.Money    `json:"shortfallCost"`

	TotalCost types.Money `json:"totalCost"`

	// AverageUnitCost = TotalCost / Requested, rounded to 4 places
	AverageUnitCost types.Money `json:"averageUnitCost"`
}

// ReleaseResult reports where a restore landed.
type ReleaseResult struct {
	ProductID id.ID `json:"productId"`
	Restored  []Lot `json:"restored"`

	// Unplaced is quantity no batch had room for; it is logged as an anomaly
	Unplaced types.Quantity `json:"unplaced"`
}

// Total restored quantity.
func (r *ReleaseResult) Total() types.Quantity {
	var sum types.Quantity
	for _, l := range r.Restored {
		sum += l.Quantity
	}
	return sum
}
