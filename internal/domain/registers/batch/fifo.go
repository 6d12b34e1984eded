package batch

import (
	"sort"

	"lotkeeper/internal/core/types"
)

// sortFIFO orders batches by (AcquisitionDate, Sequence) ascending.
// The sort is stable and never looks at ids.
func sortFIFO(batches []*StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.AcquisitionDate.Equal(b.AcquisitionDate) {
			return a.AcquisitionDate.Before(b.AcquisitionDate)
		}
		return a.Sequence < b.Sequence
	})
}

func sumRemaining(batches []*StockBatch) types.Quantity {
	var total types.Quantity
	for _, b := range batches {
		if b.QtyRemaining.IsPositive() {
			total += b.QtyRemaining
		}
	}
	return total
}

// planAllocation walks batches (already in FIFO order) and returns the lots
// to take for qty plus the quantity that could not be covered.
// It does not modify the batches.
func planAllocation(batches []*StockBatch, qty types.Quantity) ([]Lot, types.Quantity) {
	var lots []Lot
	needed := qty
	for _, b := range batches {
		if !needed.IsPositive() {
			break
		}
		if !b.QtyRemaining.IsPositive() {
			continue
		}
		take := types.MinQuantity(needed, b.QtyRemaining)
		lots = append(lots, Lot{BatchID: b.ID, Quantity: take, UnitCost: b.UnitCost})
		needed -= take
	}
	return lots, needed
}

// planRelease restores qty into the lots allocations most recently drew
// from (highest ConsumeSeq first, newest lot first within one allocation),
// each up to what was taken from it. Lots never allocated from, such as one
// emptied by a purchase cancellation, receive nothing. Returns the lots and
// the quantity no batch could take back.
func planRelease(batches []*StockBatch, qty types.Quantity) ([]Lot, types.Quantity) {
	consumed := make([]*StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.Releasable().IsPositive() {
			consumed = append(consumed, b)
		}
	}
	sort.SliceStable(consumed, func(i, j int) bool {
		a, b := consumed[i], consumed[j]
		if a.ConsumeSeq != b.ConsumeSeq {
			return a.ConsumeSeq > b.ConsumeSeq
		}
		if !a.AcquisitionDate.Equal(b.AcquisitionDate) {
			return a.AcquisitionDate.After(b.AcquisitionDate)
		}
		return a.Sequence > b.Sequence
	})

	var lots []Lot
	left := qty
	for _, b := range consumed {
		if !left.IsPositive() {
			break
		}
		put := types.MinQuantity(left, b.Releasable())
		lots = append(lots, Lot{BatchID: b.ID, Quantity: put, UnitCost: b.UnitCost})
		left -= put
	}
	return lots, left
}

// nextConsumeSeq is one past the highest ConsumeSeq among batches.
func nextConsumeSeq(batches []*StockBatch) int64 {
	var top int64
	for _, b := range batches {
		if b.ConsumeSeq > top {
			top = b.ConsumeSeq
		}
	}
	return top + 1
}

// costOf sums quantity*unitCost over lots.
func costOf(lots []Lot) types.Money {
	total := types.Zero()
	for _, l := range lots {
		total = total.Add(l.Quantity.Mul(l.UnitCost))
	}
	return total
}
