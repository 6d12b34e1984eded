package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

var t0 = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func testBatch(seq int64, acquired time.Time, original, remaining int64, cost string) *StockBatch {
	return &StockBatch{
		ID:              id.New(),
		QtyOriginal:     types.NewQuantity(original),
		QtyRemaining:    types.NewQuantity(remaining),
		UnitCost:        types.MustMoney(cost),
		AcquisitionDate: acquired,
		Sequence:        seq,
	}
}

func TestSortFIFO(t *testing.T) {
	t.Run("orders by acquisition date", func(t *testing.T) {
		newer := testBatch(1, t0.Add(time.Hour), 5, 5, "6")
		older := testBatch(2, t0, 10, 10, "5")
		batches := []*StockBatch{newer, older}

		sortFIFO(batches)

		assert.Equal(t, older.ID, batches[0].ID)
	})

	t.Run("ties broken by insertion sequence, not id", func(t *testing.T) {
		second := testBatch(2, t0, 5, 5, "6")
		first := testBatch(1, t0, 5, 5, "5")
		// force ids in the opposite order of sequence
		first.ID, second.ID = second.ID, first.ID
		batches := []*StockBatch{second, first}

		sortFIFO(batches)

		assert.Equal(t, int64(1), batches[0].Sequence)
		assert.Equal(t, int64(2), batches[1].Sequence)
	})
}

func TestPlanAllocation(t *testing.T) {
	t.Run("request within oldest batch comes entirely from it", func(t *testing.T) {
		b1 := testBatch(1, t0, 10, 10, "5")
		b2 := testBatch(2, t0.Add(time.Hour), 5, 5, "6")

		lots, short := planAllocation([]*StockBatch{b1, b2}, types.NewQuantity(7))

		require.Len(t, lots, 1)
		assert.Equal(t, b1.ID, lots[0].BatchID)
		assert.Equal(t, types.NewQuantity(7), lots[0].Quantity)
		assert.True(t, short.IsZero())
	})

	t.Run("spans batches and skips empty ones", func(t *testing.T) {
		empty := testBatch(1, t0, 4, 0, "1")
		b1 := testBatch(2, t0.Add(time.Minute), 10, 10, "5")
		b2 := testBatch(3, t0.Add(time.Hour), 5, 5, "6")

		lots, short := planAllocation([]*StockBatch{empty, b1, b2}, types.NewQuantity(12))

		require.Len(t, lots, 2)
		assert.Equal(t, types.NewQuantity(10), lots[0].Quantity)
		assert.Equal(t, types.NewQuantity(2), lots[1].Quantity)
		assert.True(t, short.IsZero())
		assert.True(t, costOf(lots).Equal(types.MustMoney("62")))
	})

	t.Run("reports shortfall and leaves input untouched", func(t *testing.T) {
		b1 := testBatch(1, t0, 3, 3, "5")

		lots, short := planAllocation([]*StockBatch{b1}, types.NewQuantity(5))

		require.Len(t, lots, 1)
		assert.Equal(t, types.NewQuantity(2), short)
		assert.Equal(t, types.NewQuantity(3), b1.QtyRemaining)
	})

	t.Run("fractional quantities", func(t *testing.T) {
		b1 := testBatch(1, t0, 1, 1, "10")
		b1.QtyRemaining = types.MustQuantity("0.25")

		lots, short := planAllocation([]*StockBatch{b1}, types.MustQuantity("0.4"))

		require.Len(t, lots, 1)
		assert.Equal(t, types.MustQuantity("0.25"), lots[0].Quantity)
		assert.Equal(t, types.MustQuantity("0.15"), short)
	})
}

func consumed(b *StockBatch, qty int64, seq int64) *StockBatch {
	b.QtyConsumed = types.NewQuantity(qty)
	b.ConsumeSeq = seq
	return b
}

func TestPlanRelease(t *testing.T) {
	t.Run("most recently consumed lot refilled first", func(t *testing.T) {
		b1 := consumed(testBatch(1, t0, 10, 0, "5"), 10, 1)
		b2 := consumed(testBatch(2, t0.Add(time.Hour), 5, 3, "6"), 2, 2)

		lots, unplaced := planRelease([]*StockBatch{b1, b2}, types.NewQuantity(12))

		require.Len(t, lots, 2)
		assert.Equal(t, b2.ID, lots[0].BatchID)
		assert.Equal(t, types.NewQuantity(2), lots[0].Quantity)
		assert.Equal(t, b1.ID, lots[1].BatchID)
		assert.Equal(t, types.NewQuantity(10), lots[1].Quantity)
		assert.True(t, unplaced.IsZero())
	})

	t.Run("consumption order wins over acquisition order", func(t *testing.T) {
		older := consumed(testBatch(1, t0, 10, 7, "5"), 3, 5)
		newer := consumed(testBatch(2, t0.Add(time.Hour), 10, 8, "6"), 2, 4)

		lots, unplaced := planRelease([]*StockBatch{older, newer}, types.NewQuantity(3))

		require.Len(t, lots, 1)
		assert.Equal(t, older.ID, lots[0].BatchID)
		assert.True(t, unplaced.IsZero())
	})

	t.Run("lots never allocated from are skipped", func(t *testing.T) {
		older := consumed(testBatch(1, t0, 10, 6, "5"), 4, 1)
		// emptied by a purchase cancellation, not by a sale
		withdrawn := testBatch(2, t0.Add(time.Hour), 5, 0, "6")

		lots, unplaced := planRelease([]*StockBatch{older, withdrawn}, types.NewQuantity(4))

		require.Len(t, lots, 1)
		assert.Equal(t, older.ID, lots[0].BatchID)
		assert.Equal(t, types.NewQuantity(4), lots[0].Quantity)
		assert.True(t, unplaced.IsZero())
	})

	t.Run("never exceeds consumed quantity", func(t *testing.T) {
		b1 := consumed(testBatch(1, t0, 10, 9, "5"), 1, 1)

		lots, unplaced := planRelease([]*StockBatch{b1}, types.NewQuantity(4))

		require.Len(t, lots, 1)
		assert.Equal(t, types.NewQuantity(1), lots[0].Quantity)
		assert.Equal(t, types.NewQuantity(3), unplaced)
	})

	t.Run("no batches leaves everything unplaced", func(t *testing.T) {
		lots, unplaced := planRelease(nil, types.NewQuantity(2))

		assert.Empty(t, lots)
		assert.Equal(t, types.NewQuantity(2), unplaced)
	})
}
