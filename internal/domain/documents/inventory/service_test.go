package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/app/apptest"
	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/documents/inventory"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/registers/stock"
)

func TestReconcile_SurplusShortageAndMatch(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)

	short := env.Product(t, "Rice", "5", "8")
	shortLot := env.Lot(t, short.ID, 10, "5", apptest.Day0)
	surplus := env.Product(t, "Beans", "2", "4")
	env.Lot(t, surplus.ID, 4, "2", apptest.Day0)
	exact := env.Product(t, "Salt", "1", "2")
	env.Lot(t, exact.ID, 3, "1", apptest.Day0)

	cost := types.MustMoney("2.50")
	doc, err := env.Counts.Reconcile(ctx, inventory.Input{
		Date: apptest.Day0.AddDate(0, 0, 7),
		Note: "weekly count",
		Lines: []inventory.CountedLine{
			{ProductID: short.ID, Counted: types.NewQuantity(7)},
			{ProductID: surplus.ID, Counted: types.NewQuantity(6), UnitCost: &cost},
			{ProductID: exact.ID, Counted: types.NewQuantity(3)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-2026-00001", doc.Number)
	assert.Equal(t, types.NewQuantity(2), doc.TotalSurplus)
	assert.Equal(t, types.NewQuantity(3), doc.TotalShortage)
	require.Len(t, doc.Lines, 3)

	assert.Equal(t, types.NewQuantity(10), doc.Lines[0].BookQuantity)
	assert.Equal(t, types.NewQuantity(-3), doc.Lines[0].Deviation)
	assert.Nil(t, doc.Lines[0].BatchID)
	assert.Equal(t, types.NewQuantity(7), env.OnHand(t, short.ID))
	assert.Equal(t, types.NewQuantity(7), env.Remaining(t, shortLot.ID))

	require.NotNil(t, doc.Lines[1].BatchID)
	assert.Equal(t, types.NewQuantity(2), env.Remaining(t, *doc.Lines[1].BatchID))
	assert.Equal(t, types.NewQuantity(6), env.OnHand(t, surplus.ID))
	lots, err := env.Batches.List(ctx, surplus.ID)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "2.5000", lots[1].UnitCost.StringFixed(4))

	assert.True(t, doc.Lines[2].Deviation.IsZero())
	assert.Equal(t, types.NewQuantity(3), env.OnHand(t, exact.ID))

	history, err := env.Stock.History(ctx, stock.MovementFilter{ProductID: id.Ptr(short.ID)})
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, entity.RecordTypeExit, history[0].RecordType)
	assert.Equal(t, stock.ReasonInventoryCount, history[0].Reason)
	assert.Equal(t, types.NewQuantity(3), history[0].Quantity)

	exactHistory, err := env.Stock.History(ctx, stock.MovementFilter{ProductID: id.Ptr(exact.ID)})
	require.NoError(t, err)
	assert.Len(t, exactHistory, 1, "matching count writes no movement")

	saved, err := env.Counts.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "weekly count", saved.Note)
	assert.Len(t, saved.Lines, 3)

	assert.Contains(t, env.Store.Outbox().Types(), events.TypeCountReconciled)
	env.RequireConsistent(t, short.ID, surplus.ID, exact.ID)
}

func TestReconcile_SurplusWithoutCostIsFree(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Found box", "3", "5")

	doc, err := env.Counts.Reconcile(ctx, inventory.Input{Lines: []inventory.CountedLine{
		{ProductID: p.ID, Counted: types.NewQuantity(4)},
	}})
	require.NoError(t, err)
	require.NotNil(t, doc.Lines[0].BatchID)

	lots, err := env.Batches.List(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.True(t, lots[0].UnitCost.IsZero())
	assert.Equal(t, types.NewQuantity(4), env.OnHand(t, p.ID))
}

func TestReconcile_ShortageBeyondBatchesIsBestEffort(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Legacy", "1", "2")
	// stock that predates the batch ledger
	require.NoError(t, env.Stores.Products.SetQuantity(ctx, p.ID, types.NewQuantity(5)))

	_, err := env.Counts.Reconcile(ctx, inventory.Input{Lines: []inventory.CountedLine{
		{ProductID: p.ID, Counted: types.NewQuantity(1)},
	}})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(1), env.OnHand(t, p.ID))
}

func TestReconcile_Validation(t *testing.T) {
	env := apptest.New(t)
	p := env.Product(t, "Rice", "5", "8")

	tests := []struct {
		name string
		in   inventory.Input
	}{
		{"no lines", inventory.Input{}},
		{"duplicate product", inventory.Input{Lines: []inventory.CountedLine{
			{ProductID: p.ID, Counted: 1},
			{ProductID: p.ID, Counted: 2},
		}}},
		{"negative count", inventory.Input{Lines: []inventory.CountedLine{
			{ProductID: p.ID, Counted: types.NewQuantity(-1)},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Counts.Reconcile(context.Background(), tt.in)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}
}

func TestReconcile_UnknownProductRollsBack(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Rice", "5", "8")
	env.Lot(t, p.ID, 10, "5", apptest.Day0)

	_, err := env.Counts.Reconcile(ctx, inventory.Input{Lines: []inventory.CountedLine{
		{ProductID: p.ID, Counted: types.NewQuantity(2)},
		{ProductID: id.New(), Counted: types.NewQuantity(2)},
	}})
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, types.NewQuantity(10), env.OnHand(t, p.ID))
	env.RequireConsistent(t, p.ID)
}
