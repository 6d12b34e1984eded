package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/app/apptest"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/documents/sale"
)

func TestSaleMargin_UsesCostAtSaleTime(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Rice", "5", "8")
	env.Lot(t, p.ID, 10, "5", apptest.Day0)
	env.Lot(t, p.ID, 5, "6", apptest.Day0.AddDate(0, 0, 1))

	res, err := env.Sales.Complete(ctx, sale.Checkout{
		Lines:         []sale.CartLine{{ProductID: p.ID, Quantity: types.NewQuantity(12), UnitPrice: types.MustMoney("8")}},
		PaymentMethod: sale.PaymentCash,
	})
	require.NoError(t, err)

	// a later, pricier lot must not change the historical margin
	env.Lot(t, p.ID, 5, "9", apptest.Day0.AddDate(0, 0, 5))

	rep, err := env.Reports.SaleMargin(ctx, res.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "96.00", rep.Revenue.StringFixed(2))
	assert.Equal(t, "62.00", rep.COGS.StringFixed(2))
	assert.Equal(t, "34.00", rep.Margin.StringFixed(2))
	assert.Equal(t, "35.42", rep.MarginPercent.StringFixed(2))
	require.Len(t, rep.Lines, 1)
	assert.Equal(t, "5.1667", rep.Lines[0].UnitCost.StringFixed(4))
}

func TestMarginSummary_SkipsCanceledAndFiltersByDate(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Tea", "1", "3")
	env.Lot(t, p.ID, 100, "1", apptest.Day0)

	sell := func(qty int64, at time.Time) *sale.Sale {
		res, err := env.Sales.Complete(ctx, sale.Checkout{
			Lines:         []sale.CartLine{{ProductID: p.ID, Quantity: types.NewQuantity(qty), UnitPrice: types.MustMoney("3")}},
			PaymentMethod: sale.PaymentCash,
			Date:          at,
		})
		require.NoError(t, err)
		return res.Sale
	}
	sell(2, apptest.Day0.Add(time.Hour))
	voided := sell(5, apptest.Day0.Add(2*time.Hour))
	sell(4, apptest.Day0.AddDate(0, 0, 10))

	_, err := env.Reversals.VoidSale(ctx, voided.ID)
	require.NoError(t, err)

	all, err := env.Reports.MarginSummary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Sales)
	assert.Equal(t, "18.00", all.Revenue.StringFixed(2))
	assert.Equal(t, "6.00", all.COGS.StringFixed(2))
	assert.Equal(t, "12.00", all.Margin.StringFixed(2))

	to := apptest.Day0.AddDate(0, 0, 1)
	firstDay, err := env.Reports.MarginSummary(ctx, nil, &to)
	require.NoError(t, err)
	assert.Equal(t, 1, firstDay.Sales)
	assert.Equal(t, "6.00", firstDay.Revenue.StringFixed(2))
}

func TestValuation(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	batched := env.Product(t, "Rice", "5", "8")
	env.Lot(t, batched.ID, 10, "5", apptest.Day0)
	env.Lot(t, batched.ID, 5, "6", apptest.Day0.AddDate(0, 0, 1))
	legacy := env.Product(t, "Legacy", "2.50", "4")
	require.NoError(t, env.Stores.Products.SetQuantity(ctx, legacy.ID, types.NewQuantity(4)))

	rep, err := env.Reports.Valuation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "90.00", rep.TotalValue.StringFixed(2))

	byName := map[string]int{}
	for i, it := range rep.Items {
		byName[it.ProductName] = i
	}
	rice := rep.Items[byName["Rice"]]
	assert.True(t, rice.HasBatches)
	assert.Equal(t, "80.00", rice.Value.StringFixed(2))
	assert.Equal(t, "5.3333", rice.AverageCost.StringFixed(4))

	old := rep.Items[byName["Legacy"]]
	assert.False(t, old.HasBatches)
	assert.Equal(t, "10.00", old.Value.StringFixed(2))

	avg, err := env.Batches.AverageCost(ctx, batched.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.3333", avg.StringFixed(4))
}

func TestReconcile_DetectsDrift(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Rice", "5", "8")
	env.Lot(t, p.ID, 10, "5", apptest.Day0)

	rep, err := env.Reports.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, rep.Consistent)

	// projection edited behind the engine's back
	require.NoError(t, env.Stores.Products.SetQuantity(ctx, p.ID, types.NewQuantity(9)))

	rep, err = env.Reports.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, rep.Consistent)
	assert.Equal(t, types.NewQuantity(9), rep.Projection)
	assert.Equal(t, types.NewQuantity(10), rep.Replay)
	assert.Equal(t, types.NewQuantity(10), rep.BatchRemaining)
}
