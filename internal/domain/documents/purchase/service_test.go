package purchase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/app"
	"lotkeeper/internal/app/apptest"
	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/finance"
)

func line(productID id.ID, qty int64, cost string) purchase.Line {
	return purchase.Line{ProductID: productID, Quantity: types.NewQuantity(qty), UnitCost: types.MustMoney(cost)}
}

func TestReceive_CreditPurchaseInInstallments(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Beans 1kg", "0", "3.50")

	res, err := env.Purchases.Receive(ctx, &purchase.Purchase{
		Header: purchase.Header{
			SupplierName: "  Acme Foods ",
			Date:         apptest.Day0,
			Lines:        []purchase.Line{line(p.ID, 100, "2.00")},
		},
		Installments: 2,
	})
	require.NoError(t, err)

	doc := res.Receipt
	assert.Equal(t, purchase.KindPurchase, doc.Kind)
	assert.Equal(t, purchase.StatusReceived, doc.Status)
	assert.Equal(t, "R-2026-00001", doc.Number)
	assert.Equal(t, "Acme Foods", doc.SupplierName)
	assert.True(t, res.SupplierCreated)
	assert.Equal(t, "200.00", doc.Total.StringFixed(2))

	require.Len(t, res.Transactions, 2)
	for i, tx := range res.Transactions {
		assert.Equal(t, finance.TypeExpense, tx.Type)
		assert.Equal(t, finance.StatusPending, tx.Status)
		assert.Equal(t, "100.00", tx.Amount.StringFixed(2))
		require.NotNil(t, tx.GroupID)
		assert.Equal(t, doc.ID, *tx.GroupID)
		assert.Equal(t, i+1, tx.InstallmentNo)
		assert.Equal(t, 2, tx.InstallmentCount)
		require.NotNil(t, tx.DueDate)
	}
	assert.True(t, res.Transactions[0].DueDate.Equal(apptest.Day0.AddDate(0, 0, 30)))
	assert.True(t, res.Transactions[1].DueDate.Equal(apptest.Day0.AddDate(0, 0, 60)))

	require.Len(t, res.Batches, 1)
	b := res.Batches[0]
	assert.Equal(t, types.NewQuantity(100), b.QtyOriginal)
	assert.Equal(t, types.NewQuantity(100), b.QtyRemaining)
	assert.Equal(t, "2.0000", b.UnitCost.StringFixed(4))
	require.NotNil(t, b.SourceTransactionID)
	assert.Equal(t, res.Transactions[0].ID, *b.SourceTransactionID)

	got, err := env.Products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(100), got.Quantity)
	assert.Equal(t, "2.0000", got.CostPrice.StringFixed(4))
	assert.Equal(t, "3.50", got.RetailPrice.StringFixed(2), "retail kept without margin or override")

	group, err := env.Ledger.ByGroup(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, group, 2)

	assert.Contains(t, env.Store.Outbox().Types(), events.TypeReceiptReceived)
	env.RequireConsistent(t, p.ID)
}

func TestReceive_PaidPurchaseSingleExpense(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	a := env.Product(t, "Pasta", "0", "0")
	b := env.Product(t, "Sauce", "0", "0")
	retail := types.MustMoney("9.99")

	res, err := env.Purchases.Receive(ctx, &purchase.Purchase{
		Header: purchase.Header{
			SupplierName: "Acme",
			Date:         apptest.Day0,
			Lines: []purchase.Line{
				line(a.ID, 10, "1.50"),
				{ProductID: b.ID, Quantity: types.NewQuantity(4), UnitCost: types.MustMoney("5"), RetailPrice: &retail},
			},
		},
		Paid: true,
	})
	require.NoError(t, err)

	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, finance.StatusPaid, tx.Status)
	assert.Equal(t, "35.00", tx.Amount.StringFixed(2))
	assert.Nil(t, tx.DueDate)
	assert.Len(t, tx.LineItems, 2)
	for _, ln := range res.Receipt.Lines {
		require.NotNil(t, ln.TransactionID)
		assert.Equal(t, tx.ID, *ln.TransactionID)
		require.NotNil(t, ln.BatchID)
	}

	got, err := env.Products.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "9.99", got.RetailPrice.StringFixed(2))
}

func TestReceive_MarginDerivesRetailPrice(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t, func(_ *app.Stores, cfg *app.Config) {
		cfg.Purchase.DefaultMarginPercent = decimal.NewFromInt(40)
	})
	p := env.Product(t, "Oil", "0", "0")

	_, err := env.Purchases.Receive(ctx, &purchase.Donation{Header: purchase.Header{
		SupplierName: "Church",
		Lines:        []purchase.Line{line(p.ID, 3, "10")},
	}})
	require.NoError(t, err)

	got, err := env.Products.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "14.00", got.RetailPrice.StringFixed(2))
}

func TestReceive_NonPurchaseKindsPostNoExpense(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Soap", "0", "2")

	entries := []purchase.Entry{
		&purchase.Donation{Header: purchase.Header{SupplierName: "Neighbour", Lines: []purchase.Line{line(p.ID, 2, "0")}}},
		&purchase.Bonus{Header: purchase.Header{SupplierName: "Acme", Lines: []purchase.Line{line(p.ID, 3, "0.50")}}},
		&purchase.Adjustment{Header: purchase.Header{Lines: []purchase.Line{line(p.ID, 1, "1")}}},
	}
	for _, e := range entries {
		res, err := env.Purchases.Receive(ctx, e)
		require.NoError(t, err, e.Kind())
		assert.Empty(t, res.Transactions)
		assert.Len(t, res.Batches, 1)
		assert.Equal(t, e.Kind(), res.Receipt.Kind)
	}

	assert.Equal(t, types.NewQuantity(6), env.OnHand(t, p.ID))
	all, err := env.Ledger.List(ctx, finance.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	env.RequireConsistent(t, p.ID)
}

func TestReceive_SupplierResolvedOnce(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Soap", "0", "2")

	first, err := env.Purchases.Receive(ctx, &purchase.Bonus{Header: purchase.Header{SupplierName: "Acme", Lines: []purchase.Line{line(p.ID, 1, "0")}}})
	require.NoError(t, err)
	second, err := env.Purchases.Receive(ctx, &purchase.Bonus{Header: purchase.Header{SupplierName: "acme", Lines: []purchase.Line{line(p.ID, 1, "0")}}})
	require.NoError(t, err)

	assert.True(t, first.SupplierCreated)
	assert.False(t, second.SupplierCreated)
	assert.Equal(t, *first.Receipt.SupplierID, *second.Receipt.SupplierID)
}

func TestReceive_Validation(t *testing.T) {
	env := apptest.New(t)
	p := env.Product(t, "Soap", "0", "2")

	tests := []struct {
		name  string
		entry purchase.Entry
	}{
		{"nil entry", nil},
		{"purchase without supplier", &purchase.Purchase{Header: purchase.Header{Lines: []purchase.Line{line(p.ID, 1, "1")}}}},
		{"no lines", &purchase.Purchase{Header: purchase.Header{SupplierName: "Acme"}}},
		{"zero quantity", &purchase.Donation{Header: purchase.Header{SupplierName: "Acme", Lines: []purchase.Line{line(p.ID, 0, "1")}}}},
		{"negative cost", &purchase.Bonus{Header: purchase.Header{SupplierName: "Acme", Lines: []purchase.Line{line(p.ID, 1, "-1")}}}},
		{"negative installments", &purchase.Purchase{
			Header:       purchase.Header{SupplierName: "Acme", Lines: []purchase.Line{line(p.ID, 1, "1")}},
			Installments: -1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Purchases.Receive(context.Background(), tt.entry)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}
	assert.Equal(t, types.Quantity(0), env.OnHand(t, p.ID))
}

func TestReceive_PaidPurchaseWithInstallmentsPostsOneEntry(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Oil", "0", "9")

	res, err := env.Purchases.Receive(ctx, &purchase.Purchase{
		Header: purchase.Header{
			SupplierName: "Acme",
			Date:         apptest.Day0,
			Lines:        []purchase.Line{line(p.ID, 3, "4.00")},
		},
		Paid:         true,
		Installments: 3,
	})
	require.NoError(t, err)

	require.Len(t, res.Transactions, 1)
	tx := res.Transactions[0]
	assert.Equal(t, finance.StatusPaid, tx.Status)
	assert.Equal(t, "12.00", tx.Amount.StringFixed(2))
	assert.Equal(t, 1, tx.InstallmentCount)
	assert.Nil(t, tx.DueDate)
	assert.Equal(t, types.NewQuantity(3), env.OnHand(t, p.ID))
}

func TestReceive_UnknownProductRollsBack(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Soap", "0", "2")

	_, err := env.Purchases.Receive(ctx, &purchase.Purchase{
		Header: purchase.Header{
			SupplierName: "Acme",
			Lines:        []purchase.Line{line(p.ID, 5, "1"), line(id.New(), 1, "1")},
		},
	})
	assert.True(t, apperror.IsNotFound(err))

	assert.Equal(t, types.Quantity(0), env.OnHand(t, p.ID))
	suppliers, err := env.Suppliers.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, suppliers)
}
