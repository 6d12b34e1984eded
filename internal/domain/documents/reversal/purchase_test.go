package reversal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/app/apptest"
	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/domain/documents/sale"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/domain/registers/batch"
)

type creditPurchase struct {
	env     *apptest.Env
	product *product.Product
	opening *batch.StockBatch
	result  *purchase.Result
}

// buyOnCredit stocks 20@1 then buys 100@2 from Acme in two installments.
func buyOnCredit(t *testing.T) *creditPurchase {
	t.Helper()
	env := apptest.New(t)
	f := &creditPurchase{env: env}
	f.product = env.Product(t, "Beans 1kg", "1", "3")
	f.opening = env.Lot(t, f.product.ID, 20, "1", apptest.Day0)

	res, err := env.Purchases.Receive(context.Background(), &purchase.Purchase{
		Header: purchase.Header{
			SupplierName: "Acme",
			Date:         apptest.Day0.AddDate(0, 0, 1),
			Lines: []purchase.Line{{
				ProductID: f.product.ID,
				Quantity:  types.NewQuantity(100),
				UnitCost:  types.MustMoney("2.00"),
			}},
		},
		Installments: 2,
	})
	require.NoError(t, err)
	f.result = res
	return f
}

func TestCancelPurchase_ReversesStockAndExpenses(t *testing.T) {
	ctx := context.Background()
	f := buyOnCredit(t)
	env := f.env
	receiptID := f.result.Receipt.ID

	res, err := env.Reversals.CancelPurchase(ctx, receiptID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyCanceled)
	assert.Equal(t, purchase.StatusCanceled, res.Receipt.Status)
	assert.Len(t, res.Deleted, 2)
	assert.Equal(t, types.NewQuantity(100), res.Withdrawn[f.product.ID])

	require.NotNil(t, res.Cancellation)
	assert.Equal(t, finance.TypeIncome, res.Cancellation.Type)
	assert.Equal(t, finance.StatusPaid, res.Cancellation.Status)
	assert.Equal(t, finance.CategoryCancellation, res.Cancellation.Category)
	assert.Equal(t, "200.00", res.Cancellation.Amount.StringFixed(2))
	assert.Contains(t, res.Cancellation.Description, "Acme")

	group, err := env.Ledger.ByGroup(ctx, receiptID)
	require.NoError(t, err)
	assert.Empty(t, group)

	// the purchase's own lot is drained, older stock is untouched
	assert.Equal(t, types.Quantity(0), env.Remaining(t, f.result.Batches[0].ID))
	assert.Equal(t, types.NewQuantity(20), env.Remaining(t, f.opening.ID))
	assert.Equal(t, types.NewQuantity(20), env.OnHand(t, f.product.ID))

	saved, err := env.Purchases.Get(ctx, receiptID)
	require.NoError(t, err)
	assert.True(t, saved.IsCanceled())
	assert.Contains(t, env.Store.Outbox().Types(), events.TypeReceiptCanceled)
	env.RequireConsistent(t, f.product.ID)
}

func TestCancelPurchase_ClampsToOnHand(t *testing.T) {
	ctx := context.Background()
	f := buyOnCredit(t)
	env := f.env

	_, err := env.Sales.Complete(ctx, sale.Checkout{
		Lines: []sale.CartLine{{
			ProductID: f.product.ID,
			Quantity:  types.NewQuantity(110),
			UnitPrice: types.MustMoney("3"),
		}},
		PaymentMethod: sale.PaymentCash,
	})
	require.NoError(t, err)
	require.Equal(t, types.NewQuantity(10), env.OnHand(t, f.product.ID))

	res, err := env.Reversals.CancelPurchase(ctx, f.result.Receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(10), res.Withdrawn[f.product.ID])
	assert.Equal(t, "200.00", res.Cancellation.Amount.StringFixed(2))

	assert.Equal(t, types.Quantity(0), env.OnHand(t, f.product.ID))
	assert.Equal(t, types.Quantity(0), env.Remaining(t, f.result.Batches[0].ID))
	env.RequireConsistent(t, f.product.ID)
}

func TestCancelPurchase_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := buyOnCredit(t)
	env := f.env

	_, err := env.Reversals.CancelPurchase(ctx, f.result.Receipt.ID)
	require.NoError(t, err)

	again, err := env.Reversals.CancelPurchase(ctx, f.result.Receipt.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyCanceled)
	assert.Nil(t, again.Cancellation)

	income := finance.TypeIncome
	incomes, err := env.Ledger.List(ctx, finance.Filter{Type: &income})
	require.NoError(t, err)
	assert.Len(t, incomes, 1)
	assert.Equal(t, types.NewQuantity(20), env.OnHand(t, f.product.ID))
}

func TestCancelPurchaseByTransaction(t *testing.T) {
	ctx := context.Background()
	f := buyOnCredit(t)
	env := f.env
	first, second := f.result.Transactions[0], f.result.Transactions[1]

	// any installment of the group identifies the purchase
	res, err := env.Reversals.CancelPurchaseByTransaction(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyCanceled)
	assert.Equal(t, f.result.Receipt.ID, res.Receipt.ID)

	_, err = env.Ledger.Get(ctx, first.ID)
	require.True(t, apperror.IsNotFound(err))

	// the deleted entry still resolves through the receipt lines
	again, err := env.Reversals.CancelPurchaseByTransaction(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyCanceled)

	_, err = env.Reversals.CancelPurchaseByTransaction(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestCancelPurchaseByTransaction_RejectsUnlinkedEntry(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)

	other := finance.NewTransaction(finance.TypeExpense, "Rent", types.MustMoney("500"), finance.StatusPaid, "Rent March", apptest.Day0)
	require.NoError(t, env.Ledger.Record(ctx, other))

	_, err := env.Reversals.CancelPurchaseByTransaction(ctx, other.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
}

func TestCancelPurchase_DonationHasNoCompensation(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Soap", "0", "2")

	res, err := env.Purchases.Receive(ctx, &purchase.Donation{Header: purchase.Header{
		SupplierName: "Neighbour",
		Lines:        []purchase.Line{{ProductID: p.ID, Quantity: types.NewQuantity(4)}},
	}})
	require.NoError(t, err)

	canceled, err := env.Reversals.CancelPurchase(ctx, res.Receipt.ID)
	require.NoError(t, err)
	assert.Empty(t, canceled.Deleted)
	assert.Nil(t, canceled.Cancellation)
	assert.Equal(t, types.Quantity(0), env.OnHand(t, p.ID))
}
