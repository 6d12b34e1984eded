package sale_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/app"
	"lotkeeper/internal/app/apptest"
	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/documents/sale"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/domain/registers/stock"
)

func cart(productID id.ID, qty int64, price string) []sale.CartLine {
	return []sale.CartLine{{ProductID: productID, Quantity: types.NewQuantity(qty), UnitPrice: types.MustMoney(price)}}
}

func TestComplete_AllocatesOldestBatchesFirst(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Rice 1kg", "5.00", "8.00")
	b1 := env.Lot(t, p.ID, 10, "5", apptest.Day0)
	b2 := env.Lot(t, p.ID, 5, "6", apptest.Day0.AddDate(0, 0, 1))

	res, err := env.Sales.Complete(ctx, sale.Checkout{
		Lines:         cart(p.ID, 12, "8.00"),
		PaymentMethod: sale.PaymentCash,
		Date:          apptest.Day0.AddDate(0, 0, 2),
	})
	require.NoError(t, err)

	doc := res.Sale
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "5.1667", doc.Items[0].UnitCost.StringFixed(4))
	assert.Equal(t, "96.00", doc.Total.StringFixed(2))
	assert.Equal(t, "62.00", doc.COGS().StringFixed(2))
	assert.Equal(t, "V-2026-00001", doc.Number)

	require.Len(t, doc.Allocations, 2)
	assert.Equal(t, b1.ID, doc.Allocations[0].BatchID)
	assert.Equal(t, types.NewQuantity(10), doc.Allocations[0].Quantity)
	assert.Equal(t, b2.ID, doc.Allocations[1].BatchID)
	assert.Equal(t, types.NewQuantity(2), doc.Allocations[1].Quantity)

	assert.Equal(t, types.Quantity(0), env.Remaining(t, b1.ID))
	assert.Equal(t, types.NewQuantity(3), env.Remaining(t, b2.ID))
	assert.Equal(t, types.NewQuantity(3), env.OnHand(t, p.ID))

	require.NotNil(t, res.Income)
	assert.Equal(t, finance.TypeIncome, res.Income.Type)
	assert.Equal(t, finance.StatusPaid, res.Income.Status)
	assert.Equal(t, "96.00", res.Income.Amount.StringFixed(2))
	assert.Nil(t, res.CustomerDebt)

	assert.Contains(t, env.Store.Outbox().Types(), events.TypeSaleCompleted)
	env.RequireConsistent(t, p.ID)
}

func TestComplete_OldestBatchCoversWholeRequest(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Beans", "3.00", "5.00")
	older := env.Lot(t, p.ID, 8, "3", apptest.Day0)
	newer := env.Lot(t, p.ID, 8, "4", apptest.Day0.AddDate(0, 0, 1))

	res, err := env.Sales.Complete(ctx, sale.Checkout{Lines: cart(p.ID, 8, "5.00"), PaymentMethod: sale.PaymentPix})
	require.NoError(t, err)

	assert.Equal(t, "3.0000", res.Sale.Items[0].UnitCost.StringFixed(4))
	assert.Equal(t, types.Quantity(0), env.Remaining(t, older.ID))
	assert.Equal(t, types.NewQuantity(8), env.Remaining(t, newer.ID))
}

func TestComplete_InsufficientStockWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Rice 1kg", "5.00", "8.00")
	b1 := env.Lot(t, p.ID, 10, "5", apptest.Day0)
	b2 := env.Lot(t, p.ID, 2, "6", apptest.Day0.AddDate(0, 0, 1))
	eventsBefore := len(env.Store.Outbox().Events())

	res, err := env.Sales.Complete(ctx, sale.Checkout{Lines: cart(p.ID, 20, "8.00"), PaymentMethod: sale.PaymentCash})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "20.0000", appErr.Details["requested"])
	assert.Equal(t, "12.0000", appErr.Details["available"])

	assert.Equal(t, types.NewQuantity(10), env.Remaining(t, b1.ID))
	assert.Equal(t, types.NewQuantity(2), env.Remaining(t, b2.ID))
	assert.Equal(t, types.NewQuantity(12), env.OnHand(t, p.ID))

	sales, err := env.Sales.List(ctx, domain.DefaultListFilter())
	require.NoError(t, err)
	assert.Zero(t, sales.TotalCount)
	assert.Len(t, env.Store.Outbox().Events(), eventsBefore)
}

func TestComplete_ShortageOnSecondProductRollsBackFirst(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	plenty := env.Product(t, "Sugar", "2.00", "3.00")
	scarce := env.Product(t, "Coffee", "10.00", "15.00")
	env.Lot(t, plenty.ID, 50, "2", apptest.Day0)
	env.Lot(t, scarce.ID, 1, "10", apptest.Day0)

	_, err := env.Sales.Complete(ctx, sale.Checkout{
		Lines: []sale.CartLine{
			{ProductID: plenty.ID, Quantity: types.NewQuantity(5), UnitPrice: types.MustMoney("3")},
			{ProductID: scarce.ID, Quantity: types.NewQuantity(2), UnitPrice: types.MustMoney("15")},
		},
		PaymentMethod: sale.PaymentCard,
	})
	require.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, types.NewQuantity(50), env.OnHand(t, plenty.ID))
	assert.Equal(t, types.NewQuantity(1), env.OnHand(t, scarce.ID))
	env.RequireConsistent(t, plenty.ID, scarce.ID)
}

func TestComplete_DeferredRaisesCustomerDebt(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Olive oil", "20.00", "42.50")
	env.Lot(t, p.ID, 4, "20", apptest.Day0)
	c := env.Customer(t, "Maria")
	date := apptest.Day0.AddDate(0, 0, 3)

	res, err := env.Sales.Complete(ctx, sale.Checkout{
		Lines:         cart(p.ID, 1, "42.50"),
		PaymentMethod: sale.PaymentDeferred,
		CustomerID:    id.Ptr(c.ID),
		Date:          date,
	})
	require.NoError(t, err)

	require.NotNil(t, res.CustomerDebt)
	assert.Equal(t, "42.50", res.CustomerDebt.StringFixed(2))

	got, err := env.Customers.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "42.50", got.DebtBalance.StringFixed(2))

	entries, err := env.Ledger.BySource(ctx, finance.SourceSale, res.Sale.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	income := entries[0]
	assert.Equal(t, finance.TypeIncome, income.Type)
	assert.Equal(t, finance.StatusPending, income.Status)
	require.NotNil(t, income.DueDate)
	assert.True(t, income.DueDate.Equal(date.AddDate(0, 0, 30)))
	assert.Nil(t, income.PaidAt)
}

func TestComplete_DeferredRequiresCustomer(t *testing.T) {
	env := apptest.New(t)
	p := env.Product(t, "Olive oil", "20.00", "42.50")

	_, err := env.Sales.Complete(context.Background(), sale.Checkout{
		Lines:         cart(p.ID, 1, "42.50"),
		PaymentMethod: sale.PaymentDeferred,
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestComplete_RejectsInvalidCarts(t *testing.T) {
	env := apptest.New(t)
	p := env.Product(t, "Salt", "1.00", "2.00")

	tests := []struct {
		name string
		co   sale.Checkout
	}{
		{"empty cart", sale.Checkout{PaymentMethod: sale.PaymentCash}},
		{"unknown method", sale.Checkout{Lines: cart(p.ID, 1, "2"), PaymentMethod: "BARTER"}},
		{"zero quantity", sale.Checkout{Lines: cart(p.ID, 0, "2"), PaymentMethod: sale.PaymentCash}},
		{"negative price", sale.Checkout{Lines: cart(p.ID, 1, "-2"), PaymentMethod: sale.PaymentCash}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Sales.Complete(context.Background(), tt.co)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}
}

func TestComplete_UnknownProduct(t *testing.T) {
	env := apptest.New(t)
	_, err := env.Sales.Complete(context.Background(), sale.Checkout{
		Lines:         cart(id.New(), 1, "2"),
		PaymentMethod: sale.PaymentCash,
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestComplete_ProductWithoutBatchesUsesCostPrice(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Legacy soap", "1.25", "3.00")
	// stock that predates the batch ledger
	require.NoError(t, env.Stores.Products.SetQuantity(ctx, p.ID, types.NewQuantity(5)))

	res, err := env.Sales.Complete(ctx, sale.Checkout{Lines: cart(p.ID, 2, "3.00"), PaymentMethod: sale.PaymentCash})
	require.NoError(t, err)

	assert.Equal(t, "1.2500", res.Sale.Items[0].UnitCost.StringFixed(4))
	assert.Empty(t, res.Sale.Allocations)
	assert.Equal(t, types.NewQuantity(3), env.OnHand(t, p.ID))
}

type failingDebt struct {
	customer.Repository
}

func (failingDebt) SetDebtBalance(context.Context, id.ID, types.Money) error {
	return errors.New("customer store unavailable")
}

func TestComplete_DebtFailureIsPartialSuccess(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t, func(st *app.Stores, _ *app.Config) {
		st.Customers = failingDebt{st.Customers}
	})
	p := env.Product(t, "Olive oil", "20.00", "42.50")
	env.Lot(t, p.ID, 4, "20", apptest.Day0)
	c := env.Customer(t, "Joao")

	res, err := env.Sales.Complete(ctx, sale.Checkout{
		Lines:         cart(p.ID, 2, "42.50"),
		PaymentMethod: sale.PaymentDeferred,
		CustomerID:    id.Ptr(c.ID),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsPartialSuccess(err))
	require.NotNil(t, res)
	assert.Nil(t, res.CustomerDebt)

	saved, err := env.Sales.Get(ctx, res.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "85.00", saved.Total.StringFixed(2))
	assert.Equal(t, types.NewQuantity(2), env.OnHand(t, p.ID))
}

func TestSettleDeferred(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Flour", "2.00", "4.00")
	env.Lot(t, p.ID, 10, "2", apptest.Day0)
	c := env.Customer(t, "Ana")

	res, err := env.Sales.Complete(ctx, sale.Checkout{
		Lines:         cart(p.ID, 5, "4.00"),
		PaymentMethod: sale.PaymentDeferred,
		CustomerID:    id.Ptr(c.ID),
	})
	require.NoError(t, err)

	paidAt := apptest.Day0.AddDate(0, 0, 10)
	settled, err := env.Sales.SettleDeferred(ctx, res.Sale.ID, paidAt)
	require.NoError(t, err)
	assert.Equal(t, finance.StatusPaid, settled.Status)
	require.NotNil(t, settled.PaidAt)
	assert.True(t, settled.PaidAt.Equal(paidAt))

	got, err := env.Customers.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.DebtBalance.IsZero())

	_, err = env.Sales.SettleDeferred(ctx, res.Sale.ID, paidAt)
	assert.Error(t, err, "nothing left to settle")
}

func TestComplete_ConcurrentSalesNeverOversell(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Milk", "1.00", "2.00")
	env.Lot(t, p.ID, 10, "1", apptest.Day0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, short int
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Sales.Complete(ctx, sale.Checkout{Lines: cart(p.ID, 3, "2"), PaymentMethod: sale.PaymentCash})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperror.IsInsufficientStock(err):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 1, short)
	assert.Equal(t, types.NewQuantity(1), env.OnHand(t, p.ID))
	env.RequireConsistent(t, p.ID)
}

func TestList_NewestFirst(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t)
	p := env.Product(t, "Tea", "1.00", "2.00")
	env.Lot(t, p.ID, 10, "1", apptest.Day0)

	for i := 0; i < 3; i++ {
		_, err := env.Sales.Complete(ctx, sale.Checkout{
			Lines:         cart(p.ID, 1, "2"),
			PaymentMethod: sale.PaymentCash,
			Date:          apptest.Day0.Add(time.Duration(i+1) * time.Hour),
		})
		require.NoError(t, err)
	}

	page, err := env.Sales.List(ctx, domain.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "V-2026-00003", page.Items[0].Number)
	assert.Equal(t, "V-2026-00002", page.Items[1].Number)
}

type failingLedger struct {
	finance.Repository
}

func (failingLedger) Create(context.Context, *finance.Transaction) error {
	return errors.New("ledger unavailable")
}

func TestComplete_LedgerFailureRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	env := apptest.New(t, func(st *app.Stores, _ *app.Config) {
		st.Transactions = failingLedger{st.Transactions}
	})
	p := env.Product(t, "Rice 1kg", "5.00", "8.00")
	// lots come from adjustments, which write no ledger entry
	lot := env.Lot(t, p.ID, 10, "5", apptest.Day0)
	movements, err := env.Stock.History(ctx, stock.MovementFilter{ProductID: id.Ptr(p.ID)})
	require.NoError(t, err)

	_, err = env.Sales.Complete(ctx, sale.Checkout{Lines: cart(p.ID, 4, "8"), PaymentMethod: sale.PaymentCash})
	require.Error(t, err)

	assert.Equal(t, types.NewQuantity(10), env.Remaining(t, lot.ID))
	assert.Equal(t, types.NewQuantity(10), env.OnHand(t, p.ID))
	after, err := env.Stock.History(ctx, stock.MovementFilter{ProductID: id.Ptr(p.ID)})
	require.NoError(t, err)
	assert.Len(t, after, len(movements))

	sales, err := env.Sales.List(ctx, domain.DefaultListFilter())
	require.NoError(t, err)
	assert.Zero(t, sales.TotalCount)
	env.RequireConsistent(t, p.ID)
}
