//go:build integration

package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"lotkeeper/internal/app"
	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/domain/documents/sale"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/infrastructure/locker"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

func startPostgres(t *testing.T) *app.App {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("lotkeeper_test"),
		tcPostgres.WithUsername("lotkeeper"),
		tcPostgres.WithPassword("lotkeeper"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	// Applying twice is a no-op.
	require.NoError(t, postgres.Migrate(ctx, pool))

	stores, err := app.PostgresStores(postgres.NewTxManager(pool), locker.NewLocal(2*time.Second), 0)
	require.NoError(t, err)
	return app.New(stores, app.DefaultConfig())
}

func TestPostgres_SaleVoidRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := startPostgres(t)

	p := product.NewProduct("Rice 1kg", product.UnitPiece)
	p.CostPrice = types.MustMoney("5.00")
	p.RetailPrice = types.MustMoney("8.00")
	require.NoError(t, a.Products.Create(ctx, p))

	day := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for i, cost := range []string{"5", "6"} {
		_, err := a.Purchases.Receive(ctx, &purchase.Purchase{
			Header: purchase.Header{
				SupplierName: "Atacadao",
				Date:         day.AddDate(0, 0, i),
				Lines: []purchase.Line{{
					ProductID: p.ID,
					Quantity:  types.NewQuantity(int64(10 - 5*i)),
					UnitCost:  types.MustMoney(cost),
				}},
			},
			Paid: true,
		})
		require.NoError(t, err)
	}

	res, err := a.Sales.Complete(ctx, sale.Checkout{
		Lines: []sale.CartLine{{
			ProductID: p.ID,
			Quantity:  types.NewQuantity(12),
			UnitPrice: types.MustMoney("8.00"),
		}},
		PaymentMethod: sale.PaymentCash,
		Date:          day.AddDate(0, 0, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, "V-2026-00001", res.Sale.Number)

	stored, err := a.Sales.Get(ctx, res.Sale.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	require.Len(t, stored.Allocations, 2)
	assert.Equal(t, "5.1667", stored.Items[0].UnitCost.StringFixed(4))
	assert.Equal(t, "96.00", stored.Total.StringFixed(2))

	void, err := a.Reversals.VoidSale(ctx, res.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.StatusCanceled, void.Sale.Status)
	require.NotNil(t, void.Refund)
	assert.Equal(t, finance.TypeExpense, void.Refund.Type)

	rep, err := a.Reports.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
	assert.Equal(t, types.NewQuantity(15), rep.Projection)
	assert.Equal(t, types.NewQuantity(15), rep.BatchRemaining)
}

func TestPostgres_InsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	a := startPostgres(t)

	p := product.NewProduct("Beans", product.UnitPiece)
	require.NoError(t, a.Products.Create(ctx, p))
	_, err := a.Purchases.Receive(ctx, &purchase.Adjustment{Header: purchase.Header{
		Lines: []purchase.Line{{ProductID: p.ID, Quantity: types.NewQuantity(3), UnitCost: types.MustMoney("2")}},
	}})
	require.NoError(t, err)

	_, err = a.Sales.Complete(ctx, sale.Checkout{
		Lines:         []sale.CartLine{{ProductID: p.ID, Quantity: types.NewQuantity(4), UnitPrice: types.MustMoney("3")}},
		PaymentMethod: sale.PaymentCash,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	rep, err := a.Reports.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, rep.Consistent)
	assert.Equal(t, types.NewQuantity(3), rep.Projection)
}

func TestPostgres_ConcurrentDeferredSalesAccumulateDebt(t *testing.T) {
	ctx := context.Background()
	a := startPostgres(t)

	c := customer.NewCustomer("Dona Maria", "")
	require.NoError(t, a.Customers.Create(ctx, c))

	// One product per sale so the product locks never serialize the checkouts.
	const sales = 8
	products := make([]id.ID, sales)
	for i := range products {
		p := product.NewProduct(fmt.Sprintf("Item %d", i), product.UnitPiece)
		require.NoError(t, a.Products.Create(ctx, p))
		_, err := a.Purchases.Receive(ctx, &purchase.Adjustment{Header: purchase.Header{
			Lines: []purchase.Line{{ProductID: p.ID, Quantity: types.NewQuantity(1), UnitCost: types.MustMoney("4")}},
		}})
		require.NoError(t, err)
		products[i] = p.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, sales)
	for i, pid := range products {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = a.Sales.Complete(ctx, sale.Checkout{
				Lines:         []sale.CartLine{{ProductID: pid, Quantity: types.NewQuantity(1), UnitPrice: types.MustMoney("10.00")}},
				PaymentMethod: sale.PaymentDeferred,
				CustomerID:    &c.ID,
			})
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := a.Customers.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "80.00", got.DebtBalance.StringFixed(2))
}
