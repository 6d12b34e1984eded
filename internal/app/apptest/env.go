// Package apptest builds a fully wired engine over the memory store for tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lotkeeper/internal/app"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/infrastructure/locker"
	"lotkeeper/internal/infrastructure/storage/memory"
)

// Day0 is the reference date of test fixtures.
var Day0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// Env is an engine over a fresh memory store.
type Env struct {
	*app.App
	Store  *memory.Store
	Stores app.Stores
}

// New creates an environment; modify may replace stores before wiring.
func New(t *testing.T, modify ...func(*app.Stores, *app.Config)) *Env {
	t.Helper()
	store := memory.New()
	stores := app.MemoryStores(store, locker.NewLocal(time.Second))
	cfg := app.DefaultConfig()
	for _, m := range modify {
		m(&stores, &cfg)
	}
	return &Env{App: app.New(stores, cfg), Store: store, Stores: stores}
}

// Product creates a product with the given prices.
func (e *Env) Product(t *testing.T, name, cost, retail string) *product.Product {
	t.Helper()
	p := product.NewProduct(name, product.UnitPiece)
	p.CostPrice = types.MustMoney(cost)
	p.RetailPrice = types.MustMoney(retail)
	require.NoError(t, e.Products.Create(context.Background(), p))
	return p
}

// Customer creates a customer without debt.
func (e *Env) Customer(t *testing.T, name string) *customer.Customer {
	t.Helper()
	c := customer.NewCustomer(name, "")
	require.NoError(t, e.Customers.Create(context.Background(), c))
	return c
}

// Lot brings qty units in at cost on date through an adjustment entry and
// returns the created batch.
func (e *Env) Lot(t *testing.T, productID id.ID, qty int64, cost string, date time.Time) *batch.StockBatch {
	t.Helper()
	res, err := e.Purchases.Receive(context.Background(), &purchase.Adjustment{Header: purchase.Header{
		Date: date,
		Lines: []purchase.Line{{
			ProductID: productID,
			Quantity:  types.NewQuantity(qty),
			UnitCost:  types.MustMoney(cost),
		}},
	}})
	require.NoError(t, err)
	require.Len(t, res.Batches, 1)
	return res.Batches[0]
}

// Remaining returns a batch's current QtyRemaining.
func (e *Env) Remaining(t *testing.T, batchID id.ID) types.Quantity {
	t.Helper()
	b, err := e.Stores.Batches.GetByID(context.Background(), batchID)
	require.NoError(t, err)
	return b.QtyRemaining
}

// OnHand returns the product's projected quantity.
func (e *Env) OnHand(t *testing.T, productID id.ID) types.Quantity {
	t.Helper()
	p, err := e.Products.Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Quantity
}

// RequireConsistent asserts projection, replay and batches agree for products.
func (e *Env) RequireConsistent(t *testing.T, productIDs ...id.ID) {
	t.Helper()
	for _, pid := range productIDs {
		rep, err := e.Reports.Reconcile(context.Background(), pid)
		require.NoError(t, err)
		require.Truef(t, rep.Consistent, "product %s: projection=%s replay=%s batches=%s",
			pid, rep.Projection, rep.Replay, rep.BatchRemaining)
	}
}
