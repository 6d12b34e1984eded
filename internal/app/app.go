// Package app assembles the domain services from a set of stores.
package app

import (
	"lotkeeper/internal/core/lock"
	"lotkeeper/internal/core/numerator"
	"lotkeeper/internal/core/tx"
	"lotkeeper/internal/domain/audit"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/catalogs/supplier"
	"lotkeeper/internal/domain/documents/inventory"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/domain/documents/reversal"
	"lotkeeper/internal/domain/documents/sale"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/domain/registers/stock"
	"lotkeeper/internal/domain/reports"
)

// Stores are the persistence collaborators of the engine.
type Stores struct {
	Products     product.Repository
	Customers    customer.Repository
	Suppliers    supplier.Repository
	Batches      batch.Repository
	Movements    stock.Repository
	Transactions finance.Repository
	Sales        sale.Repository
	Receipts     purchase.Repository
	Counts       inventory.Repository

	Numerator numerator.Generator
	TxManager tx.Manager
	Audit     audit.Recorder
	Events    events.Publisher
	Locker    lock.Locker
}

// Config is the reference data passed to the reconcilers.
type Config struct {
	Sale     sale.Config
	Purchase purchase.Config
}

// DefaultConfig returns the defaults of every reconciler.
func DefaultConfig() Config {
	return Config{
		Sale:     sale.DefaultConfig(),
		Purchase: purchase.DefaultConfig(),
	}
}

// App holds every service.
type App struct {
	Products  *product.Service
	Customers *customer.Service
	Suppliers *supplier.Service
	Batches   *batch.Service
	Stock     *stock.Service
	Ledger    *finance.Service
	Sales     *sale.Service
	Purchases *purchase.Service
	Reversals *reversal.Service
	Counts    *inventory.Service
	Reports   *reports.Service
}

// New wires the services over st.
func New(st Stores, cfg Config) *App {
	if st.Locker == nil {
		st.Locker = lock.Noop{}
	}
	if st.Events == nil {
		st.Events = events.Discard{}
	}

	a := &App{
		Products:  product.NewService(st.Products),
		Customers: customer.NewService(st.Customers, st.TxManager),
		Suppliers: supplier.NewService(st.Suppliers),
		Batches:   batch.NewService(st.Batches),
		Stock:     stock.NewService(st.Movements, st.Products, st.Events),
		Ledger:    finance.NewService(st.Transactions, st.TxManager),
	}

	a.Sales = sale.NewService(sale.Deps{
		Repo:      st.Sales,
		Products:  st.Products,
		Customers: a.Customers,
		Batches:   a.Batches,
		Stock:     a.Stock,
		Ledger:    a.Ledger,
		Numerator: st.Numerator,
		TxManager: st.TxManager,
		Locker:    st.Locker,
		Events:    st.Events,
		Audit:     st.Audit,
	}, cfg.Sale)

	a.Purchases = purchase.NewService(purchase.Deps{
		Repo:      st.Receipts,
		Products:  st.Products,
		Suppliers: a.Suppliers,
		Batches:   a.Batches,
		Stock:     a.Stock,
		Ledger:    a.Ledger,
		Numerator: st.Numerator,
		TxManager: st.TxManager,
		Locker:    st.Locker,
		Events:    st.Events,
	}, cfg.Purchase)

	a.Reversals = reversal.NewService(reversal.Deps{
		Sales:     st.Sales,
		Receipts:  st.Receipts,
		Products:  st.Products,
		Customers: a.Customers,
		Batches:   a.Batches,
		Stock:     a.Stock,
		Ledger:    a.Ledger,
		TxManager: st.TxManager,
		Locker:    st.Locker,
		Events:    st.Events,
		Audit:     st.Audit,
	})

	a.Counts = inventory.NewService(inventory.Deps{
		Repo:      st.Counts,
		Products:  st.Products,
		Batches:   a.Batches,
		Stock:     a.Stock,
		Numerator: st.Numerator,
		TxManager: st.TxManager,
		Locker:    st.Locker,
		Events:    st.Events,
	})

	a.Reports = reports.NewService(st.Sales, st.Products, a.Batches, a.Stock)
	return a
}
