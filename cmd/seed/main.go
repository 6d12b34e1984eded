// Package main provides a CLI tool for seeding the database with demo stock.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"lotkeeper/internal/app"
	"lotkeeper/internal/config"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/infrastructure/locker"
	"lotkeeper/internal/infrastructure/storage/postgres"
	"lotkeeper/pkg/logger"
)

type demoProduct struct {
	name     string
	unit     string
	minStock int64
	qty      int64
	cost     string
	retail   string
}

var demoProducts = []demoProduct{
	{"Arroz 5kg", product.UnitPiece, 5, 40, "18.50", "24.90"},
	{"Feijão 1kg", product.UnitPiece, 10, 60, "6.20", "8.99"},
	{"Café 500g", product.UnitPiece, 5, 30, "11.00", "15.50"},
	{"Queijo", product.UnitKilogram, 2, 8, "32.00", "45.00"},
	{"Leite integral", product.UnitLitre, 12, 48, "3.80", "5.29"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if !cfg.UsesPostgres() {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, cfg.Pool())
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalw("failed to migrate database", "error", err)
	}
	log.Info("connected to database")

	txm := postgres.NewTxManager(pool)
	stores, err := app.PostgresStores(txm, locker.NewLocal(cfg.LockWait), cfg.AuditCompressThreshold)
	if err != nil {
		log.Fatalw("failed to build stores", "error", err)
	}
	engine := app.New(stores, cfg.Engine())

	existing, err := engine.Products.List(ctx, domain.ListFilter{Limit: 1})
	if err != nil {
		log.Fatalw("failed to check products", "error", err)
	}
	if existing.TotalCount > 0 {
		log.Infow("products already exist, skipping seed", "count", existing.TotalCount)
		return
	}

	if err := seedDemoData(ctx, engine, log); err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedDemoData(ctx context.Context, engine *app.App, log *logger.Logger) error {
	date := time.Now().UTC().AddDate(0, 0, -7)

	cashLines := make([]purchase.Line, 0, len(demoProducts))
	var creditLines []purchase.Line

	for i, d := range demoProducts {
		p := product.NewProduct(d.name, d.unit)
		p.MinStock = types.NewQuantity(d.minStock)
		p.CostPrice = types.MustMoney(d.cost)
		p.RetailPrice = types.MustMoney(d.retail)
		if err := engine.Products.Create(ctx, p); err != nil {
			return fmt.Errorf("create product %q: %w", d.name, err)
		}

		retail := p.RetailPrice
		line := purchase.Line{
			ProductID:   p.ID,
			Quantity:    types.NewQuantity(d.qty),
			UnitCost:    p.CostPrice,
			RetailPrice: &retail,
		}
		// Split stock so the credit purchase shows installments.
		if i%2 == 0 {
			cashLines = append(cashLines, line)
		} else {
			creditLines = append(creditLines, line)
		}
	}

	cash, err := engine.Purchases.Receive(ctx, &purchase.Purchase{
		Header: purchase.Header{SupplierName: "Atacadão Central", Date: date, Lines: cashLines},
		Paid:   true,
	})
	if err != nil {
		return fmt.Errorf("receive cash purchase: %w", err)
	}
	log.Infow("cash purchase received", "receipt", cash.Receipt.Number, "batches", len(cash.Batches))

	credit, err := engine.Purchases.Receive(ctx, &purchase.Purchase{
		Header:       purchase.Header{SupplierName: "Distribuidora Sul", Date: date, Lines: creditLines},
		Installments: 3,
		IntervalDays: 30,
	})
	if err != nil {
		return fmt.Errorf("receive credit purchase: %w", err)
	}
	log.Infow("credit purchase received", "receipt", credit.Receipt.Number, "installments", len(credit.Transactions))

	for _, name := range []string{"Maria Souza", "João Lima"} {
		if err := engine.Customers.Create(ctx, customer.NewCustomer(name, "")); err != nil {
			return fmt.Errorf("create customer %q: %w", name, err)
		}
	}
	log.Infow("demo data created", "products", len(demoProducts), "customers", 2)
	return nil
}
