package app

import (
	"context"
	"fmt"

	"lotkeeper/internal/core/lock"
	"lotkeeper/internal/infrastructure/storage/postgres"
	"lotkeeper/internal/infrastructure/storage/postgres/catalog_repo"
	"lotkeeper/internal/infrastructure/storage/postgres/document_repo"
	"lotkeeper/internal/infrastructure/storage/postgres/finance_repo"
	"lotkeeper/internal/infrastructure/storage/postgres/register_repo"
	"lotkeeper/pkg/numerator"
)

// PostgresStores backs the engine with PostgreSQL. Events go to the transactional outbox.
func PostgresStores(txm *postgres.TxManager, locker lock.Locker, auditThreshold int) (Stores, error) {
	recorder, err := postgres.NewAuditRecorder(txm, auditThreshold)
	if err != nil {
		return Stores{}, fmt.Errorf("audit recorder: %w", err)
	}

	seq := numerator.NewWithQuerierFunc(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	}, numerator.StrategyStrict, 0)

	return Stores{
		Products:     catalog_repo.NewProductRepo(txm),
		Customers:    catalog_repo.NewCustomerRepo(txm),
		Suppliers:    catalog_repo.NewSupplierRepo(txm),
		Batches:      register_repo.NewBatchRepo(txm),
		Movements:    register_repo.NewStockRepo(txm),
		Transactions: finance_repo.NewTransactionRepo(txm),
		Sales:        document_repo.NewSaleRepo(txm),
		Receipts:     document_repo.NewReceiptRepo(txm),
		Counts:       document_repo.NewCountRepo(txm),
		Numerator:    seq,
		TxManager:    txm,
		Audit:        recorder,
		Events:       postgres.NewOutboxPublisher(txm),
		Locker:       locker,
	}, nil
}
