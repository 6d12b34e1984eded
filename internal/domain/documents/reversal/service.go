// Package reversal undoes committed sales and receipts.
//
// Every reversal is idempotent against already-reversed state and writes an
// audit snapshot of the document before changing it.
package reversal

import (
	"context"

	"lotkeeper/internal/core/lock"
	"lotkeeper/internal/core/tx"
	"lotkeeper/internal/domain/audit"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/documents/purchase"
	"lotkeeper/internal/domain/documents/sale"
	"lotkeeper/internal/domain/events"
	"lotkeeper/internal/domain/finance"
	"lotkeeper/internal/domain/registers/batch"
	"lotkeeper/internal/domain/registers/stock"
)

// RecorderType tags movements written by reversals.
const RecorderType = "Reversal"

// Deps are the collaborators of the reversal coordinator.
type Deps struct {
	Sales     sale.Repository
	Receipts  purchase.Repository
	Products  product.Repository
	Customers *customer.Service
	Batches   *batch.Service
	Stock     *stock.Service
	Ledger    *finance.Service
	TxManager tx.Manager
	Locker    lock.Locker
	Events    events.Publisher
	Audit     audit.Recorder
}

// Service coordinates voids, returns and purchase cancellations.
type Service struct {
	Deps
}

// NewService creates a new reversal coordinator.
func NewService(deps Deps) *Service {
	if deps.Locker == nil {
		deps.Locker = lock.Noop{}
	}
	if deps.Events == nil {
		deps.Events = events.Discard{}
	}
	return &Service{Deps: deps}
}

func (s *Service) audit(ctx context.Context, e audit.Entry) error {
	if s.Audit == nil {
		return nil
	}
	return s.Audit.Record(ctx, e)
}
