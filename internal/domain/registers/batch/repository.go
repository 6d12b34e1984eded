package batch

import (
	"context"

	"lotkeeper/internal/core/id"
)

// Repository defines persistence for the batch ledger.
type Repository interface {
	// Create inserts a batch and assigns its Sequence.
	Create(ctx context.Context, b *StockBatch) error

	GetByID(ctx context.Context, batchID id.ID) (*StockBatch, error)

	// ListByProduct returns the product's batches in FIFO order.
	ListByProduct(ctx context.Context, productID id.ID) ([]*StockBatch, error)

	// ListByProductForUpdate is ListByProduct with row locks held until commit.
	ListByProductForUpdate(ctx context.Context, productID id.ID) ([]*StockBatch, error)

	// ListAll returns every batch (valuation).
	ListAll(ctx context.Context) ([]*StockBatch, error)

	// UpdateLevels writes QtyRemaining, QtyConsumed and ConsumeSeq of b.
	UpdateLevels(ctx context.Context, b *StockBatch) error

	// Delete physically removes a batch. Administrative correction only.
	Delete(ctx context.Context, batchID id.ID) error
}
