package purchase

import (
	"context"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain"
)

// Repository defines receipt persistence. Receipts are loaded with their lines.
type Repository interface {
	Create(ctx context.Context, r *Receipt) error
	GetByID(ctx context.Context, receiptID id.ID) (*Receipt, error)

	// GetForUpdate loads the receipt with a row lock (inside a transaction).
	GetForUpdate(ctx context.Context, receiptID id.ID) (*Receipt, error)

	// UpdateStatus changes status and canceled_at.
	UpdateStatus(ctx context.Context, r *Receipt) error

	// FindByTransaction returns the receipt whose lines are carried by the
	// expense entry txID.
	FindByTransaction(ctx context.Context, txID id.ID) (*Receipt, error)

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Receipt], error)
}
