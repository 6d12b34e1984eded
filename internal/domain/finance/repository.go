package finance

import (
	"context"
	"time"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// Repository defines ledger persistence. Entries are loaded with their line items.
type Repository interface {
	// Create inserts the entry and its line items.
	Create(ctx context.Context, t *Transaction) error

	GetByID(ctx context.Context, txID id.ID) (*Transaction, error)

	// MarkPaid moves a PENDING entry to PAID.
	MarkPaid(ctx context.Context, txID id.ID, paidAt time.Time) error

	// SetAmount changes the amount of a PENDING entry.
	SetAmount(ctx context.Context, txID id.ID, amount types.Money) error

	// Delete removes the entry and its line items.
	Delete(ctx context.Context, txID id.ID) error

	ListByGroup(ctx context.Context, groupID id.ID) ([]*Transaction, error)
	ListBySource(ctx context.Context, sourceType string, sourceID id.ID) ([]*Transaction, error)

	// List returns entries matching filter, newest posted first.
	List(ctx context.Context, filter Filter) ([]*Transaction, error)
}
