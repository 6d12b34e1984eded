package customer

import (
	"context"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// Repository defines the interface for Customer persistence.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id id.ID) (*Customer, error)
	// GetForUpdate retrieves the customer with row lock (inside a transaction).
	GetForUpdate(ctx context.Context, id id.ID) (*Customer, error)
	SetDebtBalance(ctx context.Context, id id.ID, amount types.Money) error
	List(ctx context.Context) ([]*Customer, error)
}
