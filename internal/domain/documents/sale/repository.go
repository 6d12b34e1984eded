package sale

import (
	"context"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain"
)

// Repository defines sale persistence. Sales are loaded with items and allocations.
type Repository interface {
	// Create inserts header, items and allocations.
	Create(ctx context.Context, s *Sale) error

	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetForUpdate loads the sale with a row lock (inside a transaction).
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	// Update rewrites header, items and allocations.
	Update(ctx context.Context, s *Sale) error

	// List returns sales newest first; From/To filter the sale date.
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Sale], error)
}
