package product

import (
	"context"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain"
)

// Repository defines the interface for Product persistence.
// Missing rows are reported as apperror NotFound.
type Repository interface {
	Create(ctx context.Context, p *Product) error

	GetByID(ctx context.Context, id id.ID) (*Product, error)

	// GetForUpdate retrieves the product with row lock (inside a transaction).
	GetForUpdate(ctx context.Context, id id.ID) (*Product, error)

	SetQuantity(ctx context.Context, id id.ID, qty types.Quantity) error

	SetPrices(ctx context.Context, id id.ID, upd PriceUpdate) error

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error)

	// ListAll returns the whole catalog (valuation reports).
	ListAll(ctx context.Context) ([]*Product, error)
}
