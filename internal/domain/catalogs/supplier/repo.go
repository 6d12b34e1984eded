package supplier

import (
	"context"

	"lotkeeper/internal/core/id"
)

// Repository defines the interface for Supplier persistence.
type Repository interface {
	Create(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, id id.ID) (*Supplier, error)

	// FindByName matches case-insensitively; missing name is apperror NotFound.
	FindByName(ctx context.Context, name string) (*Supplier, error)

	List(ctx context.Context) ([]*Supplier, error)
}
