package inventory

import (
	"context"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain"
)

// Repository defines operations for count documents.
type Repository interface {
	// Create inserts the header and lines.
	Create(ctx context.Context, doc *Count) error
	GetByID(ctx context.Context, countID id.ID) (*Count, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Count], error)
}
