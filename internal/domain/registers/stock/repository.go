// Package stock provides the append-only movement log and the on-hand
// quantity projection kept in step with it.
package stock

import (
	"context"
	"time"

	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// Repository defines operations for the movement log.
// There is no update or delete: corrections are new compensating movements.
type Repository interface {
	// CreateMovement appends a movement and assigns its Sequence.
	CreateMovement(ctx context.Context, m *entity.StockMovement) error

	// ListMovements returns movements newest first.
	ListMovements(ctx context.Context, filter MovementFilter) ([]entity.StockMovement, error)

	// SumByProduct replays ENTRY - EXIT from zero for a product.
	SumByProduct(ctx context.Context, productID id.ID) (types.Quantity, error)
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	ProductID  *id.ID
	RecorderID *id.ID
	RecordType *entity.RecordType
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// Matches reports whether m passes the filter (pagination aside).
func (f MovementFilter) Matches(m *entity.StockMovement) bool {
	if f.ProductID != nil && m.ProductID != *f.ProductID {
		return false
	}
	if f.RecorderID != nil && (m.RecorderID == nil || *m.RecorderID != *f.RecorderID) {
		return false
	}
	if f.RecordType != nil && m.RecordType != *f.RecordType {
		return false
	}
	if f.FromDate != nil && m.OccurredAt.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && !m.OccurredAt.Before(*f.ToDate) {
		return false
	}
	return true
}
