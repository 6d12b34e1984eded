package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/events"
	"lotkeeper/pkg/logger"
)

// Reasons of movements written outside sale and purchase documents.
const (
	ReasonInventoryCount = "inventory count"
	ReasonBatchWriteOff  = "batch write-off"
)

// Service owns the movement log and the product quantity projection.
// Writes must run inside the caller's transaction with the product lock held.
type Service struct {
	repo     Repository
	products product.Repository
	events   events.Publisher
}

// NewService creates a new stock register service.
func NewService(repo Repository, products product.Repository, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{
		repo:     repo,
		products: products,
		events:   publisher,
	}
}

// NewMovement is the input of Record and Post.
type NewMovement struct {
	ProductID    id.ID
	Type         entity.RecordType
	Quantity     types.Quantity
	Reason       string
	OccurredAt   time.Time
	RecorderID   *id.ID
	RecorderType string
}

// Validate implements entity.Validatable interface.
func (n NewMovement) Validate(ctx context.Context) error {
	if id.IsNil(n.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if !n.Type.IsValid() {
		return apperror.NewValidation("invalid movement type").WithDetail("value", string(n.Type))
	}
	if !n.Quantity.IsPositive() {
		return apperror.NewValidation("movement quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", n.Quantity.String())
	}
	if strings.TrimSpace(n.Reason) == "" {
		return apperror.NewValidation("movement reason is required").WithDetail("field", "reason")
	}
	return nil
}

// Record appends one movement to the log. It does not touch the projection.
func (s *Service) Record(ctx context.Context, in NewMovement) (*entity.StockMovement, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	m := &entity.StockMovement{
		MovementBase: entity.NewMovementBase(in.RecorderID, in.RecorderType, in.OccurredAt, in.Type),
		ProductID:    in.ProductID,
		Quantity:     in.Quantity,
		Reason:       in.Reason,
	}
	if err := s.repo.CreateMovement(ctx, m); err != nil {
		return nil, fmt.Errorf("create movement: %w", err)
	}
	return m, nil
}

// Adjustment is the outcome of a projection change.
type Adjustment struct {
	ProductID id.ID          `json:"productId"`
	Previous  types.Quantity `json:"previous"`
	Quantity  types.Quantity `json:"quantity"`

	// Clamped is set when an exit would have taken the quantity below zero
	Clamped bool `json:"clamped"`
}

// Adjust applies a signed delta to the product's on-hand quantity.
// A result below zero is clamped to zero and logged as an anomaly.
func (s *Service) Adjust(ctx context.Context, productID id.ID, delta types.Quantity) (*Adjustment, error) {
	p, err := s.products.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}

	adj := &Adjustment{ProductID: productID, Previous: p.Quantity, Quantity: p.Quantity + delta}
	if adj.Quantity.IsNegative() {
		logger.Warn(ctx, "stock projection clamped at zero",
			"product_id", productID,
			"previous", adj.Previous.String(),
			"delta", delta.String(),
		)
		adj.Quantity = 0
		adj.Clamped = true
	}

	if err := s.products.SetQuantity(ctx, productID, adj.Quantity); err != nil {
		return nil, fmt.Errorf("set quantity: %w", err)
	}

	if p.MinStock.IsPositive() && adj.Previous >= p.MinStock && adj.Quantity < p.MinStock {
		err := s.events.Publish(ctx, events.Event{
			AggregateType: events.AggregateProduct,
			AggregateID:   productID,
			Type:          events.TypeStockBelowMinimum,
			Payload: map[string]any{
				"productId": productID,
				"name":      p.Name,
				"quantity":  adj.Quantity,
				"minStock":  p.MinStock,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("publish below minimum: %w", err)
		}
	}
	return adj, nil
}

// Posting is a recorded movement together with the projection it produced.
type Posting struct {
	Movement   *entity.StockMovement `json:"movement"`
	Adjustment *Adjustment           `json:"adjustment"`
}

// Post records a movement and applies its delta to the projection, so the
// two can never diverge by a forgotten call.
func (s *Service) Post(ctx context.Context, in NewMovement) (*Posting, error) {
	m, err := s.Record(ctx, in)
	if err != nil {
		return nil, err
	}
	adj, err := s.Adjust(ctx, in.ProductID, m.SignedQuantity())
	if err != nil {
		return nil, err
	}
	return &Posting{Movement: m, Adjustment: adj}, nil
}

// History returns movements newest first.
func (s *Service) History(ctx context.Context, filter MovementFilter) ([]entity.StockMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListMovements(ctx, filter)
}

// Replay sums the product's movements from zero.
func (s *Service) Replay(ctx context.Context, productID id.ID) (types.Quantity, error) {
	return s.repo.SumByProduct(ctx, productID)
}
