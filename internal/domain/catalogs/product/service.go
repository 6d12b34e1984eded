package product

import (
	"context"
	"fmt"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain"
	"lotkeeper/pkg/logger"
)

// Service provides catalog operations used by the API and reconcilers.
type Service struct {
	repo Repository
}

// NewService creates a new product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new product.
// Initial stock must be brought in through a receipt or count, so Quantity is forced to 0.
func (s *Service) Create(ctx context.Context, p *Product) error {
	p.Quantity = 0
	if err := p.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	logger.Info(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns a page of products.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// UpdatePrices changes displayed cost and retail price.
func (s *Service) UpdatePrices(ctx context.Context, productID id.ID, upd PriceUpdate) error {
	if upd.CostPrice.IsNegative() || upd.RetailPrice.IsNegative() {
		return apperror.NewValidation("prices cannot be negative")
	}
	return s.repo.SetPrices(ctx, productID, upd)
}

// LowStock lists products whose projection is under their minimum.
func (s *Service) LowStock(ctx context.Context) ([]*Product, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	var out []*Product
	for _, p := range all {
		if p.IsBelowMinimum() {
			out = append(out, p)
		}
	}
	return out, nil
}
