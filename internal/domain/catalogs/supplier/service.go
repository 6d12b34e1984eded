package supplier

import (
	"context"
	"fmt"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/pkg/logger"
)

// Service resolves supplier names for receipts.
type Service struct {
	repo Repository
}

// NewService creates a new supplier service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve returns the supplier matching name, creating one with blank fields
// when none exists. Must run inside the receipt's transaction.
func (s *Service) Resolve(ctx context.Context, name string) (*Supplier, bool, error) {
	if NormalizeName(name) == "" {
		return nil, false, apperror.NewValidation("supplier name is required").WithDetail("field", "supplierName")
	}

	found, err := s.repo.FindByName(ctx, name)
	if err == nil {
		return found, false, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, false, fmt.Errorf("find supplier: %w", err)
	}

	created := NewSupplier(name)
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, false, fmt.Errorf("create supplier: %w", err)
	}
	logger.Info(ctx, "supplier auto-created", "supplier_id", created.ID, "name", created.Name)
	return created, true, nil
}

// List returns every supplier.
func (s *Service) List(ctx context.Context) ([]*Supplier, error) {
	return s.repo.List(ctx)
}
