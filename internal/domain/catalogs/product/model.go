// Package product provides the product catalog collaborator.
// The engine reads products and writes only their quantity and prices.
package product

import (
	"context"
	"strings"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// Unit of measure
const (
	UnitPiece    = "un"
	UnitKilogram = "kg"
	UnitLitre    = "l"
)

// Product is a sellable item with a materialized on-hand quantity.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Unit string `db:"unit" json:"unit"`

	// Quantity is the stock projection, maintained by the stock register only
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// MinStock triggers a below-minimum alert when crossed downwards
	MinStock types.Quantity `db:"min_stock" json:"minStock"`

	// CostPrice is the last purchase cost, used as the fallback unit cost
	// for products that have no batches
	CostPrice   types.Money `db:"cost_price" json:"costPrice"`
	RetailPrice types.Money `db:"retail_price" json:"retailPrice"`

	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewProduct creates a product with zero stock.
func NewProduct(name, unit string) *Product {
	now := time.Now().UTC()
	if unit == "" {
		unit = UnitPiece
	}
	return &Product{
		ID:          id.New(),
		Name:        strings.TrimSpace(name),
		Unit:        unit,
		CostPrice:   types.Zero(),
		RetailPrice: types.Zero(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if p.Quantity.IsNegative() {
		return apperror.NewValidation("quantity cannot be negative").
			WithDetail("field", "quantity")
	}
	if p.MinStock.IsNegative() {
		return apperror.NewValidation("minimum stock cannot be negative").
			WithDetail("field", "minStock")
	}
	if p.CostPrice.IsNegative() || p.RetailPrice.IsNegative() {
		return apperror.NewValidation("prices cannot be negative").
			WithDetail("field", "costPrice")
	}
	return nil
}

// IsBelowMinimum reports whether the projection is under the alert threshold.
func (p *Product) IsBelowMinimum() bool {
	return p.MinStock.IsPositive() && p.Quantity < p.MinStock
}

// PriceUpdate carries the price fields a receipt may change.
type PriceUpdate struct {
	CostPrice   types.Money
	RetailPrice types.Money
	ExpiryDate  *time.Time
}
