package catalog_repo

import (
	"context"
	"time"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

const productsTable = "cat_products"

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			productsTable, "product",
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return new(product.Product) },
		),
	}
}

// SetQuantity writes the stock projection of a product.
func (r *ProductRepo) SetQuantity(ctx context.Context, productID id.ID, qty types.Quantity) error {
	return r.update(ctx, productID, map[string]any{
		"quantity":   qty,
		"updated_at": time.Now().UTC(),
	})
}

// SetPrices writes the purchase-driven price fields.
func (r *ProductRepo) SetPrices(ctx context.Context, productID id.ID, upd product.PriceUpdate) error {
	set := map[string]any{
		"cost_price":   upd.CostPrice,
		"retail_price": upd.RetailPrice,
		"updated_at":   time.Now().UTC(),
	}
	if upd.ExpiryDate != nil {
		set["expiry_date"] = *upd.ExpiryDate
	}
	return r.update(ctx, productID, set)
}
