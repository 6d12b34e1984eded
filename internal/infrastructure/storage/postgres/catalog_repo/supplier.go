package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"lotkeeper/internal/domain/catalogs/supplier"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

const suppliersTable = "cat_suppliers"

var _ supplier.Repository = (*SupplierRepo)(nil)

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct {
	*BaseCatalogRepo[*supplier.Supplier]
}

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo(txm *postgres.TxManager) *SupplierRepo {
	return &SupplierRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			suppliersTable, "supplier",
			postgres.ExtractDBColumns[supplier.Supplier](),
			func() *supplier.Supplier { return new(supplier.Supplier) },
		),
	}
}

// FindByName matches the normalized name (ux_cat_suppliers_name).
func (r *SupplierRepo) FindByName(ctx context.Context, name string) (*supplier.Supplier, error) {
	q := r.baseSelect().Where(squirrel.Expr("lower(btrim(name)) = ?", supplier.NormalizeName(name)))
	return r.FindOne(ctx, q, name)
}

// List returns every supplier ordered by name.
func (r *SupplierRepo) List(ctx context.Context) ([]*supplier.Supplier, error) {
	return r.ListAll(ctx)
}
