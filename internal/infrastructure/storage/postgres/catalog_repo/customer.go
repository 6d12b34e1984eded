package catalog_repo

import (
	"context"
	"time"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

const customersTable = "cat_customers"

var _ customer.Repository = (*CustomerRepo)(nil)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			customersTable, "customer",
			postgres.ExtractDBColumns[customer.Customer](),
			func() *customer.Customer { return new(customer.Customer) },
		),
	}
}

// SetDebtBalance overwrites the receivable balance.
func (r *CustomerRepo) SetDebtBalance(ctx context.Context, customerID id.ID, amount types.Money) error {
	return r.update(ctx, customerID, map[string]any{
		"debt_balance": types.RoundMoney(amount),
		"updated_at":   time.Now().UTC(),
	})
}

// List returns every customer ordered by name.
func (r *CustomerRepo) List(ctx context.Context) ([]*customer.Customer, error) {
	return r.ListAll(ctx)
}
