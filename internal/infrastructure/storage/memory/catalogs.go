package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/catalogs/supplier"
)

// --- Products ---

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository.
type ProductRepo struct{ store *Store }

// Products returns the product repository of the store.
func (s *Store) Products() *ProductRepo { return &ProductRepo{store: s} }

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.products[p.ID]; ok {
			return apperror.NewDuplicate("product", "id", p.ID.String())
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	var out *product.Product
	r.store.read(func(st *state) {
		if p, ok := st.products[productID]; ok {
			out = &p
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return out, nil
}

func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *ProductRepo) SetQuantity(ctx context.Context, productID id.ID, qty types.Quantity) error {
	return r.store.write(func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID.String())
		}
		p.Quantity = qty
		p.UpdatedAt = time.Now().UTC()
		st.products[productID] = p
		return nil
	})
}

func (r *ProductRepo) SetPrices(ctx context.Context, productID id.ID, upd product.PriceUpdate) error {
	return r.store.write(func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID.String())
		}
		p.CostPrice = upd.CostPrice
		p.RetailPrice = upd.RetailPrice
		p.ExpiryDate = upd.ExpiryDate
		p.UpdatedAt = time.Now().UTC()
		st.products[productID] = p
		return nil
	})
}

func (r *ProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	all, _ := r.ListAll(ctx)
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	items := all[:0]
	for _, p := range all {
		if search == "" || strings.Contains(strings.ToLower(p.Name), search) {
			items = append(items, p)
		}
	}
	return domain.Page(items, filter), nil
}

func (r *ProductRepo) ListAll(ctx context.Context) ([]*product.Product, error) {
	var out []*product.Product
	r.store.read(func(st *state) {
		for _, p := range st.products {
			p := p
			out = append(out, &p)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// --- Customers ---

var _ customer.Repository = (*CustomerRepo)(nil)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct{ store *Store }

// Customers returns the customer repository of the store.
func (s *Store) Customers() *CustomerRepo { return &CustomerRepo{store: s} }

func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	return r.store.write(func(st *state) error {
		if _, ok := st.customers[c.ID]; ok {
			return apperror.NewDuplicate("customer", "id", c.ID.String())
		}
		st.customers[c.ID] = *c
		return nil
	})
}

func (r *CustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	var out *customer.Customer
	r.store.read(func(st *state) {
		if c, ok := st.customers[customerID]; ok {
			out = &c
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("customer", customerID.String())
	}
	return out, nil
}

func (r *CustomerRepo) GetForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.GetByID(ctx, customerID)
}

func (r *CustomerRepo) SetDebtBalance(ctx context.Context, customerID id.ID, amount types.Money) error {
	return r.store.write(func(st *state) error {
		c, ok := st.customers[customerID]
		if !ok {
			return apperror.NewNotFound("customer", customerID.String())
		}
		c.DebtBalance = amount
		c.UpdatedAt = time.Now().UTC()
		st.customers[customerID] = c
		return nil
	})
}

func (r *CustomerRepo) List(ctx context.Context) ([]*customer.Customer, error) {
	var out []*customer.Customer
	r.store.read(func(st *state) {
		for _, c := range st.customers {
			c := c
			out = append(out, &c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Suppliers ---

var _ supplier.Repository = (*SupplierRepo)(nil)

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct{ store *Store }

// Suppliers returns the supplier repository of the store.
func (s *Store) Suppliers() *SupplierRepo { return &SupplierRepo{store: s} }

func (r *SupplierRepo) Create(ctx context.Context, sup *supplier.Supplier) error {
	return r.store.write(func(st *state) error {
		key := supplier.NormalizeName(sup.Name)
		for _, existing := range st.suppliers {
			if supplier.NormalizeName(existing.Name) == key {
				return apperror.NewDuplicate("supplier", "name", sup.Name)
			}
		}
		st.suppliers[sup.ID] = *sup
		return nil
	})
}

func (r *SupplierRepo) GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error) {
	var out *supplier.Supplier
	r.store.read(func(st *state) {
		if s, ok := st.suppliers[supplierID]; ok {
			out = &s
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("supplier", supplierID.String())
	}
	return out, nil
}

func (r *SupplierRepo) FindByName(ctx context.Context, name string) (*supplier.Supplier, error) {
	key := supplier.NormalizeName(name)
	var out *supplier.Supplier
	r.store.read(func(st *state) {
		for _, s := range st.suppliers {
			if supplier.NormalizeName(s.Name) == key {
				s := s
				out = &s
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("supplier", name)
	}
	return out, nil
}

func (r *SupplierRepo) List(ctx context.Context) ([]*supplier.Supplier, error) {
	var out []*supplier.Supplier
	r.store.read(func(st *state) {
		for _, s := range st.suppliers {
			s := s
			out = append(out, &s)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
