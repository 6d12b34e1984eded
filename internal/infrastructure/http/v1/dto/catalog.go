package dto

import (
	"time"

	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/catalogs/customer"
	"lotkeeper/internal/domain/catalogs/product"
	"lotkeeper/internal/domain/finance"
)

// CreateProductRequest is the body of POST /products. Stock arrives through receipts only.
type CreateProductRequest struct {
	Name        string         `json:"name" binding:"required"`
	Unit        string         `json:"unit" binding:"omitempty,oneof=un kg l"`
	MinStock    types.Quantity `json:"minStock"`
	CostPrice   types.Money    `json:"costPrice"`
	RetailPrice types.Money    `json:"retailPrice"`
	ExpiryDate  *time.Time     `json:"expiryDate"`
}

// ToEntity creates the product.
func (r CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Name, r.Unit)
	p.MinStock = r.MinStock
	p.CostPrice = r.CostPrice
	p.RetailPrice = r.RetailPrice
	p.ExpiryDate = r.ExpiryDate
	return p
}

// CreateCustomerRequest is the body of POST /customers.
type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

// ToEntity creates the customer.
func (r CreateCustomerRequest) ToEntity() *customer.Customer {
	return customer.NewCustomer(r.Name, r.Phone)
}

// PaymentRequest is a payment received against customer debt.
type PaymentRequest struct {
	Amount types.Money `json:"amount"`
}

// PaymentResponse reports the remaining balance.
type PaymentResponse struct {
	DebtBalance types.Money `json:"debtBalance"`
}

// LedgerQuery filters GET /ledger.
type LedgerQuery struct {
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
	Status string     `form:"status" binding:"omitempty,oneof=PAID PENDING"`
	Type   string     `form:"type" binding:"omitempty,oneof=INCOME EXPENSE"`
	Limit  int        `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ToFilter converts the query into a ledger filter.
func (q LedgerQuery) ToFilter() finance.Filter {
	f := finance.Filter{From: q.From, To: q.To, Limit: q.Limit}
	if q.Status != "" {
		s := finance.Status(q.Status)
		f.Status = &s
	}
	if q.Type != "" {
		t := finance.EntryType(q.Type)
		f.Type = &t
	}
	return f
}
