// Package customer provides the customer collaborator and its debt balance.
package customer

import (
	"context"
	"strings"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// Customer holds the receivable balance built by deferred sales.
type Customer struct {
	ID    id.ID  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Phone string `db:"phone" json:"phone,omitempty"`

	// DebtBalance is never negative
	DebtBalance types.Money `db:"debt_balance" json:"debtBalance"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewCustomer creates a customer with no debt.
func NewCustomer(name, phone string) *Customer {
	now := time.Now().UTC()
	return &Customer{
		ID:          id.New(),
		Name:        strings.TrimSpace(name),
		Phone:       strings.TrimSpace(phone),
		DebtBalance: types.Zero(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate implements entity.Validatable interface.
func (c *Customer) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if c.DebtBalance.IsNegative() {
		return apperror.NewValidation("debt balance cannot be negative").
			WithDetail("field", "debtBalance")
	}
	return nil
}
