// Package supplier provides the supplier registry collaborator.
package supplier

import (
	"strings"
	"time"

	"lotkeeper/internal/core/id"
)

// Supplier is looked up by case-insensitive name.
type Supplier struct {
	ID    id.ID  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Phone string `db:"phone" json:"phone,omitempty"`
	Email string `db:"email" json:"email,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewSupplier creates a supplier with blank contact fields.
func NewSupplier(name string) *Supplier {
	return &Supplier{
		ID:        id.New(),
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
}

// NormalizeName is the comparison key of a supplier name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
