package entity

import (
	"context"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without store access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Document is the base of business transactions (sales, receipts, counts).
type Document struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Number is the human-facing document number (e.g. V-2026-00001)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"doc_date" json:"date"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewDocument creates a Document with generated ID dated at date
// (now when date is zero).
func NewDocument(date time.Time) Document {
	now := time.Now().UTC()
	if date.IsZero() {
		date = now
	}
	return Document{
		ID:        id.New(),
		Date:      date.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// Touch updates the UpdatedAt timestamp.
func (d *Document) Touch() {
	d.UpdatedAt = time.Now().UTC()
}
