// Package finance provides the income/expense ledger.
package finance

import (
	"context"
	"strings"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// EntryType is the direction of money.
type EntryType string

const (
	TypeIncome  EntryType = "INCOME"
	TypeExpense EntryType = "EXPENSE"
)

// Status of a ledger entry. PENDING -> PAID is the only transition.
type Status string

const (
	StatusPaid    Status = "PAID"
	StatusPending Status = "PENDING"
)

// Categories written by the reconcilers.
const (
	CategorySales        = "Sales"
	CategoryPurchases    = "Purchases"
	CategoryRefund       = "Refund"
	CategoryCancellation = "Cancellation"
)

// Source documents an entry can originate from.
const (
	SourceSale    = "Sale"
	SourceReceipt = "Receipt"
)

// LineItem links a purchase expense to the products it paid for.
type LineItem struct {
	ID            id.ID          `db:"id" json:"id"`
	TransactionID id.ID          `db:"transaction_id" json:"transactionId"`
	LineNo        int            `db:"line_no" json:"lineNo"`
	ProductID     id.ID          `db:"product_id" json:"productId"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	UnitCost      types.Money    `db:"unit_cost" json:"unitCost"`
	ExpiryDate    *time.Time     `db:"expiry_date" json:"expiryDate,omitempty"`
}

// Transaction is one ledger entry.
type Transaction struct {
	ID          id.ID       `db:"id" json:"id"`
	Type        EntryType   `db:"entry_type" json:"type"`
	Category    string      `db:"category" json:"category"`
	Amount      types.Money `db:"amount" json:"amount"`
	PostedDate  time.Time   `db:"posted_date" json:"postedDate"`
	DueDate     *time.Time  `db:"due_date" json:"dueDate,omitempty"`
	Status      Status      `db:"status" json:"status"`
	Description string      `db:"description" json:"description"`

	// GroupID is shared by every installment of one purchase
	GroupID          *id.ID `db:"group_id" json:"groupId,omitempty"`
	InstallmentNo    int    `db:"installment_no" json:"installmentNo,omitempty"`
	InstallmentCount int    `db:"installment_count" json:"installmentCount,omitempty"`

	SourceType string `db:"source_type" json:"sourceType,omitempty"`
	SourceID   *id.ID `db:"source_id" json:"sourceId,omitempty"`

	PaidAt    *time.Time `db:"paid_at" json:"paidAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`

	LineItems []LineItem `db:"-" json:"lineItems,omitempty"`
}

// NewTransaction creates an entry dated at posted (now when zero).
func NewTransaction(entryType EntryType, category string, amount types.Money, status Status, description string, posted time.Time) *Transaction {
	now := time.Now().UTC()
	if posted.IsZero() {
		posted = now
	}
	t := &Transaction{
		ID:          id.New(),
		Type:        entryType,
		Category:    category,
		Amount:      types.RoundMoney(amount),
		PostedDate:  posted.UTC(),
		Status:      status,
		Description: description,
		CreatedAt:   now,
	}
	if status == StatusPaid {
		paid := t.PostedDate
		t.PaidAt = &paid
	}
	return t
}

// Validate implements entity.Validatable interface.
func (t *Transaction) Validate(ctx context.Context) error {
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return apperror.NewValidation("invalid transaction type").WithDetail("value", string(t.Type))
	}
	if t.Status != StatusPaid && t.Status != StatusPending {
		return apperror.NewValidation("invalid transaction status").WithDetail("value", string(t.Status))
	}
	if t.Amount.IsNegative() {
		return apperror.NewValidation("amount cannot be negative").
			WithDetail("field", "amount").
			WithDetail("value", t.Amount.String())
	}
	if t.Status == StatusPending && t.DueDate == nil {
		return apperror.NewValidation("pending entries require a due date").WithDetail("field", "dueDate")
	}
	if strings.TrimSpace(t.Description) == "" {
		return apperror.NewValidation("description is required").WithDetail("field", "description")
	}
	for i, l := range t.LineItems {
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("line quantity must be positive").WithDetail("line", i+1)
		}
		if l.UnitCost.IsNegative() {
			return apperror.NewValidation("line unit cost cannot be negative").WithDetail("line", i+1)
		}
	}
	return nil
}

// AttachLines stamps lines with this entry's id and line numbers.
func (t *Transaction) AttachLines(lines []LineItem) {
	t.LineItems = make([]LineItem, len(lines))
	for i, l := range lines {
		l.ID = id.New()
		l.TransactionID = t.ID
		l.LineNo = i + 1
		t.LineItems[i] = l
	}
}

// Filter for ledger queries.
type Filter struct {
	From   *time.Time
	To     *time.Time
	Status *Status
	Type   *EntryType
	Limit  int
}

// Matches reports whether t passes the filter (posted date window, status, type).
func (f Filter) Matches(t *Transaction) bool {
	if f.From != nil && t.PostedDate.Before(*f.From) {
		return false
	}
	if f.To != nil && !t.PostedDate.Before(*f.To) {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	return true
}

// Summary aggregates a ledger window.
type Summary struct {
	IncomePaid     types.Money `json:"incomePaid"`
	IncomePending  types.Money `json:"incomePending"`
	ExpensePaid    types.Money `json:"expensePaid"`
	ExpensePending types.Money `json:"expensePending"`
	Balance        types.Money `json:"balance"`
}
