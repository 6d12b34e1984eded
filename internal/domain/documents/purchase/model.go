// Package purchase provides stock receipts (purchases, donations, bonuses,
// adjustments) and their reconciler.
package purchase

import (
	"time"

	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// Status of a receipt.
type Status string

const (
	StatusReceived Status = "RECEIVED"
	StatusCanceled Status = "CANCELED"
)

// ReceiptLine keeps the links a cancellation needs: the batch created for the
// line and the ledger entry that paid for it.
type ReceiptLine struct {
	ID            id.ID          `db:"id" json:"id"`
	ReceiptID     id.ID          `db:"receipt_id" json:"-"`
	LineNo        int            `db:"line_no" json:"lineNo"`
	ProductID     id.ID          `db:"product_id" json:"productId"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	UnitCost      types.Money    `db:"unit_cost" json:"unitCost"`
	RetailPrice   types.Money    `db:"retail_price" json:"retailPrice"`
	ExpiryDate    *time.Time     `db:"expiry_date" json:"expiryDate,omitempty"`
	BatchID       *id.ID         `db:"batch_id" json:"batchId,omitempty"`
	TransactionID *id.ID         `db:"transaction_id" json:"transactionId,omitempty"`
}

// Receipt is the persisted record of an Entry. Its ID is the installment
// group id of the expense entries it created.
type Receipt struct {
	entity.Document

	Kind         Kind        `db:"kind" json:"kind"`
	SupplierID   *id.ID      `db:"supplier_id" json:"supplierId,omitempty"`
	SupplierName string      `db:"supplier_name" json:"supplierName"`
	Total        types.Money `db:"total" json:"total"`
	Status       Status      `db:"status" json:"status"`
	CanceledAt   *time.Time  `db:"canceled_at" json:"canceledAt,omitempty"`

	Lines []ReceiptLine `db:"-" json:"lines"`
}

// IsCanceled reports whether the receipt was reversed.
func (r *Receipt) IsCanceled() bool { return r.Status == StatusCanceled }
