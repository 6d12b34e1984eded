// Package events defines domain events emitted by reconcilers.
// Publishing happens inside the operation's transaction (transactional outbox),
// so an event exists if and only if the operation committed.
package events

import (
	"context"

	"lotkeeper/internal/core/id"
)

// Aggregate types
const (
	AggregateSale    = "Sale"
	AggregateReceipt = "Receipt"
	AggregateProduct = "Product"
	AggregateCount   = "InventoryCount"
)

// Event types
const (
	TypeSaleCompleted     = "sale.completed"
	TypeSaleVoided        = "sale.voided"
	TypeSaleItemsReturned = "sale.items_returned"
	TypeReceiptReceived   = "receipt.received"
	TypeReceiptCanceled   = "receipt.canceled"
	TypeStockBelowMinimum = "stock.below_minimum"
	TypeCountReconciled   = "inventory.count_reconciled"
)

// Event is a fact about a committed change.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Publisher writes events within the current transaction.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Discard drops every event. Used when no relay is configured.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, Event) error { return nil }
