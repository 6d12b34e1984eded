// Package entity provides core domain entities shared by documents and registers.
package entity

import (
	"time"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

// RecordType defines movement direction. Direction is never carried by sign.
type RecordType string

const (
	// RecordTypeEntry increases on-hand quantity
	RecordTypeEntry RecordType = "ENTRY"
	// RecordTypeExit decreases on-hand quantity
	RecordTypeExit RecordType = "EXIT"
)

// IsValid reports whether t is a known direction.
func (t RecordType) IsValid() bool {
	return t == RecordTypeEntry || t == RecordTypeExit
}

// MovementBase contains common fields for all register movements.
// Movements are immutable: corrections are new compensating movements.
type MovementBase struct {
	// ID is unique identifier for this movement line (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Sequence is the store-assigned insertion order, used as a tie-break
	// when two movements share OccurredAt.
	Sequence int64 `db:"seq" json:"sequence"`

	// RecorderID is the document that created this movement (nil for manual edits)
	RecorderID *id.ID `db:"recorder_id" json:"recorderId,omitempty"`

	// RecorderType is the document type (e.g., "Sale", "Receipt")
	RecorderType string `db:"recorder_type" json:"recorderType,omitempty"`

	// OccurredAt is the business timestamp of the movement
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`

	// RecordType: ENTRY or EXIT
	RecordType RecordType `db:"movement_type" json:"type"`

	// CreatedAt is when the movement was recorded
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovementBase creates a new movement base with generated ID.
func NewMovementBase(recorderID *id.ID, recorderType string, occurredAt time.Time, recordType RecordType) MovementBase {
	now := time.Now().UTC()
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return MovementBase{
		ID:           id.New(),
		RecorderID:   recorderID,
		RecorderType: recorderType,
		OccurredAt:   occurredAt.UTC(),
		RecordType:   recordType,
		CreatedAt:    now,
	}
}

// StockMovement is one append-only entry of the movement log.
type StockMovement struct {
	MovementBase

	ProductID id.ID `db:"product_id" json:"productId"`

	// Quantity is always positive
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Reason tags the triggering event ("Sale #V-2026-00001", "inventory count")
	Reason string `db:"reason" json:"reason"`
}

// SignedQuantity returns quantity with sign based on record type.
// Entry = positive, Exit = negative.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.RecordType == RecordTypeExit {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
