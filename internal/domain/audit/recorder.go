// Package audit defines the snapshot trail written before a document is reversed.
package audit

import (
	"context"
	"time"

	"lotkeeper/internal/core/id"
)

// Action identifies what happened to the audited document.
type Action string

const (
	ActionVoid    Action = "void"
	ActionReturn  Action = "return"
	ActionCancel  Action = "cancel"
	ActionCollect Action = "collect"
)

// Entry is one audit record. Snapshot holds the document state before the change.
type Entry struct {
	ID         id.ID     `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   id.ID     `json:"entityId"`
	Action     Action    `json:"action"`
	Snapshot   any       `json:"snapshot,omitempty"`
	Changes    any       `json:"changes,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Recorder persists audit entries inside the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// NewEntry builds an entry stamped with a fresh id and the current time.
func NewEntry(entityType string, entityID id.ID, action Action, snapshot, changes any) Entry {
	return Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Snapshot:   snapshot,
		Changes:    changes,
		RecordedAt: time.Now().UTC(),
	}
}
