package model

import "time"

// EventType defines the type of collection change event.
type EventType string

const (
	// EventTypeCreated signifies a new item was created.
	EventTypeCreated EventType = "created"
	// EventTypeUpdated signifies an existing item was overwritten.
	EventTypeUpdated EventType = "updated"
	// EventTypeDeleted signifies an item was deleted.
	EventTypeDeleted EventType = "deleted"
)

// ChangeEvent represents one change to a named collection. Subscribers do not
// receive these directly; the synchronizer folds each into a full snapshot
// delivery and appends the event to the journal.
type ChangeEvent struct {
	Type       EventType      `json:"type"`
	Collection string         `json:"collection"`
	ItemID     string         `json:"itemId"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Sequence   int64          `json:"sequenceNumber"`
}
