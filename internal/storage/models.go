package storage

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventKindHotplug EventKind = "hotplug"
	EventKindPower   EventKind = "power"
)

// EventRecord is one row of the interface_events journal.
type EventRecord struct {
	ID        uuid.UUID `json:"id"`
	Interface string    `json:"interface"`
	Kind      EventKind `json:"kind"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	CreatedAt time.Time `json:"created_at"`
}
