package history

import (
	"context"
	"time"
)

// EventType is the kind of profile lifecycle event.
type EventType string

const (
	EventStart        EventType = "start"
	EventStop         EventType = "stop"
	EventRestart      EventType = "restart"
	EventSpawnFailure EventType = "spawn_failure"
	EventConnTimeout  EventType = "conn_timeout"
)

// Event is one profile lifecycle occurrence, exported to an external store
// for audit and statistics.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Profile    string    `json:"profile"`
	Group      string    `json:"group,omitempty"`
	PID        int       `json:"pid,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for lifecycle events. Implementations must be safe
// for concurrent use; Send failures are the caller's to ignore.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
