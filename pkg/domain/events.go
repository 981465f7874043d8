package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventAttemptStart EventType = "attempt_start"
	EventAttemptEnd   EventType = "attempt_end"
	EventRejected     EventType = "rejected"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Entity    EntityID  `json:"entity"`
}

// AttemptEvent represents the start or the end of an escape attempt.
type AttemptEvent struct {
	EventBase
	Attempt    AttemptID     `json:"attempt"`
	Container  EntityID      `json:"container,omitempty"`
	Contest    ContestKind   `json:"contest,omitempty"`
	Multiplier float64       `json:"multiplier,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Outcome    Outcome       `json:"outcome,omitempty"`
	Release    ReleasePath   `json:"release,omitempty"`
}

// RejectionEvent is emitted when an attempt is refused because removal is blocked.
type RejectionEvent struct {
	EventBase
	Container EntityID `json:"container"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnAttemptStart func(context.Context, *AttemptEvent)
	OnAttemptEnd   func(context.Context, *AttemptEvent)
	OnRejected     func(context.Context, *RejectionEvent)
}
