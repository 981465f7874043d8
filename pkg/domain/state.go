package domain

import (
	"fmt"
	"time"
)

// EscapeState is the per-entity escape record.
// It exists while the entity has the escape capability and is idle whenever
// no timed interaction is in flight.
type EscapeState struct {
	// Entity is the contained entity this record belongs to.
	Entity EntityID `json:"entity"`

	// Attempt is the handle of the in-flight timed interaction. Empty when idle.
	Attempt AttemptID `json:"attempt,omitempty"`

	// Container is the target of the in-flight attempt. Informational only:
	// containment is always re-queried, never trusted from here.
	Container EntityID `json:"container,omitempty"`

	// CancelAffordance is the handle of the granted cancel control.
	// Present iff Attempt is present.
	CancelAffordance AffordanceID `json:"cancel_affordance,omitempty"`

	// BaseResistTime is the time needed to escape under a 1x multiplier.
	BaseResistTime time.Duration `json:"base_resist_time"`

	// Multiplier is the difficulty of the in-flight attempt.
	Multiplier float64 `json:"multiplier,omitempty"`

	// StartedAt records when the in-flight attempt was started.
	StartedAt time.Time `json:"started_at,omitempty"`
}

// NewEscapeState creates an idle record for an entity that just gained the capability.
func NewEscapeState(entity EntityID, baseResist time.Duration) *EscapeState {
	return &EscapeState{
		Entity:         entity,
		BaseResistTime: baseResist,
	}
}

// IsEscaping reports whether an attempt is in flight.
// It is derived from the attempt handle so the two can never disagree.
func (s *EscapeState) IsEscaping() bool {
	return s.Attempt != ""
}

// Validate checks the record invariants.
func (s *EscapeState) Validate() error {
	if s.Entity == "" {
		return fmt.Errorf("%w: missing entity", ErrInvariantViolated)
	}
	if s.BaseResistTime < 0 {
		return fmt.Errorf("%w: negative base resist time for %s", ErrInvariantViolated, s.Entity)
	}
	if (s.Attempt == "") != (s.CancelAffordance == "") {
		return fmt.Errorf("%w: attempt %q and cancel affordance %q must be set together for %s",
			ErrInvariantViolated, s.Attempt, s.CancelAffordance, s.Entity)
	}
	return nil
}

// ClearAttempt returns the record to idle bookkeeping (affordance handled separately)
// and returns the handle that was active.
func (s *EscapeState) ClearAttempt() AttemptID {
	id := s.Attempt
	s.Attempt = ""
	s.Container = ""
	s.Multiplier = 0
	s.StartedAt = time.Time{}
	return id
}

// Snapshot returns a copy of the record safe to hand out to callers.
func (s *EscapeState) Snapshot() *EscapeState {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
