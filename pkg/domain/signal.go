package domain

import "time"

// TimedRequest describes a timed interaction to schedule.
type TimedRequest struct {
	Actor         EntityID      `json:"actor"`
	Target        EntityID      `json:"target"`
	Duration      time.Duration `json:"duration"`
	BreakOnMove   bool          `json:"break_on_move"`
	BreakOnDamage bool          `json:"break_on_damage"`
	NeedHand      bool          `json:"need_hand"`
}

// Completion is the signal delivered when a timed interaction ends.
// Handlers may set Handled to tell later subscribers the outcome was consumed.
type Completion struct {
	Attempt   AttemptID `json:"attempt"`
	Actor     EntityID  `json:"actor"`
	Target    EntityID  `json:"target"`
	Handled   bool      `json:"handled"`
	Cancelled bool      `json:"cancelled"`
}

// Outcome is how an attempt left the escaping state.
type Outcome string

const (
	OutcomeSucceeded   Outcome = "succeeded"   // timer completed and release ran
	OutcomeAborted     Outcome = "aborted"     // completion arrived already handled or cancelled
	OutcomeCancelled   Outcome = "cancelled"   // cancel affordance activated
	OutcomeInterrupted Outcome = "interrupted" // dropped or removed externally
	OutcomeStripped    Outcome = "stripped"    // escape capability removed
)

// ReleasePath is the release behavior picked on success.
type ReleasePath string

const (
	ReleaseNone        ReleasePath = "none"         // nothing left to release from
	ReleaseCarriedDrop ReleasePath = "carried_drop" // carrying feature dropped the entity
	ReleaseDetach      ReleasePath = "detach"       // detached to the container's parent or world
)

// MessageKey identifies a localizable notification.
type MessageKey string

const (
	MsgFailedResisting      MessageKey = "escape.failed_resisting"
	MsgStartResisting       MessageKey = "escape.start_resisting"
	MsgStartResistingTarget MessageKey = "escape.start_resisting_target"
)
