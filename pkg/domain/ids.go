package domain

// EntityID identifies anything in the world: contained entities, containers, carriers.
type EntityID string

// AttemptID is an opaque handle to an in-flight timed interaction.
type AttemptID string

// AffordanceID is an opaque handle to a player-facing control bound to an entity.
type AffordanceID string

// AffordanceKind names a family of controls an entity can be granted.
type AffordanceKind string

const (
	// AffordanceCancelEscape is the control that aborts an escape attempt in progress.
	AffordanceCancelEscape AffordanceKind = "cancel-escape"
)
