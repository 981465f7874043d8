package domain

import "errors"

// ErrStateNotFound is returned when no escape state is stored for an entity.
var ErrStateNotFound = errors.New("escape state not found")

// ErrNotEscapeCapable is returned when an escape is forced on an entity that lacks the capability.
var ErrNotEscapeCapable = errors.New("entity cannot escape")

// ErrInvariantViolated is returned when a transition would persist an inconsistent record.
var ErrInvariantViolated = errors.New("escape state invariant violated")

// ErrUnknownTrigger is returned when a trigger kind is not recognized.
var ErrUnknownTrigger = errors.New("unknown trigger")

// ErrProfileNotFound is returned when an entity type has no registered profile.
var ErrProfileNotFound = errors.New("profile not found")
