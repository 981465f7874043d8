package domain

import "time"

// Tuning defaults shared by the engine, the config layer and the in-memory world.
const (
	// DefaultHandRangeFactor scales the mass contest when escaping a hand grip.
	DefaultHandRangeFactor = 3.0

	// DefaultSwallowedMultiplier is the fixed difficulty for internally held entities.
	DefaultSwallowedMultiplier = 5.0

	// DefaultMaxMassDisadvantage caps the mass contest: a grip this many times
	// heavier than the contained entity cannot get any harder to escape.
	DefaultMaxMassDisadvantage = 6.0

	// DefaultBaseResistTime is used when an entity type has no profile.
	DefaultBaseResistTime = 5 * time.Second
)
