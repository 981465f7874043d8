package runtime

import (
	"context"
	"math"
	"time"

	"github.com/aretw0/resist/pkg/domain"
)

// classify resolves the contest for entity inside container.
// Order matters: a swallowed entity also counts as held by its container, and must
// take the fixed multiplier instead of entering the mass contest.
func (c *Controller) classify(ctx context.Context, entity domain.EntityID, container domain.Container) domain.Contest {
	switch {
	case c.deps.Markers != nil && c.deps.Markers.IsSwallowed(ctx, entity):
		return domain.Contest{Kind: domain.ContestSwallowed, Multiplier: c.swallowedMultiplier}

	case c.deps.Containment.IsHolding(ctx, container.Owner, entity):
		mult := 1.0
		if c.deps.Contest != nil {
			mult = c.deps.Contest.Disadvantage(ctx, container.Owner, entity, c.handRangeFactor)
		}
		return domain.Contest{Kind: domain.ContestHeld, Multiplier: mult}

	case container.Features.Uncontested():
		return domain.Contest{Kind: domain.ContestUncontested, Multiplier: 1}

	default:
		// Some containers simply offer no escape.
		return domain.Contest{Kind: domain.ContestNone}
	}
}

// sanitizeMultiplier keeps durations well defined for misbehaving evaluators.
// NaN, infinite and negative multipliers all become 0.
func sanitizeMultiplier(m float64) float64 {
	if math.IsNaN(m) || math.IsInf(m, 0) || m < 0 {
		return 0
	}
	return m
}

// scaleDuration returns base x mult, saturating instead of overflowing.
func scaleDuration(base time.Duration, mult float64) time.Duration {
	d := float64(base) * mult
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
