package ports

import (
	"context"

	"github.com/aretw0/resist/pkg/domain"
)

// ContainmentQuery answers who currently holds an entity.
// Answers may change between any two calls; callers must not cache them.
type ContainmentQuery interface {
	// ContainerOf returns the immediate container of entity, if any.
	ContainerOf(ctx context.Context, entity domain.EntityID) (domain.Container, bool)

	// CanRemove reports whether entity may currently be removed from container (e.g. not glued).
	CanRemove(ctx context.Context, entity domain.EntityID, container domain.Container) bool

	// IsHolding reports whether holder grips entity directly in a hand.
	IsHolding(ctx context.Context, holder, entity domain.EntityID) bool
}

// MarkerQuery exposes markers carried by the contained entity itself.
type MarkerQuery interface {
	// IsSwallowed reports whether entity is held internally by its container.
	IsSwallowed(ctx context.Context, entity domain.EntityID) bool
}

// InteractionPolicy decides whether an entity can act on a target at all (e.g. not stunned).
type InteractionPolicy interface {
	CanInteract(ctx context.Context, entity, target domain.EntityID) bool
}

// ContestEvaluator compares two entities physically.
type ContestEvaluator interface {
	// Disadvantage returns a factor >= 0; higher means harder for contained to escape.
	Disadvantage(ctx context.Context, container, contained domain.EntityID, rangeFactor float64) float64
}

// Carrying is the carrying feature, which records its own carrier relationship.
type Carrying interface {
	// CarrierOf returns the entity carrying entity, if any.
	CarrierOf(ctx context.Context, entity domain.EntityID) (domain.EntityID, bool)

	// DropCarried ends the carry relationship and releases entity.
	DropCarried(ctx context.Context, carrier, entity domain.EntityID)
}

// Detacher performs the generic release: remove entity from its container and
// attach it to the nearest valid spatial parent (the container's parent or the world).
type Detacher interface {
	AttachToContainerOrWorld(ctx context.Context, entity domain.EntityID)
}
