package ports

import (
	"context"

	"github.com/aretw0/resist/pkg/domain"
)

// EscapeEngine is the surface driving adapters (HTTP, MCP, runners) use.
type EscapeEngine interface {
	// HandleMove evaluates a movement-intent observation.
	HandleMove(ctx context.Context, entity domain.EntityID, move domain.MoveInput) error

	// HandleCancel processes an activation of the cancel affordance.
	HandleCancel(ctx context.Context, entity domain.EntityID) error

	// HandleDrop processes an external drop/removal of the entity.
	HandleDrop(ctx context.Context, entity domain.EntityID) error

	// State returns a snapshot of the entity's escape record.
	State(ctx context.Context, entity domain.EntityID) (*domain.EscapeState, error)
}
