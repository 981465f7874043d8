package ports

import (
	"context"

	"github.com/aretw0/resist/pkg/domain"
)

// Notifier delivers a fire-and-forget message to an entity's player.
type Notifier interface {
	Notify(ctx context.Context, entity domain.EntityID, key domain.MessageKey)
}

// AffordanceRegistry binds player-facing controls (action buttons) to entities.
// Both operations are idempotent.
type AffordanceRegistry interface {
	// Grant gives entity a control of the given kind and returns its handle.
	// Granting a kind the entity already has returns the existing handle.
	Grant(ctx context.Context, entity domain.EntityID, kind domain.AffordanceKind) domain.AffordanceID

	// Revoke removes a control. Unknown handles are ignored.
	Revoke(ctx context.Context, entity domain.EntityID, id domain.AffordanceID)
}
