package ports

import (
	"context"

	"github.com/aretw0/resist/pkg/domain"
)

// StateStore defines the interface for persisting escape records.
type StateStore interface {
	// Save persists the record for its entity.
	Save(ctx context.Context, state *domain.EscapeState) error

	// Load retrieves the record of an entity.
	// Returns domain.ErrStateNotFound if the entity has none.
	Load(ctx context.Context, entity domain.EntityID) (*domain.EscapeState, error)

	// Delete removes the record of an entity. Deleting a missing record is not an error.
	Delete(ctx context.Context, entity domain.EntityID) error

	// List returns the entities that currently have a record.
	List(ctx context.Context) ([]domain.EntityID, error)
}
