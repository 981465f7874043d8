package ports

import (
	"context"

	"github.com/aretw0/resist/pkg/domain"
)

// ProfileSource resolves the static profile of an entity type.
// This allows profile storage (documents, memory) to be decoupled.
type ProfileSource interface {
	// Profile returns the profile of typ, or domain.ErrProfileNotFound.
	Profile(ctx context.Context, typ string) (domain.Profile, error)

	// ListProfiles returns all known entity types.
	ListProfiles(ctx context.Context) ([]string, error)
}
