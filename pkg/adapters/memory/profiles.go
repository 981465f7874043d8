package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/resist/pkg/domain"
)

// Profiles implements ports.ProfileSource using an in-memory map.
type Profiles struct {
	profiles map[string]domain.Profile
}

// NewProfiles creates a profile source from domain objects.
func NewProfiles(profiles ...domain.Profile) (*Profiles, error) {
	data := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		if p.Type == "" {
			return nil, fmt.Errorf("profile missing type")
		}
		if p.BaseResistTime < 0 {
			return nil, fmt.Errorf("profile %s has negative base resist time", p.Type)
		}
		data[p.Type] = p
	}
	return &Profiles{profiles: data}, nil
}

// Profile returns the profile of an entity type.
func (p *Profiles) Profile(ctx context.Context, typ string) (domain.Profile, error) {
	profile, ok := p.profiles[typ]
	if !ok {
		return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, typ)
	}
	return profile, nil
}

// ListProfiles returns all known entity types.
func (p *Profiles) ListProfiles(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(p.profiles))
	for k := range p.profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
