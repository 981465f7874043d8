package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/loam"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Catalog adapts a Loam repository of profile documents to ports.ProfileSource.
type Catalog struct {
	Repo *loam.TypedRepository[ProfileMetadata]
}

// New creates a new Loam catalog.
func New(repo *loam.TypedRepository[ProfileMetadata]) *Catalog {
	return &Catalog{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at dir.
// Strict mode makes every adapter (Markdown, YAML, JSON) report numbers the same way.
func Open(dir string) (*Catalog, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[ProfileMetadata](repo)), nil
}

// Profile returns the profile of an entity type.
// Documents are matched by their "type" key, or by file name when it is absent.
func (c *Catalog) Profile(ctx context.Context, typ string) (domain.Profile, error) {
	if doc, err := c.Repo.Get(ctx, typ); err == nil {
		if id := profileID(doc.ID, doc.Data); id == typ {
			return toProfile(id, doc.Data)
		}
	}

	// Fall back to a scan: the "type" key may differ from the file name.
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("loam list failed: %w", err)
	}
	for _, doc := range docs {
		if id := profileID(doc.ID, doc.Data); id == typ {
			return toProfile(id, doc.Data)
		}
	}
	return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, typ)
}

// ListProfiles lists all entity types in the repository.
func (c *Catalog) ListProfiles(ctx context.Context) ([]string, error) {
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	types := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := profileID(doc.ID, doc.Data)

		// Collision Detection
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: profile '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID
		types = append(types, id)
	}
	sort.Strings(types)
	return types, nil
}

func profileID(docID string, meta ProfileMetadata) string {
	if meta.Type != "" {
		return meta.Type
	}
	return trimExtension(filepath.Base(docID))
}

func toProfile(id string, meta ProfileMetadata) (domain.Profile, error) {
	base, err := parseDuration(meta.BaseResistTime)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("profile %s: invalid base_resist_time: %w", id, err)
	}
	if base < 0 {
		return domain.Profile{}, fmt.Errorf("profile %s: negative base_resist_time", id)
	}

	var mass float64
	if meta.Mass != nil {
		if err := mapstructure.WeakDecode(meta.Mass, &mass); err != nil {
			return domain.Profile{}, fmt.Errorf("profile %s: invalid mass: %w", id, err)
		}
	}

	return domain.Profile{Type: id, BaseResistTime: base, Mass: mass}, nil
}

// parseDuration accepts Go duration strings and plain numbers of seconds.
func parseDuration(raw any) (time.Duration, error) {
	if raw == nil {
		return domain.DefaultBaseResistTime, nil
	}
	if s, ok := raw.(string); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, nil
		}
	}

	var seconds float64
	if err := mapstructure.WeakDecode(raw, &seconds); err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	return strings.TrimSuffix(id, ext)
}
