// Package file persists escape records as one JSON document per entity.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/resist/pkg/domain"
)

const ext = ".json"

// DefaultDir is used when New is given an empty directory.
var DefaultDir = filepath.Join(".resist", "escape")

// Store implements ports.StateStore on the local filesystem.
// Records survive restarts; concurrent writers to the same entity are serialized by the engine.
type Store struct {
	Dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{Dir: dir}
}

// path maps an entity to its file. IDs are escaped so separators can't leave Dir.
func (s *Store) path(entity domain.EntityID) string {
	return filepath.Join(s.Dir, url.PathEscape(string(entity))+ext)
}

// Save writes the record atomically: temp file, fsync, rename.
func (s *Store) Save(ctx context.Context, state *domain.EscapeState) error {
	if state == nil || state.Entity == "" {
		return fmt.Errorf("save escape state: %w", domain.ErrInvariantViolated)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Same directory as the destination so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(s.Dir, ".tmp-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := s.path(state.Entity)
	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to replace state file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	return nil
}

// Load reads the record of entity.
func (s *Store) Load(ctx context.Context, entity domain.EntityID) (*domain.EscapeState, error) {
	data, err := os.ReadFile(s.path(entity))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state domain.EscapeState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes the record. Missing records are not an error.
func (s *Store) Delete(ctx context.Context, entity domain.EntityID) error {
	if err := os.Remove(s.path(entity)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	return nil
}

// List returns the entities with a record, sorted.
func (s *Store) List(ctx context.Context) ([]domain.EntityID, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.EntityID{}, nil
		}
		return nil, fmt.Errorf("failed to list states: %w", err)
	}

	out := make([]domain.EntityID, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		out = append(out, domain.EntityID(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
