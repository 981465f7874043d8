package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/resist/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[domain.EntityID]*domain.EscapeState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[domain.EntityID]*domain.EscapeState),
	}
}

// Save persists the record in memory.
func (s *Store) Save(ctx context.Context, state *domain.EscapeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[state.Entity] = state.Snapshot()
	return nil
}

// Load retrieves a copy of the record, so callers can't mutate the store by pointer.
func (s *Store) Load(ctx context.Context, entity domain.EntityID) (*domain.EscapeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[entity]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return state.Snapshot(), nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, entity domain.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, entity)
	return nil
}

// List returns the entities with a record, sorted.
func (s *Store) List(ctx context.Context) ([]domain.EntityID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entities := make([]domain.EntityID, 0, len(s.data))
	for id := range s.data {
		entities = append(entities, id)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })
	return entities, nil
}
