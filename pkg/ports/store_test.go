package ports_test

import (
	"context"
	"sort"
	"testing"

	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/ports"
)

// MockStore is an in-memory implementation of StateStore for testing purposes.
type MockStore struct {
	data map[domain.EntityID]*domain.EscapeState
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[domain.EntityID]*domain.EscapeState),
	}
}

func (m *MockStore) Save(ctx context.Context, state *domain.EscapeState) error {
	m.data[state.Entity] = state.Snapshot()
	return nil
}

func (m *MockStore) Load(ctx context.Context, entity domain.EntityID) (*domain.EscapeState, error) {
	state, ok := m.data[entity]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return state.Snapshot(), nil
}

func (m *MockStore) Delete(ctx context.Context, entity domain.EntityID) error {
	delete(m.data, entity)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]domain.EntityID, error) {
	out := make([]domain.EntityID, 0, len(m.data))
	for id := range m.data {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func TestStateStore_Contract(t *testing.T) {
	// The mock doubles as a sanity check of the contract suite itself.
	ports.RunStateStoreContract(t, NewMockStore())
}
