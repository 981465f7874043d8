package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/resist/pkg/domain"
	"github.com/google/uuid"
)

// ErrAffordanceNotFound is returned when activating a control the entity does not hold.
var ErrAffordanceNotFound = errors.New("affordance not found")

// ActivationFunc defines the handler run when a player presses a control.
type ActivationFunc func(ctx context.Context, entity domain.EntityID) error

// Affordance is a control granted to an entity.
type Affordance struct {
	ID   domain.AffordanceID   `json:"id"`
	Kind domain.AffordanceKind `json:"kind"`
}

// Registry manages the player-facing controls of every entity.
// It implements ports.AffordanceRegistry; Grant and Revoke are idempotent.
type Registry struct {
	mu       sync.RWMutex
	granted  map[domain.EntityID]map[domain.AffordanceKind]domain.AffordanceID
	handlers map[domain.AffordanceKind]ActivationFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		granted:  make(map[domain.EntityID]map[domain.AffordanceKind]domain.AffordanceID),
		handlers: make(map[domain.AffordanceKind]ActivationFunc),
	}
}

// Register binds the handler run when a control of kind is activated.
// If a handler for the same kind exists, it is overwritten.
func (r *Registry) Register(kind domain.AffordanceKind, fn ActivationFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = fn
}

// Grant gives entity a control of kind, returning the existing handle if it has one.
func (r *Registry) Grant(ctx context.Context, entity domain.EntityID, kind domain.AffordanceKind) domain.AffordanceID {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds, ok := r.granted[entity]
	if !ok {
		kinds = make(map[domain.AffordanceKind]domain.AffordanceID)
		r.granted[entity] = kinds
	}
	if id, ok := kinds[kind]; ok {
		return id
	}
	id := domain.AffordanceID(uuid.NewString())
	kinds[kind] = id
	return id
}

// Revoke removes a control. Unknown handles are ignored.
func (r *Registry) Revoke(ctx context.Context, entity domain.EntityID, id domain.AffordanceID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds, ok := r.granted[entity]
	if !ok {
		return
	}
	for kind, granted := range kinds {
		if granted == id {
			delete(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		delete(r.granted, entity)
	}
}

// Granted lists the controls entity currently holds, sorted by kind.
func (r *Registry) Granted(entity domain.EntityID) []Affordance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Affordance, 0, len(r.granted[entity]))
	for kind, id := range r.granted[entity] {
		out = append(out, Affordance{ID: id, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Activate runs the handler of a control entity holds.
// Returns an error if the control is not granted or its kind has no handler.
func (r *Registry) Activate(ctx context.Context, entity domain.EntityID, id domain.AffordanceID) error {
	r.mu.RLock()
	var (
		kind  domain.AffordanceKind
		found bool
	)
	for k, granted := range r.granted[entity] {
		if granted == id {
			kind, found = k, true
			break
		}
	}
	fn := r.handlers[kind]
	r.mu.RUnlock()

	if !found {
		return fmt.Errorf("%w: %s on %s", ErrAffordanceNotFound, id, entity)
	}
	if fn == nil {
		return fmt.Errorf("no handler registered for %s", kind)
	}
	return fn(ctx, entity)
}
