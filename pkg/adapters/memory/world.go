package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/aretw0/resist/pkg/domain"
)

// ErrUnknownEntity is returned for operations on entities the world does not hold.
var ErrUnknownEntity = errors.New("unknown entity")

// Entity is one object of the in-memory world.
type Entity struct {
	ID   domain.EntityID `json:"id"`
	Type string          `json:"type,omitempty"`
	Mass float64         `json:"mass,omitempty"`

	// Parent is the immediate container. Empty means the entity lies in the world.
	Parent domain.EntityID `json:"parent,omitempty"`
	// Features are the container capabilities this entity offers to its children.
	Features domain.ContainerFeatures `json:"features,omitempty"`

	InHand        bool            `json:"in_hand,omitempty"`       // gripped by Parent's hand
	Swallowed     bool            `json:"swallowed,omitempty"`     // held inside Parent's body
	Pinned        bool            `json:"pinned,omitempty"`        // cannot be removed from Parent
	Incapacitated bool            `json:"incapacitated,omitempty"` // cannot interact at all
	CarriedBy     domain.EntityID `json:"carried_by,omitempty"`
}

// World is an in-memory containment graph. It implements ports.ContainmentQuery,
// ports.MarkerQuery, ports.InteractionPolicy, ports.ContestEvaluator, ports.Carrying
// and ports.Detacher.
// Safe for concurrent use.
type World struct {
	mu              sync.RWMutex
	entities        map[domain.EntityID]*Entity
	maxDisadvantage float64
}

// WorldOption configures the World.
type WorldOption func(*World)

// WithMaxDisadvantage caps the mass contest.
func WithMaxDisadvantage(limit float64) WorldOption {
	return func(w *World) {
		if limit > 0 {
			w.maxDisadvantage = limit
		}
	}
}

// NewWorld creates an empty world.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		entities:        make(map[domain.EntityID]*Entity),
		maxDisadvantage: domain.DefaultMaxMassDisadvantage,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add inserts or replaces an entity.
func (w *World) Add(e Entity) error {
	if e.ID == "" {
		return fmt.Errorf("entity missing id")
	}
	if e.Parent == e.ID {
		return fmt.Errorf("entity %s cannot contain itself", e.ID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	cp := e
	w.entities[e.ID] = &cp
	return nil
}

// Get returns a copy of an entity.
func (w *World) Get(id domain.EntityID) (Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Entities returns copies of all entities, sorted by ID.
func (w *World) Entities() []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Update applies fn to an entity.
func (w *World) Update(id domain.EntityID, fn func(e *Entity)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	fn(e)
	return nil
}

// Drop removes an entity from its container onto the container's parent, the way
// an external system (a hand letting go, a player emptying a box) would.
func (w *World) Drop(id domain.EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	w.detachLocked(e)
	return nil
}

// ContainerOf implements ports.ContainmentQuery.
func (w *World) ContainerOf(ctx context.Context, entity domain.EntityID) (domain.Container, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[entity]
	if !ok || e.Parent == "" {
		return domain.Container{}, false
	}
	c := domain.Container{Owner: e.Parent}
	if parent, ok := w.entities[e.Parent]; ok {
		c.Features = parent.Features
	}
	return c, true
}

// CanRemove implements ports.ContainmentQuery.
func (w *World) CanRemove(ctx context.Context, entity domain.EntityID, container domain.Container) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[entity]
	return ok && e.Parent == container.Owner && !e.Pinned
}

// IsHolding implements ports.ContainmentQuery.
func (w *World) IsHolding(ctx context.Context, holder, entity domain.EntityID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[entity]
	return ok && e.Parent == holder && e.InHand
}

// IsSwallowed implements ports.MarkerQuery.
func (w *World) IsSwallowed(ctx context.Context, entity domain.EntityID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[entity]
	return ok && e.Swallowed
}

// CanInteract implements ports.InteractionPolicy.
func (w *World) CanInteract(ctx context.Context, entity, target domain.EntityID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[entity]
	return ok && !e.Incapacitated
}

// Disadvantage implements ports.ContestEvaluator as a mass ratio.
// The result lies in [1/rangeFactor, min(rangeFactor, maxDisadvantage)].
func (w *World) Disadvantage(ctx context.Context, container, contained domain.EntityID, rangeFactor float64) float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	c, okC := w.entities[container]
	e, okE := w.entities[contained]
	if !okC || !okE || c.Mass <= 0 || e.Mass <= 0 || rangeFactor <= 0 {
		return 1
	}

	upper := math.Min(rangeFactor, w.maxDisadvantage)
	lower := math.Min(1/rangeFactor, upper)
	return math.Max(lower, math.Min(upper, c.Mass/e.Mass))
}

// CarrierOf implements ports.Carrying.
func (w *World) CarrierOf(ctx context.Context, entity domain.EntityID) (domain.EntityID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[entity]
	if !ok || e.CarriedBy == "" {
		return "", false
	}
	return e.CarriedBy, true
}

// DropCarried implements ports.Carrying.
func (w *World) DropCarried(ctx context.Context, carrier, entity domain.EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[entity]
	if !ok || e.CarriedBy != carrier {
		return
	}
	w.detachLocked(e)
}

// AttachToContainerOrWorld implements ports.Detacher.
func (w *World) AttachToContainerOrWorld(ctx context.Context, entity domain.EntityID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entities[entity]; ok {
		w.detachLocked(e)
	}
}

// detachLocked moves e next to its container: into the container's own parent,
// or into the world when the container has none.
func (w *World) detachLocked(e *Entity) {
	var next domain.EntityID
	if parent, ok := w.entities[e.Parent]; ok {
		next = parent.Parent
	}
	e.Parent = next
	e.InHand = false
	e.Swallowed = false
	e.Pinned = false
	e.CarriedBy = ""
}
