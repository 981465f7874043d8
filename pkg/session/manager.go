package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/resist/internal/logging"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed entity lock may be held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// TransitionFunc mutates a record in place and reports whether it changed.
type TransitionFunc func(ctx context.Context, state *domain.EscapeState) (changed bool, err error)

// Manager orchestrates record access, ensuring one transition at a time per entity.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex                     // Global lock for the map
	locks map[domain.EntityID]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiration of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager with the given persistence store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[domain.EntityID]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(entity) after unlocking.
func (m *Manager) acquire(entity domain.EntityID) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[entity]
	if !exists {
		entry = &lockEntry{}
		m.locks[entity] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(entity domain.EntityID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[entity]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, entity)
	}
}

// Load retrieves a snapshot of an entity's record.
func (m *Manager) Load(ctx context.Context, entity domain.EntityID) (*domain.EscapeState, error) {
	var state *domain.EscapeState
	err := m.WithLock(ctx, entity, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, entity)
		return err
	})
	return state, err
}

// Attach creates the record of an entity that gained the escape capability.
// If a record already exists only its base resist time is refreshed.
func (m *Manager) Attach(ctx context.Context, entity domain.EntityID, baseResist time.Duration) (*domain.EscapeState, error) {
	var state *domain.EscapeState
	err := m.WithLock(ctx, entity, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, entity)
		switch {
		case err == nil:
			state.BaseResistTime = baseResist
		case errors.Is(err, domain.ErrStateNotFound):
			state = domain.NewEscapeState(entity, baseResist)
		default:
			return fmt.Errorf("failed to check escape state: %w", err)
		}

		if err := state.Validate(); err != nil {
			return err
		}
		if err := m.store.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to save escape state: %w", err)
		}
		return nil
	})
	return state, err
}

// Update applies fn to the entity's record under its lock.
// The record is validated and saved only when fn reports a change.
func (m *Manager) Update(ctx context.Context, entity domain.EntityID, fn TransitionFunc) error {
	return m.Apply(ctx, entity, fn, nil)
}

// Apply is Update followed by commit, still under the entity's lock.
// commit runs only once the transition succeeded and its record, if changed, was saved.
func (m *Manager) Apply(ctx context.Context, entity domain.EntityID, fn TransitionFunc, commit func(context.Context)) error {
	return m.WithLock(ctx, entity, func(ctx context.Context) error {
		state, err := m.store.Load(ctx, entity)
		if err != nil {
			return err
		}

		changed, err := fn(ctx, state)
		if err != nil {
			return err
		}
		if changed {
			if err := state.Validate(); err != nil {
				return err
			}
			if err := m.store.Save(ctx, state); err != nil {
				return fmt.Errorf("failed to save escape state: %w", err)
			}
		}

		if commit != nil {
			commit(ctx)
		}
		return nil
	})
}

// Remove applies fn to the entity's record under its lock and then deletes the record.
func (m *Manager) Remove(ctx context.Context, entity domain.EntityID, fn TransitionFunc) error {
	return m.WithLock(ctx, entity, func(ctx context.Context) error {
		state, err := m.store.Load(ctx, entity)
		if err != nil {
			return err
		}
		if fn != nil {
			if _, err := fn(ctx, state); err != nil {
				return err
			}
		}
		return m.store.Delete(ctx, entity)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]domain.EntityID, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock executes a function while holding the lock for the entity.
func (m *Manager) WithLock(ctx context.Context, entity domain.EntityID, fn func(context.Context) error) error {
	entry := m.acquire(entity)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(entity)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, string(entity), m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"entity", entity,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
