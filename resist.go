package resist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/resist/internal/logging"
	"github.com/aretw0/resist/internal/runtime"
	"github.com/aretw0/resist/pkg/adapters/memory"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/ports"
	"github.com/aretw0/resist/pkg/session"
)

// Version is the library version reported by the CLI and the servers.
const Version = "0.4.0"

// Dependencies are the collaborators the engine drives.
type Dependencies = runtime.Dependencies

// Engine is the high-level entry point for the escape protocol.
// It wraps the internal controller and provides a simplified API for consumers.
type Engine struct {
	controller  *runtime.Controller
	store       ports.StateStore
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	profiles    ports.ProfileSource
	defaultBase time.Duration
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.Option
}

var _ ports.EscapeEngine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore persists escape records in store instead of memory.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes each entity's signals across replicas.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// WithProfiles resolves base resist times by entity type in AttachProfile.
func WithProfiles(profiles ports.ProfileSource) Option {
	return func(e *Engine) {
		e.profiles = profiles
	}
}

// WithDefaultBaseResist sets the base resist time for entity types without a profile.
func WithDefaultBaseResist(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.defaultBase = d
		}
	}
}

// WithHandRangeFactor sets the range factor of the hand grip contest.
func WithHandRangeFactor(f float64) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithHandRangeFactor(f))
	}
}

// WithSwallowedMultiplier sets the fixed multiplier for swallowed entities.
func WithSwallowedMultiplier(m float64) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithSwallowedMultiplier(m))
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(now))
	}
}

// New initializes a new Engine.
func New(deps Dependencies, opts ...Option) (*Engine, error) {
	eng := &Engine{defaultBase: domain.DefaultBaseResistTime}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker), session.WithLockTTL(eng.lockTTL))
	}

	runtimeOpts := []runtime.Option{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithSessions(session.NewManager(eng.store, sessionOpts...)),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	controller, err := runtime.NewController(deps, runtimeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create escape controller: %w", err)
	}
	eng.controller = controller
	return eng, nil
}

// Attach gives entity the escape capability.
func (e *Engine) Attach(ctx context.Context, entity domain.EntityID, baseResist time.Duration) (*domain.EscapeState, error) {
	return e.controller.Attach(ctx, entity, baseResist)
}

// AttachProfile gives entity the escape capability with the base resist time of its type.
// Types without a profile get the default base resist time.
func (e *Engine) AttachProfile(ctx context.Context, entity domain.EntityID, typ string) (*domain.EscapeState, error) {
	base := e.defaultBase
	if e.profiles != nil && typ != "" {
		profile, err := e.profiles.Profile(ctx, typ)
		switch {
		case err == nil:
			base = profile.BaseResistTime
		case errors.Is(err, domain.ErrProfileNotFound):
			e.logger.Debug("No profile for entity type, using default", "entity", entity, "type", typ)
		default:
			return nil, fmt.Errorf("failed to resolve profile %s: %w", typ, err)
		}
	}
	return e.controller.Attach(ctx, entity, base)
}

// Strip removes the escape capability, ending any attempt in flight.
func (e *Engine) Strip(ctx context.Context, entity domain.EntityID) error {
	return e.controller.Strip(ctx, entity)
}

// EvaluateTrigger dispatches a movement or cancel observation.
func (e *Engine) EvaluateTrigger(ctx context.Context, entity domain.EntityID, trigger domain.Trigger) error {
	return e.controller.EvaluateTrigger(ctx, entity, trigger)
}

// HandleMove evaluates a movement-intent observation.
func (e *Engine) HandleMove(ctx context.Context, entity domain.EntityID, move domain.MoveInput) error {
	return e.controller.HandleMove(ctx, entity, move)
}

// HandleCancel processes an activation of the cancel affordance.
func (e *Engine) HandleCancel(ctx context.Context, entity domain.EntityID) error {
	return e.controller.CancelEscape(ctx, entity)
}

// HandleDrop processes an external drop or removal of the entity.
func (e *Engine) HandleDrop(ctx context.Context, entity domain.EntityID) error {
	return e.controller.Interrupt(ctx, entity)
}

// Complete processes the completion signal of a timed interaction.
func (e *Engine) Complete(ctx context.Context, entity domain.EntityID, sig *domain.Completion) error {
	return e.controller.Complete(ctx, entity, sig)
}

// AttemptEscape forces an attempt against container with the given multiplier.
func (e *Engine) AttemptEscape(ctx context.Context, entity, container domain.EntityID, multiplier float64) error {
	return e.controller.AttemptEscape(ctx, entity, container, multiplier)
}

// State returns a snapshot of the entity's escape record.
func (e *Engine) State(ctx context.Context, entity domain.EntityID) (*domain.EscapeState, error) {
	return e.controller.State(ctx, entity)
}

// List returns the entities that have the escape capability.
func (e *Engine) List(ctx context.Context) ([]domain.EntityID, error) {
	return e.controller.Sessions().List(ctx)
}

// CompletionSink returns a function suitable for scheduler adapters to deliver completions.
// Errors are logged since schedulers have no caller to return them to.
func (e *Engine) CompletionSink() func(context.Context, domain.EntityID, *domain.Completion) {
	return func(ctx context.Context, entity domain.EntityID, sig *domain.Completion) {
		if err := e.controller.Complete(ctx, entity, sig); err != nil {
			e.logger.Error("Failed to handle completion", "entity", entity, "attempt", sig.Attempt, "err", err)
		}
	}
}
