package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/resist"
	"github.com/aretw0/resist/pkg/adapters/doafter"
	"github.com/aretw0/resist/pkg/adapters/memory"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/ports"
	"github.com/aretw0/resist/pkg/registry"
)

// ErrRealTime is returned by Advance on a sandbox driven by the wall clock.
var ErrRealTime = errors.New("sandbox runs in real time")

// EntitySpec describes an entity to place in the sandbox world.
type EntitySpec struct {
	memory.Entity

	// Escape gives the entity the escape capability.
	Escape bool
	// BaseResist overrides the profile lookup when positive.
	BaseResist time.Duration
}

// View is a read-only picture of one entity for inspection surfaces.
type View struct {
	Entity      memory.Entity         `json:"entity"`
	State       *domain.EscapeState   `json:"state,omitempty"`
	Affordances []registry.Affordance `json:"affordances"`
	Remaining   time.Duration         `json:"remaining,omitempty"`
}

// Sandbox wires the escape engine to the in-memory world, the do-after scheduler
// and the affordance registry. Every surface (scenarios, HTTP, MCP) drives the
// engine through it.
type Sandbox struct {
	World       *memory.World
	Scheduler   *doafter.Scheduler
	Affordances *registry.Registry
	Engine      *resist.Engine

	mu    sync.Mutex
	keys  map[domain.EntityID]domain.MoveButtons
	clock *virtualClock
}

type sandboxConfig struct {
	notifier    ports.Notifier
	engineOpts  []resist.Option
	worldOpts   []memory.WorldOption
	virtual     bool
	virtualFrom time.Time
	schedOpts   []doafter.Option
}

// SandboxOption configures a Sandbox.
type SandboxOption func(*sandboxConfig)

// WithNotifier sets where player notifications go. Defaults to a memory.Recorder.
func WithNotifier(n ports.Notifier) SandboxOption {
	return func(c *sandboxConfig) {
		c.notifier = n
	}
}

// WithEngineOptions forwards options to resist.New.
func WithEngineOptions(opts ...resist.Option) SandboxOption {
	return func(c *sandboxConfig) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

// WithWorldOptions forwards options to memory.NewWorld.
func WithWorldOptions(opts ...memory.WorldOption) SandboxOption {
	return func(c *sandboxConfig) {
		c.worldOpts = append(c.worldOpts, opts...)
	}
}

// WithSchedulerOptions forwards options to doafter.New.
func WithSchedulerOptions(opts ...doafter.Option) SandboxOption {
	return func(c *sandboxConfig) {
		c.schedOpts = append(c.schedOpts, opts...)
	}
}

// WithVirtualClock makes time move only through Advance, starting at start.
func WithVirtualClock(start time.Time) SandboxOption {
	return func(c *sandboxConfig) {
		c.virtual = true
		c.virtualFrom = start
	}
}

// NewSandbox assembles the stack.
func NewSandbox(opts ...SandboxOption) (*Sandbox, error) {
	cfg := &sandboxConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.notifier == nil {
		cfg.notifier = memory.NewRecorder()
	}

	s := &Sandbox{
		World:       memory.NewWorld(cfg.worldOpts...),
		Affordances: registry.NewRegistry(),
		keys:        make(map[domain.EntityID]domain.MoveButtons),
	}

	schedOpts := cfg.schedOpts
	engineOpts := cfg.engineOpts
	if cfg.virtual {
		s.clock = &virtualClock{now: cfg.virtualFrom}
		schedOpts = append(schedOpts, doafter.WithClock(s.clock.Now))
		engineOpts = append(engineOpts, resist.WithClock(s.clock.Now))
	}
	s.Scheduler = doafter.New(schedOpts...)

	eng, err := resist.New(resist.Dependencies{
		Scheduler:   s.Scheduler,
		Containment: s.World,
		Detacher:    s.World,
		Affordances: s.Affordances,
		Markers:     s.World,
		Contest:     s.World,
		Carrying:    s.World,
		Notifier:    cfg.notifier,
		Policy:      s.World,
	}, engineOpts...)
	if err != nil {
		return nil, err
	}
	s.Engine = eng
	s.Scheduler.Bind(eng.CompletionSink())
	s.Affordances.Register(domain.AffordanceCancelEscape, eng.HandleCancel)
	return s, nil
}

// Spawn places an entity in the world and, if requested, gives it the escape capability.
func (s *Sandbox) Spawn(ctx context.Context, spec EntitySpec) error {
	if err := s.World.Add(spec.Entity); err != nil {
		return err
	}
	if !spec.Escape {
		return nil
	}
	var err error
	if spec.BaseResist > 0 {
		_, err = s.Engine.Attach(ctx, spec.ID, spec.BaseResist)
	} else {
		_, err = s.Engine.AttachProfile(ctx, spec.ID, spec.Type)
	}
	return err
}

// Press records the movement keys now held by entity and feeds the change to the engine.
func (s *Sandbox) Press(ctx context.Context, entity domain.EntityID, keys domain.MoveButtons) error {
	s.mu.Lock()
	previous := s.keys[entity]
	s.keys[entity] = keys
	s.mu.Unlock()

	return s.Engine.HandleMove(ctx, entity, domain.MoveInput{Previous: previous, Current: keys})
}

// Cancel presses the cancel control if the entity holds one.
// It reports whether a control was activated.
func (s *Sandbox) Cancel(ctx context.Context, entity domain.EntityID) (bool, error) {
	for _, a := range s.Affordances.Granted(entity) {
		if a.Kind == domain.AffordanceCancelEscape {
			return true, s.Affordances.Activate(ctx, entity, a.ID)
		}
	}
	return false, nil
}

// Drop lets go of entity from the outside: the attempt is interrupted, then the
// world moves the entity to its container's parent.
func (s *Sandbox) Drop(ctx context.Context, entity domain.EntityID) error {
	if err := s.Engine.HandleDrop(ctx, entity); err != nil {
		return err
	}
	return s.World.Drop(entity)
}

// Damage hurts entity, breaking any interaction that breaks on damage.
func (s *Sandbox) Damage(ctx context.Context, entity domain.EntityID) bool {
	return s.Scheduler.NotifyDamaged(ctx, entity)
}

// Relocate moves entity into parent (empty means the world root), breaking any
// interaction that breaks on movement.
func (s *Sandbox) Relocate(ctx context.Context, entity, parent domain.EntityID) error {
	if parent != "" {
		if _, ok := s.World.Get(parent); !ok {
			return fmt.Errorf("%w: %s", memory.ErrUnknownEntity, parent)
		}
	}
	err := s.World.Update(entity, func(e *memory.Entity) {
		e.Parent = parent
		e.InHand = false
		e.Swallowed = false
		e.Pinned = false
	})
	if err != nil {
		return err
	}
	s.Scheduler.NotifyMoved(ctx, entity)
	return nil
}

// Advance moves the virtual clock forward and delivers whatever became due.
func (s *Sandbox) Advance(ctx context.Context, d time.Duration) (int, error) {
	if s.clock == nil {
		return 0, ErrRealTime
	}
	s.clock.Add(d)
	return s.Scheduler.Tick(ctx), nil
}

// Now returns the sandbox time.
func (s *Sandbox) Now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

// List returns the views of every entity in the world.
func (s *Sandbox) List(ctx context.Context) ([]View, error) {
	entities := s.World.Entities()
	out := make([]View, 0, len(entities))
	for _, e := range entities {
		v, err := s.Inspect(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Inspect returns the view of one entity.
func (s *Sandbox) Inspect(ctx context.Context, entity domain.EntityID) (View, error) {
	e, ok := s.World.Get(entity)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", memory.ErrUnknownEntity, entity)
	}
	v := View{Entity: e, Affordances: s.Affordances.Granted(entity)}

	state, err := s.Engine.State(ctx, entity)
	switch {
	case err == nil:
		v.State = state
		if state.IsEscaping() {
			v.Remaining, _ = s.Scheduler.Remaining(state.Attempt)
		}
	case errors.Is(err, domain.ErrStateNotFound):
	default:
		return View{}, err
	}
	return v, nil
}

type virtualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *virtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *virtualClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
