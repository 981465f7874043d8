package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/resist/internal/logging"
	"github.com/aretw0/resist/pkg/adapters/memory"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/ports"
	"github.com/aretw0/resist/pkg/session"
)

// Dependencies are the collaborators the controller drives.
// Scheduler, Containment, Detacher and Affordances are required; the rest are optional.
type Dependencies struct {
	Scheduler   ports.Scheduler
	Containment ports.ContainmentQuery
	Detacher    ports.Detacher
	Affordances ports.AffordanceRegistry

	Markers  ports.MarkerQuery       // nil: nothing is ever swallowed
	Contest  ports.ContestEvaluator  // nil: hand grips are uncontested (1x)
	Carrying ports.Carrying          // nil: no carrying feature
	Notifier ports.Notifier          // nil: notifications are dropped
	Policy   ports.InteractionPolicy // nil: every entity may interact
}

// Validate reports missing required collaborators.
func (d Dependencies) Validate() error {
	var missing []string
	if d.Scheduler == nil {
		missing = append(missing, "scheduler")
	}
	if d.Containment == nil {
		missing = append(missing, "containment")
	}
	if d.Detacher == nil {
		missing = append(missing, "detacher")
	}
	if d.Affordances == nil {
		missing = append(missing, "affordances")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing dependencies: %v", missing)
	}
	return nil
}

// Controller is the escape attempt state machine.
// Every signal is handled as one transition on the entity's record, under the
// entity's lock, so invariants hold between any two signals.
//
// Collaborators must not call back into the Controller for the same entity
// from inside a call the Controller made to them.
type Controller struct {
	deps     Dependencies
	sessions *session.Manager
	release  *ReleaseResolver
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time

	handRangeFactor     float64
	swallowedMultiplier float64
}

// NewController creates a controller. Records live in memory unless WithSessions is given.
func NewController(deps Dependencies, opts ...Option) (*Controller, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		deps:                deps,
		logger:              logging.NewNop(),
		now:                 time.Now,
		handRangeFactor:     domain.DefaultHandRangeFactor,
		swallowedMultiplier: domain.DefaultSwallowedMultiplier,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessions == nil {
		c.sessions = session.NewManager(memory.NewStore(), session.WithLogger(c.logger))
	}
	c.release = NewReleaseResolver(deps.Carrying, deps.Containment, deps.Detacher, c.logger)
	return c, nil
}

// Sessions exposes the session manager backing the controller.
func (c *Controller) Sessions() *session.Manager {
	return c.sessions
}

// Attach gives entity the escape capability with an idle record.
func (c *Controller) Attach(ctx context.Context, entity domain.EntityID, baseResist time.Duration) (*domain.EscapeState, error) {
	state, err := c.sessions.Attach(ctx, entity, baseResist)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Escape capability attached", "entity", entity, "base_resist", baseResist)
	return state.Snapshot(), nil
}

// Strip removes the escape capability, ending any attempt in flight.
// Stripping an entity without the capability is a no-op.
func (c *Controller) Strip(ctx context.Context, entity domain.EntityID) error {
	var (
		ended *domain.AttemptEvent
		fx    effects
	)
	err := c.sessions.Remove(ctx, entity, func(ctx context.Context, state *domain.EscapeState) (bool, error) {
		ended, fx = c.abort(state, domain.OutcomeStripped)
		return ended != nil, nil
	})
	if errors.Is(err, domain.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	c.apply(ctx, entity, fx)
	c.emitEnd(ctx, ended)
	return nil
}

// State returns a snapshot of the entity's record.
func (c *Controller) State(ctx context.Context, entity domain.EntityID) (*domain.EscapeState, error) {
	return c.sessions.Load(ctx, entity)
}

// EvaluateTrigger dispatches a movement or cancel observation.
func (c *Controller) EvaluateTrigger(ctx context.Context, entity domain.EntityID, trigger domain.Trigger) error {
	switch trigger.Kind {
	case domain.TriggerMovement:
		return c.HandleMove(ctx, entity, trigger.Move)
	case domain.TriggerCancel:
		return c.CancelEscape(ctx, entity)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownTrigger, trigger.Kind)
	}
}

// HandleMove evaluates a movement-intent observation and may start an attempt.
// Every refusal here is a protocol outcome, not an error.
func (c *Controller) HandleMove(ctx context.Context, entity domain.EntityID, move domain.MoveInput) error {
	if !move.IsDirectionalChange() {
		return nil
	}

	var (
		started  *startResult
		rejected *domain.RejectionEvent
	)
	err := c.sessions.Update(ctx, entity, func(ctx context.Context, state *domain.EscapeState) (bool, error) {
		if state.IsEscaping() {
			return false, nil
		}

		container, ok := c.deps.Containment.ContainerOf(ctx, entity)
		if !ok {
			return false, nil
		}
		if c.deps.Policy != nil && !c.deps.Policy.CanInteract(ctx, entity, container.Owner) {
			c.logger.Debug("Escape gated by interaction policy", "entity", entity, "container", container.Owner)
			return false, nil
		}
		if !c.deps.Containment.CanRemove(ctx, entity, container) {
			c.notify(ctx, entity, domain.MsgFailedResisting)
			rejected = &domain.RejectionEvent{
				EventBase: domain.EventBase{Timestamp: c.now(), Type: domain.EventRejected, Entity: entity},
				Container: container.Owner,
			}
			c.logger.Debug("Escape refused, removal blocked", "entity", entity, "container", container.Owner)
			return false, nil
		}

		contest := c.classify(ctx, entity, container)
		if !contest.Offered() {
			return false, nil
		}

		started = c.start(ctx, state, container.Owner, contest)
		return started != nil, nil
	})
	return c.finishStart(ctx, err, started, rejected)
}

// AttemptEscape starts an attempt against container with a caller-chosen multiplier.
// Other features use it to reuse the struggle mechanic. It is a no-op while an attempt is in flight.
func (c *Controller) AttemptEscape(ctx context.Context, entity, container domain.EntityID, multiplier float64) error {
	var started *startResult
	err := c.sessions.Update(ctx, entity, func(ctx context.Context, state *domain.EscapeState) (bool, error) {
		started = c.start(ctx, state, container, domain.Contest{Kind: domain.ContestForced, Multiplier: multiplier})
		return started != nil, nil
	})
	if errors.Is(err, domain.ErrStateNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotEscapeCapable, entity)
	}
	return c.finishStart(ctx, err, started, nil)
}

// Complete handles the completion signal of a timed interaction.
// Completions for any attempt other than the one in flight are ignored, so a
// completion racing a cancel resolves to whichever was processed first.
func (c *Controller) Complete(ctx context.Context, entity domain.EntityID, sig *domain.Completion) error {
	if sig == nil {
		return nil
	}

	var (
		ended *domain.AttemptEvent
		fx    effects
	)
	err := c.sessions.Apply(ctx, entity, func(ctx context.Context, state *domain.EscapeState) (bool, error) {
		if !state.IsEscaping() || sig.Attempt != state.Attempt {
			return false, nil
		}

		ended = c.endEvent(state)
		fx.revoke = state.CancelAffordance
		state.ClearAttempt()
		state.CancelAffordance = ""

		if sig.Handled || sig.Cancelled {
			ended.Outcome = domain.OutcomeAborted
			ended.Release = domain.ReleaseNone
			return true, nil
		}

		ended.Outcome = domain.OutcomeSucceeded
		fx.release = sig
		return true, nil
	}, func(ctx context.Context) {
		if ended == nil {
			return
		}
		ended.Release = c.apply(ctx, entity, fx)
	})
	if errors.Is(err, domain.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		if ended != nil {
			c.logger.Error("Failed to persist escape completion, attempt left in flight", "entity", entity, "attempt", ended.Attempt, "err", err)
		}
		return err
	}
	c.emitEnd(ctx, ended)
	return nil
}

// Interrupt handles an external drop or removal. The drop already moved the
// entity, so no release runs.
func (c *Controller) Interrupt(ctx context.Context, entity domain.EntityID) error {
	return c.stop(ctx, entity, domain.OutcomeInterrupted)
}

// CancelEscape handles an activation of the cancel affordance.
func (c *Controller) CancelEscape(ctx context.Context, entity domain.EntityID) error {
	return c.stop(ctx, entity, domain.OutcomeCancelled)
}

func (c *Controller) stop(ctx context.Context, entity domain.EntityID, outcome domain.Outcome) error {
	var (
		ended *domain.AttemptEvent
		fx    effects
	)
	err := c.sessions.Apply(ctx, entity, func(ctx context.Context, state *domain.EscapeState) (bool, error) {
		ended, fx = c.abort(state, outcome)
		return ended != nil, nil
	}, func(ctx context.Context) {
		c.apply(ctx, entity, fx)
	})
	if errors.Is(err, domain.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	c.emitEnd(ctx, ended)
	return nil
}

// effects are the collaborator calls a transition asks for. They run only after
// the record reflecting them was committed.
type effects struct {
	cancel  domain.AttemptID
	revoke  domain.AffordanceID
	release *domain.Completion
}

// abort clears the in-flight attempt of state and returns the timer and cancel
// affordance to let go of. The event is nil when the entity was idle.
func (c *Controller) abort(state *domain.EscapeState, outcome domain.Outcome) (*domain.AttemptEvent, effects) {
	if !state.IsEscaping() {
		return nil, effects{}
	}

	ended := c.endEvent(state)
	ended.Outcome = outcome
	ended.Release = domain.ReleaseNone

	fx := effects{revoke: state.CancelAffordance}
	fx.cancel = state.ClearAttempt()
	state.CancelAffordance = ""
	return ended, fx
}

// apply performs committed effects and reports how the entity was released, if at all.
func (c *Controller) apply(ctx context.Context, entity domain.EntityID, fx effects) domain.ReleasePath {
	if fx.cancel != "" {
		c.deps.Scheduler.Cancel(ctx, fx.cancel)
	}
	if fx.revoke != "" {
		c.deps.Affordances.Revoke(ctx, entity, fx.revoke)
	}
	if fx.release == nil {
		return domain.ReleaseNone
	}
	return c.release.Resolve(ctx, entity, fx.release)
}

type startResult struct {
	event      *domain.AttemptEvent
	affordance domain.AffordanceID
}

// start begins an attempt on an idle record. It returns nil when nothing started.
func (c *Controller) start(ctx context.Context, state *domain.EscapeState, container domain.EntityID, contest domain.Contest) *startResult {
	if state.IsEscaping() {
		return nil
	}

	mult := sanitizeMultiplier(contest.Multiplier)
	duration := scaleDuration(state.BaseResistTime, mult)

	id, ok := c.deps.Scheduler.Start(ctx, domain.TimedRequest{
		Actor:         state.Entity,
		Target:        container,
		Duration:      duration,
		BreakOnMove:   true,
		BreakOnDamage: true,
		NeedHand:      false,
	})
	if !ok || id == "" {
		c.logger.Debug("Scheduler refused escape attempt", "entity", state.Entity, "container", container)
		return nil
	}

	state.Attempt = id
	state.Container = container
	state.Multiplier = mult
	state.StartedAt = c.now()

	c.notify(ctx, state.Entity, domain.MsgStartResisting)
	c.notify(ctx, container, domain.MsgStartResistingTarget)

	state.CancelAffordance = c.deps.Affordances.Grant(ctx, state.Entity, domain.AffordanceCancelEscape)

	return &startResult{
		affordance: state.CancelAffordance,
		event: &domain.AttemptEvent{
			EventBase:  domain.EventBase{Timestamp: state.StartedAt, Type: domain.EventAttemptStart, Entity: state.Entity},
			Attempt:    id,
			Container:  container,
			Contest:    contest.Kind,
			Multiplier: mult,
			Duration:   duration,
		},
	}
}

// finishStart emits the hooks of a committed start, or undoes the side effects of
// one whose record could not be saved.
func (c *Controller) finishStart(ctx context.Context, err error, started *startResult, rejected *domain.RejectionEvent) error {
	if errors.Is(err, domain.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		if started != nil {
			c.deps.Scheduler.Cancel(ctx, started.event.Attempt)
			c.deps.Affordances.Revoke(ctx, started.event.Entity, started.affordance)
			c.logger.Error("Failed to persist escape attempt, cancelled it", "entity", started.event.Entity, "attempt", started.event.Attempt, "err", err)
		}
		return err
	}

	if rejected != nil && c.hooks.OnRejected != nil {
		c.hooks.OnRejected(ctx, rejected)
	}
	if started != nil {
		ev := started.event
		c.logger.Info("Escape attempt started",
			"entity", ev.Entity,
			"container", ev.Container,
			"attempt", ev.Attempt,
			"multiplier", ev.Multiplier,
			"duration", ev.Duration,
		)
		if c.hooks.OnAttemptStart != nil {
			c.hooks.OnAttemptStart(ctx, ev)
		}
	}
	return nil
}

func (c *Controller) endEvent(state *domain.EscapeState) *domain.AttemptEvent {
	return &domain.AttemptEvent{
		EventBase:  domain.EventBase{Timestamp: c.now(), Type: domain.EventAttemptEnd, Entity: state.Entity},
		Attempt:    state.Attempt,
		Container:  state.Container,
		Multiplier: state.Multiplier,
		Duration:   c.now().Sub(state.StartedAt),
	}
}

func (c *Controller) emitEnd(ctx context.Context, ev *domain.AttemptEvent) {
	if ev == nil {
		return
	}
	c.logger.Info("Escape attempt ended",
		"entity", ev.Entity,
		"attempt", ev.Attempt,
		"outcome", ev.Outcome,
		"release", ev.Release,
	)
	if c.hooks.OnAttemptEnd != nil {
		c.hooks.OnAttemptEnd(ctx, ev)
	}
}

func (c *Controller) notify(ctx context.Context, entity domain.EntityID, key domain.MessageKey) {
	if c.deps.Notifier != nil {
		c.deps.Notifier.Notify(ctx, entity, key)
	}
}
