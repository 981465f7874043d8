package runtime_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aretw0/resist/internal/runtime"
	"github.com/aretw0/resist/pkg/adapters/memory"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/registry"
	"github.com/aretw0/resist/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_HeldUsesMassContest(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "giant", Mass: 100},
		memory.Entity{ID: "mouse", Mass: 1, Parent: "giant", InHand: true},
	)
	f.contest.factor = 2.0
	f.attach(t, "mouse", 2*time.Second)

	f.move(t, "mouse")

	require.Len(t, f.scheduler.started, 1)
	req := f.scheduler.started[0]
	assert.Equal(t, 4*time.Second, req.Duration)
	assert.Equal(t, domain.EntityID("mouse"), req.Actor)
	assert.Equal(t, domain.EntityID("giant"), req.Target)
	assert.True(t, req.BreakOnMove)
	assert.True(t, req.BreakOnDamage)
	assert.False(t, req.NeedHand)

	assert.Equal(t, 1, f.contest.calls)
	assert.Equal(t, domain.DefaultHandRangeFactor, f.contest.lastRange)

	state := f.state(t, "mouse")
	assert.True(t, state.IsEscaping())
	assert.Equal(t, domain.EntityID("giant"), state.Container)
	assert.InDelta(t, 2.0, state.Multiplier, 1e-9)
	f.requireInvariants(t, "mouse")

	assert.Equal(t, 1, f.notes.Count("mouse", domain.MsgStartResisting))
	assert.Equal(t, 1, f.notes.Count("giant", domain.MsgStartResistingTarget))

	require.Len(t, f.starts, 1)
	assert.Equal(t, domain.ContestHeld, f.starts[0].Contest)
	assert.Equal(t, 4*time.Second, f.starts[0].Duration)
}

func TestController_SwallowedBypassesContest(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "giant", Mass: 100},
		memory.Entity{ID: "mouse", Mass: 1, Parent: "giant", InHand: true, Swallowed: true},
	)
	f.contest.factor = 2.0
	f.attach(t, "mouse", 2*time.Second)

	f.move(t, "mouse")

	require.Len(t, f.scheduler.started, 1)
	assert.Equal(t, 10*time.Second, f.scheduler.started[0].Duration)
	assert.Equal(t, 0, f.contest.calls, "swallowed entities never enter the mass contest")
	assert.InDelta(t, domain.DefaultSwallowedMultiplier, f.state(t, "mouse").Multiplier, 1e-9)
	require.Len(t, f.starts, 1)
	assert.Equal(t, domain.ContestSwallowed, f.starts[0].Contest)
}

func TestController_UncontestedContainers(t *testing.T) {
	for _, features := range []domain.ContainerFeatures{domain.FeatureStorage, domain.FeatureInventory, domain.FeatureStash} {
		t.Run(features.String(), func(t *testing.T) {
			f := newFixture(t,
				memory.Entity{ID: "box", Features: features},
				memory.Entity{ID: "mouse", Parent: "box"},
			)
			f.attach(t, "mouse", 3*time.Second)

			f.move(t, "mouse")

			require.Len(t, f.scheduler.started, 1)
			assert.Equal(t, 3*time.Second, f.scheduler.started[0].Duration)
			assert.Equal(t, 0, f.contest.calls)
		})
	}
}

func TestController_RemovalBlocked(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate", Pinned: true},
	)
	f.attach(t, "mouse", time.Second)

	f.move(t, "mouse")

	assert.Empty(t, f.scheduler.started)
	assert.Equal(t, 1, f.notes.Count("mouse", domain.MsgFailedResisting))
	assert.Equal(t, 1, f.notes.Len())
	assert.False(t, f.state(t, "mouse").IsEscaping())
	f.requireInvariants(t, "mouse")

	require.Len(t, f.rejections, 1)
	assert.Equal(t, domain.EntityID("crate"), f.rejections[0].Container)
}

func TestController_DropInterruptsWithoutRelease(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "room"},
		memory.Entity{ID: "human", Parent: "room", Mass: 70},
		memory.Entity{ID: "cat", Parent: "human", InHand: true, Mass: 35},
	)
	f.attach(t, "cat", time.Second)
	f.move(t, "cat")
	attempt := f.state(t, "cat").Attempt
	require.NotEmpty(t, attempt)

	require.NoError(t, f.world.Drop("cat"))
	require.NoError(t, f.controller.Interrupt(f.ctx, "cat"))

	assert.Equal(t, []domain.AttemptID{attempt}, f.scheduler.cancelled)
	assert.False(t, f.state(t, "cat").IsEscaping())
	assert.Equal(t, 0, f.detacher.detaches)
	assert.Equal(t, 0, f.carrying.drops)
	f.requireInvariants(t, "cat")

	require.Len(t, f.ends, 1)
	assert.Equal(t, domain.OutcomeInterrupted, f.ends[0].Outcome)
	assert.Equal(t, domain.ReleaseNone, f.ends[0].Release)

	// The timer may still fire for the cancelled attempt; it must be ignored.
	require.NoError(t, f.controller.Complete(f.ctx, "cat", &domain.Completion{Attempt: attempt, Actor: "cat"}))
	assert.Equal(t, 0, f.detacher.detaches)
	assert.Len(t, f.ends, 1)
}

func TestController_CompletionPrefersCarrying(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "room"},
		memory.Entity{ID: "human", Parent: "room"},
		memory.Entity{ID: "cat", Parent: "human", CarriedBy: "human", InHand: true},
	)
	f.attach(t, "cat", time.Second)
	require.NoError(t, f.controller.AttemptEscape(f.ctx, "cat", "human", 1.5))
	attempt := f.state(t, "cat").Attempt

	sig := &domain.Completion{Attempt: attempt, Actor: "cat", Target: "human"}
	require.NoError(t, f.controller.Complete(f.ctx, "cat", sig))

	assert.Equal(t, 1, f.carrying.drops)
	assert.Equal(t, 0, f.detacher.detaches)
	assert.False(t, sig.Handled, "the carrying feature owns its release")
	f.requireInvariants(t, "cat")

	cat, _ := f.world.Get("cat")
	assert.Equal(t, domain.EntityID("room"), cat.Parent)

	require.Len(t, f.ends, 1)
	assert.Equal(t, domain.OutcomeSucceeded, f.ends[0].Outcome)
	assert.Equal(t, domain.ReleaseCarriedDrop, f.ends[0].Release)
}

func TestController_CompletionDetachesToWorld(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	f.attach(t, "mouse", time.Second)
	f.move(t, "mouse")
	attempt := f.state(t, "mouse").Attempt

	sig := &domain.Completion{Attempt: attempt, Actor: "mouse", Target: "crate"}
	require.NoError(t, f.controller.Complete(f.ctx, "mouse", sig))

	assert.True(t, sig.Handled)
	assert.Equal(t, 1, f.detacher.detaches)
	_, contained := f.world.ContainerOf(f.ctx, "mouse")
	assert.False(t, contained)
	f.requireInvariants(t, "mouse")
	assert.Equal(t, domain.ReleaseDetach, f.ends[0].Release)
}

func TestController_CompletionAfterContainmentChanged(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	f.attach(t, "mouse", time.Second)
	f.move(t, "mouse")
	attempt := f.state(t, "mouse").Attempt

	// Someone emptied the crate while the timer ran, without telling the controller.
	require.NoError(t, f.world.Drop("mouse"))

	sig := &domain.Completion{Attempt: attempt}
	require.NoError(t, f.controller.Complete(f.ctx, "mouse", sig))

	assert.False(t, sig.Handled)
	assert.Equal(t, 0, f.detacher.detaches)
	assert.Equal(t, domain.ReleaseNone, f.ends[0].Release)
	f.requireInvariants(t, "mouse")
}

func TestController_HandledOrCancelledCompletion(t *testing.T) {
	tests := []struct {
		name string
		sig  domain.Completion
	}{
		{"Handled", domain.Completion{Handled: true}},
		{"Cancelled", domain.Completion{Cancelled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t,
				memory.Entity{ID: "crate", Features: domain.FeatureStorage},
				memory.Entity{ID: "mouse", Parent: "crate"},
			)
			f.attach(t, "mouse", time.Second)
			f.move(t, "mouse")

			sig := tt.sig
			sig.Attempt = f.state(t, "mouse").Attempt
			require.NoError(t, f.controller.Complete(f.ctx, "mouse", &sig))

			assert.False(t, f.state(t, "mouse").IsEscaping())
			assert.Equal(t, 0, f.detacher.detaches)
			f.requireInvariants(t, "mouse")
			require.Len(t, f.ends, 1)
			assert.Equal(t, domain.OutcomeAborted, f.ends[0].Outcome)
		})
	}
}

func TestController_ModifierToggleNeverStarts(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	f.attach(t, "mouse", time.Second)

	inputs := []domain.MoveInput{
		{Previous: domain.MoveNone, Current: domain.MoveWalk},
		{Previous: domain.MoveUp, Current: domain.MoveUp | domain.MoveWalk},
		{Previous: domain.MoveUp | domain.MoveWalk, Current: domain.MoveUp},
		{Previous: domain.MoveLeft, Current: domain.MoveNone},
	}
	for _, in := range inputs {
		require.NoError(t, f.controller.HandleMove(f.ctx, "mouse", in))
	}

	assert.Empty(t, f.scheduler.started)
	assert.Equal(t, 0, f.notes.Len())
	assert.False(t, f.state(t, "mouse").IsEscaping())
}

func TestController_SecondAttemptIsNoop(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	f.attach(t, "mouse", time.Second)
	f.move(t, "mouse")
	before := f.state(t, "mouse")
	notes := f.notes.Len()

	require.NoError(t, f.controller.HandleMove(f.ctx, "mouse", domain.MoveInput{Previous: domain.MoveUp, Current: domain.MoveDown}))
	require.NoError(t, f.controller.AttemptEscape(f.ctx, "mouse", "crate", 4))

	assert.Equal(t, before, f.state(t, "mouse"))
	assert.Equal(t, notes, f.notes.Len())
	assert.Len(t, f.scheduler.started, 1)
	assert.Len(t, f.starts, 1)
	f.requireInvariants(t, "mouse")
}

func TestController_CancelIdleIsNoop(t *testing.T) {
	f := newFixture(t, memory.Entity{ID: "mouse"})
	f.attach(t, "mouse", time.Second)
	before := f.state(t, "mouse")

	require.NoError(t, f.controller.CancelEscape(f.ctx, "mouse"))
	require.NoError(t, f.controller.Interrupt(f.ctx, "mouse"))

	assert.Equal(t, before, f.state(t, "mouse"))
	assert.Empty(t, f.scheduler.cancelled)
	assert.Empty(t, f.ends)
}

func TestController_ExplicitCancel(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	f.attach(t, "mouse", time.Second)
	require.NoError(t, f.controller.EvaluateTrigger(f.ctx, "mouse", domain.MovementTrigger(domain.MoveNone, domain.MoveRight)))
	attempt := f.state(t, "mouse").Attempt

	require.NoError(t, f.controller.EvaluateTrigger(f.ctx, "mouse", domain.CancelTrigger()))
	require.NoError(t, f.controller.EvaluateTrigger(f.ctx, "mouse", domain.CancelTrigger()))

	assert.Equal(t, []domain.AttemptID{attempt}, f.scheduler.cancelled)
	f.requireInvariants(t, "mouse")
	require.Len(t, f.ends, 1)
	assert.Equal(t, domain.OutcomeCancelled, f.ends[0].Outcome)

	// Completion racing the cancel loses.
	require.NoError(t, f.controller.Complete(f.ctx, "mouse", &domain.Completion{Attempt: attempt}))
	assert.Equal(t, 0, f.detacher.detaches)
}

func TestController_CancelAffordanceActivation(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	f.registry.Register(domain.AffordanceCancelEscape, f.controller.CancelEscape)
	f.attach(t, "mouse", time.Second)
	f.move(t, "mouse")

	affordance := f.state(t, "mouse").CancelAffordance
	require.NoError(t, f.registry.Activate(f.ctx, "mouse", affordance))

	assert.False(t, f.state(t, "mouse").IsEscaping())
	f.requireInvariants(t, "mouse")
	assert.ErrorIs(t, f.registry.Activate(f.ctx, "mouse", affordance), registry.ErrAffordanceNotFound)
}

func TestController_SchedulerRefusal(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	f.scheduler.refuse = true
	f.attach(t, "mouse", time.Second)

	f.move(t, "mouse")

	assert.False(t, f.state(t, "mouse").IsEscaping())
	assert.Equal(t, 0, f.notes.Len())
	assert.Empty(t, f.starts)
	f.requireInvariants(t, "mouse")
}

func TestController_SilentGates(t *testing.T) {
	tests := []struct {
		name     string
		entities []memory.Entity
	}{
		{"Not contained", []memory.Entity{{ID: "mouse"}}},
		{"Unrecognized container", []memory.Entity{{ID: "shelf"}, {ID: "mouse", Parent: "shelf"}}},
		{"Incapacitated", []memory.Entity{{ID: "crate", Features: domain.FeatureStorage}, {ID: "mouse", Parent: "crate", Incapacitated: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.entities...)
			f.attach(t, "mouse", time.Second)

			f.move(t, "mouse")

			assert.Empty(t, f.scheduler.started)
			assert.Equal(t, 0, f.notes.Len())
			assert.Empty(t, f.rejections)
			assert.False(t, f.state(t, "mouse").IsEscaping())
		})
	}
}

func TestController_WithoutCapability(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "rock", Parent: "crate"},
	)

	f.move(t, "rock")
	assert.NoError(t, f.controller.CancelEscape(f.ctx, "rock"))
	assert.NoError(t, f.controller.Interrupt(f.ctx, "rock"))
	assert.NoError(t, f.controller.Complete(f.ctx, "rock", &domain.Completion{Attempt: "x"}))
	assert.NoError(t, f.controller.Strip(f.ctx, "rock"))
	assert.Empty(t, f.scheduler.started)

	err := f.controller.AttemptEscape(f.ctx, "rock", "crate", 1)
	assert.ErrorIs(t, err, domain.ErrNotEscapeCapable)

	_, err = f.controller.State(f.ctx, "rock")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestController_StripEndsAttempt(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	f.attach(t, "mouse", time.Second)
	f.move(t, "mouse")
	attempt := f.state(t, "mouse").Attempt

	require.NoError(t, f.controller.Strip(f.ctx, "mouse"))

	_, err := f.controller.State(f.ctx, "mouse")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
	assert.Equal(t, []domain.AttemptID{attempt}, f.scheduler.cancelled)
	assert.Empty(t, f.registry.Granted("mouse"))
	require.Len(t, f.ends, 1)
	assert.Equal(t, domain.OutcomeStripped, f.ends[0].Outcome)
}

func TestController_ForcedAttemptMultiplier(t *testing.T) {
	f := newFixture(t, memory.Entity{ID: "human"}, memory.Entity{ID: "cat", Parent: "human"})
	f.attach(t, "cat", 2*time.Second)

	require.NoError(t, f.controller.AttemptEscape(f.ctx, "cat", "human", 1.5))

	require.Len(t, f.scheduler.started, 1)
	assert.Equal(t, 3*time.Second, f.scheduler.started[0].Duration)
	assert.Equal(t, domain.ContestForced, f.starts[0].Contest)
}

func TestController_NegativeMultiplierIsSanitized(t *testing.T) {
	tests := []struct {
		name       string
		multiplier float64
	}{
		{"negative", -3},
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, memory.Entity{ID: "human"}, memory.Entity{ID: "cat", Parent: "human"})
			f.attach(t, "cat", 2*time.Second)

			require.NoError(t, f.controller.AttemptEscape(f.ctx, "cat", "human", tt.multiplier))

			require.Len(t, f.scheduler.started, 1)
			assert.Equal(t, time.Duration(0), f.scheduler.started[0].Duration)
			assert.Equal(t, 0.0, f.state(t, "cat").Multiplier)
		})
	}
}

func TestController_UnknownTrigger(t *testing.T) {
	f := newFixture(t)
	err := f.controller.EvaluateTrigger(f.ctx, "mouse", domain.Trigger{Kind: "teleport"})
	assert.ErrorIs(t, err, domain.ErrUnknownTrigger)
}

func TestController_Options(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "giant"},
		memory.Entity{ID: "mouse", Parent: "giant", InHand: true},
		memory.Entity{ID: "frog", Parent: "giant", Swallowed: true},
	)
	store := memory.NewStore()
	c, err := runtime.NewController(runtime.Dependencies{
		Scheduler:   f.scheduler,
		Containment: f.world,
		Detacher:    f.world,
		Affordances: f.registry,
		Markers:     f.world,
		Contest:     f.contest,
	},
		runtime.WithHandRangeFactor(7),
		runtime.WithSwallowedMultiplier(2),
		runtime.WithSessions(session.NewManager(store)),
		runtime.WithClock(func() time.Time { return time.Unix(42, 0) }),
	)
	require.NoError(t, err)

	_, err = c.Attach(f.ctx, "mouse", time.Second)
	require.NoError(t, err)
	_, err = c.Attach(f.ctx, "frog", time.Second)
	require.NoError(t, err)

	require.NoError(t, c.HandleMove(f.ctx, "mouse", domain.MoveInput{Current: domain.MoveUp}))
	require.NoError(t, c.HandleMove(f.ctx, "frog", domain.MoveInput{Current: domain.MoveUp}))

	assert.Equal(t, 7.0, f.contest.lastRange)
	require.Len(t, f.scheduler.started, 2)
	assert.Equal(t, 2*time.Second, f.scheduler.started[1].Duration)

	saved, err := store.Load(f.ctx, "mouse")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(42, 0), saved.StartedAt)
}

func TestController_MissingDependencies(t *testing.T) {
	_, err := runtime.NewController(runtime.Dependencies{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler")
	assert.Contains(t, err.Error(), "affordances")
}

// failingStore fails every save after the first one.
type failingStore struct {
	*memory.Store
	saves int
}

func (s *failingStore) Save(ctx context.Context, state *domain.EscapeState) error {
	s.saves++
	if s.saves > 1 {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, state)
}

func TestController_SaveFailureUndoesStart(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	c, err := runtime.NewController(runtime.Dependencies{
		Scheduler:   f.scheduler,
		Containment: f.world,
		Detacher:    f.world,
		Affordances: f.registry,
	}, runtime.WithSessions(session.NewManager(&failingStore{Store: memory.NewStore()})))
	require.NoError(t, err)

	_, err = c.Attach(f.ctx, "mouse", time.Second)
	require.NoError(t, err)

	err = c.HandleMove(f.ctx, "mouse", domain.MoveInput{Current: domain.MoveUp})
	require.Error(t, err)

	require.Len(t, f.scheduler.started, 1)
	assert.Equal(t, []domain.AttemptID{"attempt-1"}, f.scheduler.cancelled)
	assert.Empty(t, f.registry.Granted("mouse"))
}

// flakyStore fails the saves whose ordinal is listed in failOn.
type flakyStore struct {
	*memory.Store
	saves  int
	failOn map[int]bool
}

func (s *flakyStore) Save(ctx context.Context, state *domain.EscapeState) error {
	s.saves++
	if s.failOn[s.saves] {
		return errors.New("redis timeout")
	}
	return s.Store.Save(ctx, state)
}

func TestController_SaveFailureKeepsAttempt(t *testing.T) {
	tests := []struct {
		name   string
		signal func(f *fixture, c *runtime.Controller) error
	}{
		{"completion", func(f *fixture, c *runtime.Controller) error {
			return c.Complete(f.ctx, "mouse", &domain.Completion{Attempt: "attempt-1"})
		}},
		{"cancel", func(f *fixture, c *runtime.Controller) error {
			return c.CancelEscape(f.ctx, "mouse")
		}},
		{"drop", func(f *fixture, c *runtime.Controller) error {
			return c.Interrupt(f.ctx, "mouse")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t,
				memory.Entity{ID: "room"},
				memory.Entity{ID: "crate", Parent: "room", Features: domain.FeatureStorage},
				memory.Entity{ID: "mouse", Parent: "crate"},
			)
			store := &flakyStore{Store: memory.NewStore(), failOn: map[int]bool{3: true}}
			c, err := runtime.NewController(runtime.Dependencies{
				Scheduler:   f.scheduler,
				Containment: f.world,
				Detacher:    f.detacher,
				Affordances: f.registry,
			}, runtime.WithSessions(session.NewManager(store)))
			require.NoError(t, err)

			_, err = c.Attach(f.ctx, "mouse", time.Second)
			require.NoError(t, err)
			require.NoError(t, c.HandleMove(f.ctx, "mouse", domain.MoveInput{Current: domain.MoveUp}))

			require.Error(t, tt.signal(f, c))

			state, err := c.State(f.ctx, "mouse")
			require.NoError(t, err)
			assert.Equal(t, domain.AttemptID("attempt-1"), state.Attempt)
			granted := f.registry.Granted("mouse")
			require.Len(t, granted, 1)
			assert.Equal(t, state.CancelAffordance, granted[0].ID)
			assert.Empty(t, f.scheduler.cancelled)
			assert.Zero(t, f.detacher.detaches)
			mouse, _ := f.world.Get("mouse")
			assert.Equal(t, domain.EntityID("crate"), mouse.Parent)

			// The cancel button still works once the store recovers.
			require.NoError(t, c.CancelEscape(f.ctx, "mouse"))
			state, err = c.State(f.ctx, "mouse")
			require.NoError(t, err)
			assert.False(t, state.IsEscaping())
			assert.Empty(t, f.registry.Granted("mouse"))
			assert.Equal(t, []domain.AttemptID{"attempt-1"}, f.scheduler.cancelled)

			require.NoError(t, c.HandleMove(f.ctx, "mouse", domain.MoveInput{Current: domain.MoveUp}))
			assert.Len(t, f.scheduler.started, 2)
		})
	}
}

func TestController_StaleCompletionIgnored(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	f.attach(t, "mouse", time.Second)
	f.move(t, "mouse")

	require.NoError(t, f.controller.Complete(f.ctx, "mouse", &domain.Completion{Attempt: "attempt-from-another-life"}))
	require.NoError(t, f.controller.Complete(f.ctx, "mouse", nil))

	assert.True(t, f.state(t, "mouse").IsEscaping())
	assert.Empty(t, f.ends)
	f.requireInvariants(t, "mouse")
}

func TestController_ConcurrentSignals(t *testing.T) {
	f := newFixture(t,
		memory.Entity{ID: "crate", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
	)
	f.attach(t, "mouse", time.Second)

	ctx := context.Background()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			if i%2 == 0 {
				_ = f.controller.HandleMove(ctx, "mouse", domain.MoveInput{Current: domain.MoveUp})
			} else {
				_ = f.controller.CancelEscape(ctx, "mouse")
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	f.requireInvariants(t, "mouse")
}
