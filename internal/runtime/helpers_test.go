package runtime_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/resist/internal/runtime"
	"github.com/aretw0/resist/pkg/adapters/memory"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/registry"
	"github.com/stretchr/testify/require"
)

// spyScheduler records requests and hands out sequential handles.
type spyScheduler struct {
	mu        sync.Mutex
	refuse    bool
	started   []domain.TimedRequest
	cancelled []domain.AttemptID
	next      int
}

func (s *spyScheduler) Start(ctx context.Context, req domain.TimedRequest) (domain.AttemptID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuse {
		return "", false
	}
	s.next++
	s.started = append(s.started, req)
	return domain.AttemptID(fmt.Sprintf("attempt-%d", s.next)), true
}

func (s *spyScheduler) Cancel(ctx context.Context, id domain.AttemptID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, id)
}

// spyContest returns a fixed factor and counts calls.
type spyContest struct {
	factor    float64
	calls     int
	lastRange float64
}

func (s *spyContest) Disadvantage(ctx context.Context, container, contained domain.EntityID, rangeFactor float64) float64 {
	s.calls++
	s.lastRange = rangeFactor
	return s.factor
}

// spyCarrying wraps the world and records drops.
type spyCarrying struct {
	*memory.World
	drops int
}

func (s *spyCarrying) DropCarried(ctx context.Context, carrier, entity domain.EntityID) {
	s.drops++
	s.World.DropCarried(ctx, carrier, entity)
}

// spyDetacher wraps the world and records detaches.
type spyDetacher struct {
	*memory.World
	detaches int
}

func (s *spyDetacher) AttachToContainerOrWorld(ctx context.Context, entity domain.EntityID) {
	s.detaches++
	s.World.AttachToContainerOrWorld(ctx, entity)
}

type fixture struct {
	mu         sync.Mutex
	ctx        context.Context
	world      *memory.World
	scheduler  *spyScheduler
	contest    *spyContest
	carrying   *spyCarrying
	detacher   *spyDetacher
	registry   *registry.Registry
	notes      *memory.Recorder
	starts     []*domain.AttemptEvent
	ends       []*domain.AttemptEvent
	rejections []*domain.RejectionEvent
	controller *runtime.Controller
}

func newFixture(t *testing.T, entities ...memory.Entity) *fixture {
	t.Helper()
	f := &fixture{
		ctx:       context.Background(),
		world:     memory.NewWorld(),
		scheduler: &spyScheduler{},
		contest:   &spyContest{factor: 1},
		registry:  registry.NewRegistry(),
		notes:     memory.NewRecorder(),
	}
	for _, e := range entities {
		require.NoError(t, f.world.Add(e))
	}
	f.carrying = &spyCarrying{World: f.world}
	f.detacher = &spyDetacher{World: f.world}

	hooks := domain.LifecycleHooks{
		OnAttemptStart: func(ctx context.Context, e *domain.AttemptEvent) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.starts = append(f.starts, e)
		},
		OnAttemptEnd: func(ctx context.Context, e *domain.AttemptEvent) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.ends = append(f.ends, e)
		},
		OnRejected: func(ctx context.Context, e *domain.RejectionEvent) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.rejections = append(f.rejections, e)
		},
	}

	c, err := runtime.NewController(runtime.Dependencies{
		Scheduler:   f.scheduler,
		Containment: f.world,
		Detacher:    f.detacher,
		Affordances: f.registry,
		Markers:     f.world,
		Contest:     f.contest,
		Carrying:    f.carrying,
		Notifier:    f.notes,
		Policy:      f.world,
	}, runtime.WithLifecycleHooks(hooks))
	require.NoError(t, err)
	f.controller = c
	return f
}

func (f *fixture) attach(t *testing.T, entity domain.EntityID, base time.Duration) {
	t.Helper()
	_, err := f.controller.Attach(f.ctx, entity, base)
	require.NoError(t, err)
}

func (f *fixture) move(t *testing.T, entity domain.EntityID) {
	t.Helper()
	require.NoError(t, f.controller.HandleMove(f.ctx, entity, domain.MoveInput{Previous: domain.MoveNone, Current: domain.MoveUp}))
}

func (f *fixture) state(t *testing.T, entity domain.EntityID) *domain.EscapeState {
	t.Helper()
	state, err := f.controller.State(f.ctx, entity)
	require.NoError(t, err)
	return state
}

// requireInvariants checks the record against the registry after every transition.
func (f *fixture) requireInvariants(t *testing.T, entity domain.EntityID) {
	t.Helper()
	state := f.state(t, entity)
	require.NoError(t, state.Validate())
	require.Equal(t, state.IsEscaping(), state.Attempt != "")

	granted := f.registry.Granted(entity)
	if state.IsEscaping() {
		require.Len(t, granted, 1)
		require.Equal(t, state.CancelAffordance, granted[0].ID)
	} else {
		require.Empty(t, granted)
	}
}
