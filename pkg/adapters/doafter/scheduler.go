// Package doafter implements a tick-driven timed-interaction scheduler.
//
// An interaction counts down a duration for an actor/target pair. Every actor may
// run one interaction at a time. Interactions finish on Tick once their deadline has
// passed, or break early when the actor moves or takes damage; both outcomes reach
// the bound CompletionSink as a domain.Completion, the latter with Cancelled set.
// Explicit Cancel is silent.
package doafter

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/resist/internal/logging"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/google/uuid"
)

// CompletionSink receives finished interactions.
type CompletionSink func(ctx context.Context, actor domain.EntityID, sig *domain.Completion)

type interaction struct {
	id       domain.AttemptID
	req      domain.TimedRequest
	deadline time.Time
}

// Scheduler implements ports.Scheduler.
// Safe for concurrent use. The sink is always called without internal locks held,
// so it may start or cancel interactions.
type Scheduler struct {
	mu      sync.Mutex
	active  map[domain.AttemptID]*interaction
	byActor map[domain.EntityID]domain.AttemptID
	sink    CompletionSink
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source; simulations pass a virtual clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger configures a logger for the Scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an idle scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		active:  make(map[domain.AttemptID]*interaction),
		byActor: make(map[domain.EntityID]domain.AttemptID),
		now:     time.Now,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind sets the sink that receives completions.
func (s *Scheduler) Bind(sink CompletionSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Start schedules req. It refuses while the actor already runs an interaction.
func (s *Scheduler) Start(ctx context.Context, req domain.TimedRequest) (domain.AttemptID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if busy, ok := s.byActor[req.Actor]; ok {
		s.logger.Debug("Interaction refused, actor busy", "actor", req.Actor, "attempt", busy)
		return "", false
	}

	id := domain.AttemptID(uuid.NewString())
	s.active[id] = &interaction{id: id, req: req, deadline: s.now().Add(req.Duration)}
	s.byActor[req.Actor] = id
	return id, true
}

// Cancel aborts an interaction without delivering a completion.
// Unknown or finished handles are ignored.
func (s *Scheduler) Cancel(ctx context.Context, id domain.AttemptID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// Tick delivers the completion of every interaction whose deadline has passed,
// in deadline order, and returns how many were delivered.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	var due []*interaction
	for _, it := range s.active {
		if !it.deadline.After(now) {
			due = append(due, it)
		}
	}
	for _, it := range due {
		s.removeLocked(it.id)
	}
	sink := s.sink
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].id < due[j].id
		}
		return due[i].deadline.Before(due[j].deadline)
	})
	for _, it := range due {
		s.deliver(ctx, sink, it, false)
	}
	return len(due)
}

// NotifyMoved breaks the interaction of an actor that physically moved.
func (s *Scheduler) NotifyMoved(ctx context.Context, actor domain.EntityID) bool {
	return s.breakActor(ctx, actor, func(req domain.TimedRequest) bool { return req.BreakOnMove })
}

// NotifyDamaged breaks the interaction of an actor that took damage.
func (s *Scheduler) NotifyDamaged(ctx context.Context, actor domain.EntityID) bool {
	return s.breakActor(ctx, actor, func(req domain.TimedRequest) bool { return req.BreakOnDamage })
}

// Active returns the interaction an actor is running, if any.
func (s *Scheduler) Active(actor domain.EntityID) (domain.AttemptID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byActor[actor]
	return id, ok
}

// Remaining returns the time left on an interaction.
func (s *Scheduler) Remaining(id domain.AttemptID) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.active[id]
	if !ok {
		return 0, false
	}
	if left := it.deadline.Sub(s.now()); left > 0 {
		return left, true
	}
	return 0, true
}

// Len returns the number of running interactions.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Run calls Tick every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

func (s *Scheduler) breakActor(ctx context.Context, actor domain.EntityID, breaks func(domain.TimedRequest) bool) bool {
	s.mu.Lock()
	id, ok := s.byActor[actor]
	if !ok || !breaks(s.active[id].req) {
		s.mu.Unlock()
		return false
	}
	it := s.active[id]
	s.removeLocked(id)
	sink := s.sink
	s.mu.Unlock()

	s.deliver(ctx, sink, it, true)
	return true
}

func (s *Scheduler) deliver(ctx context.Context, sink CompletionSink, it *interaction, cancelled bool) {
	if sink == nil {
		s.logger.Warn("Completion dropped, no sink bound", "attempt", it.id)
		return
	}
	sink(ctx, it.req.Actor, &domain.Completion{
		Attempt:   it.id,
		Actor:     it.req.Actor,
		Target:    it.req.Target,
		Cancelled: cancelled,
	})
}

func (s *Scheduler) removeLocked(id domain.AttemptID) {
	it, ok := s.active[id]
	if !ok {
		return
	}
	delete(s.active, id)
	if s.byActor[it.req.Actor] == id {
		delete(s.byActor, it.req.Actor)
	}
}
