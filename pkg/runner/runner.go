package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/resist"
	"github.com/aretw0/resist/internal/logging"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/i18n"
	"github.com/aretw0/resist/pkg/observability"
)

// ErrExpectationFailed is returned when a scenario ran but an expectation did not hold.
var ErrExpectationFailed = errors.New("scenario expectations failed")

// Runner plays scenarios against a fresh sandbox each time.
type Runner struct {
	logger     *slog.Logger
	catalog    *i18n.Catalog
	locale     string
	hooks      domain.LifecycleHooks
	engineOpts []resist.Option
	sandboxOps []SandboxOption
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithCatalog sets the message catalog used to localize notifications.
func WithCatalog(c *i18n.Catalog) Option {
	return func(r *Runner) {
		r.catalog = c
	}
}

// WithLocale sets the locale used when the scenario does not name one.
func WithLocale(locale string) Option {
	return func(r *Runner) {
		r.locale = locale
	}
}

// WithLifecycleHooks observes the engine alongside the transcript.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.hooks = hooks
	}
}

// WithEngineOption forwards engine options (stores, profiles, tuning).
// Lifecycle hooks passed here are replaced; use WithLifecycleHooks instead.
func WithEngineOption(opts ...resist.Option) Option {
	return func(r *Runner) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

// WithSandboxOption forwards sandbox options (world limits, scheduler logging).
func WithSandboxOption(opts ...SandboxOption) Option {
	return func(r *Runner) {
		r.sandboxOps = append(r.sandboxOps, opts...)
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger: logging.NewNop(),
		locale: i18n.BaseLocale,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run plays sc on a virtual clock and returns its transcript. Expectation failures
// are recorded in the transcript and reported as ErrExpectationFailed; any other
// error aborts the run.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Transcript, error) {
	catalog := r.catalog
	if catalog == nil {
		var err error
		if catalog, err = i18n.LoadEmbedded(); err != nil {
			return nil, err
		}
	}
	locale := sc.Locale
	if locale == "" {
		locale = r.locale
	}

	p := &play{transcript: &Transcript{Name: sc.Name}, start: time.Unix(0, 0).UTC()}

	notifier := i18n.NewNotifier(catalog, locale, func(ctx context.Context, entity domain.EntityID, key domain.MessageKey, text string) {
		p.add(LineNotice, entity, text)
	})

	hooks := observability.ComposeHooks(r.transcriptHooks(p), observability.LogHooks(r.logger), r.hooks)
	opts := append([]SandboxOption{
		WithNotifier(notifier),
		WithVirtualClock(p.start),
		WithEngineOptions(append(append([]resist.Option{}, r.engineOpts...), resist.WithLifecycleHooks(hooks))...),
	}, r.sandboxOps...)

	sb, err := NewSandbox(opts...)
	if err != nil {
		return nil, err
	}
	p.sandbox = sb

	if err := sc.Populate(ctx, sb); err != nil {
		return nil, err
	}

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return p.transcript, err
		}
		r.logger.Debug("Scenario step", "index", i+1, "action", st.Action, "entity", st.Entity)
		if err := p.step(ctx, st); err != nil {
			return p.transcript, fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
	}

	if p.transcript.Failed() {
		return p.transcript, ErrExpectationFailed
	}
	return p.transcript, nil
}

// transcriptHooks records lifecycle events as transcript lines.
func (r *Runner) transcriptHooks(p *play) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAttemptStart: func(ctx context.Context, e *domain.AttemptEvent) {
			p.add(LineEvent, e.Entity, fmt.Sprintf("attempt started against %s (%s, x%g, %s)", e.Container, e.Contest, e.Multiplier, e.Duration))
		},
		OnAttemptEnd: func(ctx context.Context, e *domain.AttemptEvent) {
			p.add(LineEvent, e.Entity, fmt.Sprintf("attempt ended: %s, release %s", e.Outcome, e.Release))
		},
		OnRejected: func(ctx context.Context, e *domain.RejectionEvent) {
			p.add(LineEvent, e.Entity, fmt.Sprintf("attempt rejected by %s", e.Container))
		},
	}
}

type play struct {
	mu         sync.Mutex
	sandbox    *Sandbox
	transcript *Transcript
	start      time.Time
}

func (p *play) add(kind LineKind, entity domain.EntityID, text string) {
	var at time.Duration
	if p.sandbox != nil {
		at = p.sandbox.Now().Sub(p.start)
	}
	p.mu.Lock()
	p.transcript.Lines = append(p.transcript.Lines, Line{At: at, Kind: kind, Entity: entity, Text: text})
	p.mu.Unlock()
}

func (p *play) step(ctx context.Context, st Step) error {
	sb := p.sandbox
	entity := domain.EntityID(st.Entity)

	switch st.Action {
	case ActionMove:
		keys, err := domain.ParseMoveButtons(st.Keys)
		if err != nil {
			return err
		}
		p.add(LineStep, entity, "move "+keys.String())
		return sb.Press(ctx, entity, keys)
	case ActionRelease:
		p.add(LineStep, entity, "release keys")
		return sb.Press(ctx, entity, domain.MoveNone)
	case ActionCancel:
		pressed, err := sb.Cancel(ctx, entity)
		if pressed {
			p.add(LineStep, entity, "cancel")
		} else {
			p.add(LineStep, entity, "cancel (no control)")
		}
		return err
	case ActionDrop:
		p.add(LineStep, entity, "dropped")
		return sb.Drop(ctx, entity)
	case ActionDamage:
		p.add(LineStep, entity, "damaged")
		sb.Damage(ctx, entity)
		return nil
	case ActionRelocate:
		p.add(LineStep, entity, "relocated to "+orWorld(st.Parent))
		return sb.Relocate(ctx, entity, domain.EntityID(st.Parent))
	case ActionAdvance:
		_, err := sb.Advance(ctx, st.Duration)
		return err
	case ActionStrip:
		p.add(LineStep, entity, "capability stripped")
		return sb.Engine.Strip(ctx, entity)
	case ActionAttempt:
		p.add(LineStep, entity, fmt.Sprintf("forced attempt against %s x%g", st.Container, st.Multiplier))
		return sb.Engine.AttemptEscape(ctx, entity, domain.EntityID(st.Container), st.Multiplier)
	case ActionUpdate:
		p.add(LineStep, entity, "markers updated")
		return sb.World.Update(entity, st.Set.apply)
	case ActionExpect:
		return p.expect(ctx, entity, st.Expect)
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
}

func (p *play) expect(ctx context.Context, entity domain.EntityID, want *Expectation) error {
	view, err := p.sandbox.Inspect(ctx, entity)
	if err != nil {
		return err
	}

	var failures []string
	if want.Escaping != nil {
		escaping := view.State != nil && view.State.IsEscaping()
		if escaping != *want.Escaping {
			failures = append(failures, fmt.Sprintf("escaping = %t, want %t", escaping, *want.Escaping))
		}
	}
	if want.Parent != nil && string(view.Entity.Parent) != *want.Parent {
		failures = append(failures, fmt.Sprintf("parent = %s, want %s", orWorld(string(view.Entity.Parent)), orWorld(*want.Parent)))
	}
	if want.Multiplier != nil {
		var got float64
		if view.State != nil {
			got = view.State.Multiplier
		}
		if got != *want.Multiplier {
			failures = append(failures, fmt.Sprintf("multiplier = %g, want %g", got, *want.Multiplier))
		}
	}
	if want.Affordances != nil && len(view.Affordances) != *want.Affordances {
		failures = append(failures, fmt.Sprintf("affordances = %d, want %d", len(view.Affordances), *want.Affordances))
	}

	if len(failures) == 0 {
		p.add(LineStep, entity, "expectations met")
		return nil
	}
	for _, f := range failures {
		p.add(LineFailure, entity, f)
	}
	return nil
}

func orWorld(parent string) string {
	if parent == "" {
		return "world"
	}
	return parent
}
