package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/session"
)

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithSessions sets the session manager that stores and serializes escape records.
func WithSessions(m *session.Manager) Option {
	return func(c *Controller) {
		if m != nil {
			c.sessions = m
		}
	}
}

// WithHandRangeFactor sets the range factor passed to the contest evaluator for hand grips.
func WithHandRangeFactor(f float64) Option {
	return func(c *Controller) {
		if f > 0 {
			c.handRangeFactor = f
		}
	}
}

// WithSwallowedMultiplier sets the fixed multiplier for internally held entities.
func WithSwallowedMultiplier(m float64) Option {
	return func(c *Controller) {
		if m > 0 {
			c.swallowedMultiplier = m
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}
