package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/resist/pkg/domain"
)

// ComposeHooks merges several hook sets into one that calls each in order.
func ComposeHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var (
		starts  []func(context.Context, *domain.AttemptEvent)
		ends    []func(context.Context, *domain.AttemptEvent)
		rejects []func(context.Context, *domain.RejectionEvent)
	)
	for _, h := range sets {
		if h.OnAttemptStart != nil {
			starts = append(starts, h.OnAttemptStart)
		}
		if h.OnAttemptEnd != nil {
			ends = append(ends, h.OnAttemptEnd)
		}
		if h.OnRejected != nil {
			rejects = append(rejects, h.OnRejected)
		}
	}

	var out domain.LifecycleHooks
	if len(starts) > 0 {
		out.OnAttemptStart = func(ctx context.Context, e *domain.AttemptEvent) {
			for _, fn := range starts {
				fn(ctx, e)
			}
		}
	}
	if len(ends) > 0 {
		out.OnAttemptEnd = func(ctx context.Context, e *domain.AttemptEvent) {
			for _, fn := range ends {
				fn(ctx, e)
			}
		}
	}
	if len(rejects) > 0 {
		out.OnRejected = func(ctx context.Context, e *domain.RejectionEvent) {
			for _, fn := range rejects {
				fn(ctx, e)
			}
		}
	}
	return out
}

// LogHooks returns hooks that write one structured line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAttemptStart: func(ctx context.Context, e *domain.AttemptEvent) {
			logger.InfoContext(ctx, "attempt_start",
				"entity", e.Entity,
				"container", e.Container,
				"contest", e.Contest,
				"multiplier", e.Multiplier,
				"duration", e.Duration,
			)
		},
		OnAttemptEnd: func(ctx context.Context, e *domain.AttemptEvent) {
			logger.InfoContext(ctx, "attempt_end",
				"entity", e.Entity,
				"attempt", e.Attempt,
				"outcome", e.Outcome,
				"release", e.Release,
			)
		},
		OnRejected: func(ctx context.Context, e *domain.RejectionEvent) {
			logger.InfoContext(ctx, "attempt_rejected",
				"entity", e.Entity,
				"container", e.Container,
			)
		},
	}
}
