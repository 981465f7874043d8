package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/ports"
)

// ReleaseResolver picks and runs exactly one release behavior for a finished attempt.
type ReleaseResolver struct {
	carrying    ports.Carrying
	containment ports.ContainmentQuery
	detacher    ports.Detacher
	logger      *slog.Logger
}

// NewReleaseResolver creates a resolver. carrying may be nil when no carrying feature exists.
func NewReleaseResolver(carrying ports.Carrying, containment ports.ContainmentQuery, detacher ports.Detacher, logger *slog.Logger) *ReleaseResolver {
	return &ReleaseResolver{
		carrying:    carrying,
		containment: containment,
		detacher:    detacher,
		logger:      logger,
	}
}

// Resolve releases entity. The carrying feature owns its own release, so a recorded
// carrier supersedes generic detachment and leaves the signal unhandled.
func (r *ReleaseResolver) Resolve(ctx context.Context, entity domain.EntityID, sig *domain.Completion) domain.ReleasePath {
	if r.carrying != nil {
		if carrier, ok := r.carrying.CarrierOf(ctx, entity); ok {
			r.carrying.DropCarried(ctx, carrier, entity)
			r.logger.Debug("Released by carrier drop", "entity", entity, "carrier", carrier)
			return domain.ReleaseCarriedDrop
		}
	}

	// Containment may have changed while the timer ran.
	if _, ok := r.containment.ContainerOf(ctx, entity); !ok {
		r.logger.Debug("Nothing to release from", "entity", entity)
		return domain.ReleaseNone
	}

	r.detacher.AttachToContainerOrWorld(ctx, entity)
	sig.Handled = true
	return domain.ReleaseDetach
}
