package ports

import (
	"context"

	"github.com/aretw0/resist/pkg/domain"
)

// Scheduler runs cooperative timed interactions ("do-afters").
// Completion is delivered later, on its own signal, to whatever sink the host wires up.
type Scheduler interface {
	// Start schedules req. It returns false when the scheduler refuses,
	// e.g. because the actor already runs an exclusive interaction.
	Start(ctx context.Context, req domain.TimedRequest) (domain.AttemptID, bool)

	// Cancel aborts an interaction. Unknown or finished handles are ignored.
	Cancel(ctx context.Context, id domain.AttemptID)
}
