package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GrantIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := registry.NewRegistry()

	first := r.Grant(ctx, "mouse", domain.AffordanceCancelEscape)
	second := r.Grant(ctx, "mouse", domain.AffordanceCancelEscape)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Len(t, r.Granted("mouse"), 1)

	other := r.Grant(ctx, "cat", domain.AffordanceCancelEscape)
	assert.NotEqual(t, first, other, "handles are per entity")
}

func TestRegistry_RevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := registry.NewRegistry()

	id := r.Grant(ctx, "mouse", domain.AffordanceCancelEscape)
	r.Revoke(ctx, "mouse", id)
	r.Revoke(ctx, "mouse", id)
	r.Revoke(ctx, "ghost", "unknown")
	assert.Empty(t, r.Granted("mouse"))

	again := r.Grant(ctx, "mouse", domain.AffordanceCancelEscape)
	assert.NotEqual(t, id, again, "a revoked handle is never reused")
}

func TestRegistry_Activate(t *testing.T) {
	ctx := context.Background()
	r := registry.NewRegistry()

	var activated []domain.EntityID
	r.Register(domain.AffordanceCancelEscape, func(ctx context.Context, entity domain.EntityID) error {
		activated = append(activated, entity)
		return nil
	})

	id := r.Grant(ctx, "mouse", domain.AffordanceCancelEscape)
	require.NoError(t, r.Activate(ctx, "mouse", id))
	assert.Equal(t, []domain.EntityID{"mouse"}, activated)

	err := r.Activate(ctx, "cat", id)
	assert.ErrorIs(t, err, registry.ErrAffordanceNotFound)

	unhandled := r.Grant(ctx, "mouse", "inspect")
	assert.Error(t, r.Activate(ctx, "mouse", unhandled))
}
