package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/resist/pkg/adapters/memory"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorld(t *testing.T, entities ...memory.Entity) *memory.World {
	t.Helper()
	w := memory.NewWorld()
	for _, e := range entities {
		require.NoError(t, w.Add(e))
	}
	return w
}

func TestWorld_Containment(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t,
		memory.Entity{ID: "room"},
		memory.Entity{ID: "crate", Parent: "room", Features: domain.FeatureStorage},
		memory.Entity{ID: "mouse", Parent: "crate"},
		memory.Entity{ID: "rock"},
	)

	c, ok := w.ContainerOf(ctx, "mouse")
	require.True(t, ok)
	assert.Equal(t, domain.EntityID("crate"), c.Owner)
	assert.True(t, c.Features.Has(domain.FeatureStorage))

	_, ok = w.ContainerOf(ctx, "rock")
	assert.False(t, ok, "entities in the world have no container")

	_, ok = w.ContainerOf(ctx, "ghost")
	assert.False(t, ok)

	assert.True(t, w.CanRemove(ctx, "mouse", c))
	assert.False(t, w.CanRemove(ctx, "mouse", domain.Container{Owner: "room"}), "stale container")

	require.NoError(t, w.Update("mouse", func(e *memory.Entity) { e.Pinned = true }))
	assert.False(t, w.CanRemove(ctx, "mouse", c))
}

func TestWorld_Markers(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t,
		memory.Entity{ID: "giant"},
		memory.Entity{ID: "mouse", Parent: "giant", InHand: true, Swallowed: true, Incapacitated: true},
	)

	assert.True(t, w.IsHolding(ctx, "giant", "mouse"))
	assert.False(t, w.IsHolding(ctx, "someone-else", "mouse"))
	assert.True(t, w.IsSwallowed(ctx, "mouse"))
	assert.False(t, w.CanInteract(ctx, "mouse", "giant"))
	assert.False(t, w.CanInteract(ctx, "ghost", "giant"))
}

func TestWorld_Disadvantage(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t,
		memory.Entity{ID: "giant", Mass: 100},
		memory.Entity{ID: "human", Mass: 70},
		memory.Entity{ID: "cat", Mass: 35},
		memory.Entity{ID: "mouse", Mass: 1},
		memory.Entity{ID: "weightless"},
	)

	tests := []struct {
		name      string
		container domain.EntityID
		contained domain.EntityID
		factor    float64
		want      float64
	}{
		{"Ratio", "human", "cat", 3, 2},
		{"Clamped by range factor", "giant", "mouse", 3, 3},
		{"Clamped by max disadvantage", "giant", "mouse", 10, domain.DefaultMaxMassDisadvantage},
		{"Lower bound", "mouse", "giant", 3, 1.0 / 3},
		{"Missing mass", "weightless", "mouse", 3, 1},
		{"Unknown entity", "ghost", "mouse", 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, w.Disadvantage(ctx, tt.container, tt.contained, tt.factor), 1e-9)
		})
	}
}

func TestWorld_DetachToContainerParent(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t,
		memory.Entity{ID: "room"},
		memory.Entity{ID: "human", Parent: "room"},
		memory.Entity{ID: "mouse", Parent: "human", InHand: true, Pinned: true},
		memory.Entity{ID: "bird", Parent: "human"},
	)

	w.AttachToContainerOrWorld(ctx, "mouse")
	mouse, _ := w.Get("mouse")
	assert.Equal(t, domain.EntityID("room"), mouse.Parent)
	assert.False(t, mouse.InHand)
	assert.False(t, mouse.Pinned)

	// The room itself lies in the world.
	w.AttachToContainerOrWorld(ctx, "mouse")
	mouse, _ = w.Get("mouse")
	assert.Empty(t, mouse.Parent)

	require.NoError(t, w.Drop("bird"))
	bird, _ := w.Get("bird")
	assert.Equal(t, domain.EntityID("room"), bird.Parent)

	assert.ErrorIs(t, w.Drop("ghost"), memory.ErrUnknownEntity)
}

func TestWorld_Carrying(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t,
		memory.Entity{ID: "human"},
		memory.Entity{ID: "cat", Parent: "human", CarriedBy: "human"},
	)

	carrier, ok := w.CarrierOf(ctx, "cat")
	require.True(t, ok)
	assert.Equal(t, domain.EntityID("human"), carrier)

	w.DropCarried(ctx, "someone-else", "cat")
	_, ok = w.CarrierOf(ctx, "cat")
	assert.True(t, ok, "only the recorded carrier can drop")

	w.DropCarried(ctx, "human", "cat")
	_, ok = w.CarrierOf(ctx, "cat")
	assert.False(t, ok)
	_, contained := w.ContainerOf(ctx, "cat")
	assert.False(t, contained)
}

func TestWorld_AddValidation(t *testing.T) {
	w := memory.NewWorld()
	assert.Error(t, w.Add(memory.Entity{}))
	assert.Error(t, w.Add(memory.Entity{ID: "loop", Parent: "loop"}))
	assert.ErrorIs(t, w.Update("ghost", func(e *memory.Entity) {}), memory.ErrUnknownEntity)
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := memory.NewRecorder()
	r.Notify(ctx, "mouse", domain.MsgStartResisting)
	r.Notify(ctx, "crate", domain.MsgStartResistingTarget)
	r.Notify(ctx, "mouse", domain.MsgStartResisting)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 2, r.Count("mouse", domain.MsgStartResisting))
	assert.Equal(t, 0, r.Count("crate", domain.MsgStartResisting))
	assert.Equal(t, domain.EntityID("crate"), r.All()[1].Entity)
}
