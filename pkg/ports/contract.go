package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/resist/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	entity := domain.EntityID("contract-entity-" + time.Now().Format("20060102150405"))

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewEscapeState(entity, 2*time.Second)
		state.Attempt = "attempt-1"
		state.CancelAffordance = "affordance-1"
		state.Container = "crate"
		state.Multiplier = 2.5

		err := store.Save(ctx, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, entity)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Entity, loaded.Entity)
		assert.Equal(t, state.Attempt, loaded.Attempt)
		assert.Equal(t, state.CancelAffordance, loaded.CancelAffordance)
		assert.Equal(t, state.Container, loaded.Container)
		assert.Equal(t, 2*time.Second, loaded.BaseResistTime)
		assert.InDelta(t, 2.5, loaded.Multiplier, 1e-9)
		assert.True(t, loaded.IsEscaping())
	})

	t.Run("Load returns isolated copy", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewEscapeState(entity, time.Second)))

		loaded, err := store.Load(ctx, entity)
		require.NoError(t, err)
		loaded.Attempt = "mutated"

		again, err := store.Load(ctx, entity)
		require.NoError(t, err)
		assert.Empty(t, again.Attempt, "mutating a loaded record must not touch the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+entity)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, domain.NewEscapeState(entity, time.Second))
		require.NoError(t, err)

		err = store.Delete(ctx, entity)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, entity)
		assert.ErrorIs(t, err, domain.ErrStateNotFound, "Load after Delete should return ErrStateNotFound")

		assert.NoError(t, store.Delete(ctx, entity), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := entity + "-1"
		id2 := entity + "-2"
		_ = store.Save(ctx, domain.NewEscapeState(id1, time.Second))
		_ = store.Save(ctx, domain.NewEscapeState(id2, time.Second))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		entities, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, entities, id1)
		assert.Contains(t, entities, id2)
	})
}
