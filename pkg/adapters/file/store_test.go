package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/resist/pkg/adapters/file"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_EscapedIDs(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	entity := domain.EntityID("../cellar/rat")
	require.NoError(t, store.Save(ctx, domain.NewEscapeState(entity, time.Second)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "record stays inside the directory")

	loaded, err := store.Load(ctx, entity)
	require.NoError(t, err)
	assert.Equal(t, entity, loaded.Entity)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityID{entity}, ids)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	ctx := context.Background()

	state := domain.NewEscapeState("mouse", 2*time.Second)
	state.Attempt = "attempt-1"
	state.CancelAffordance = "affordance-1"
	state.Container = "crate"
	require.NoError(t, file.New(dir).Save(ctx, state))

	loaded, err := file.New(dir).Load(ctx, "mouse")
	require.NoError(t, err)
	assert.True(t, loaded.IsEscaping())
	assert.Equal(t, domain.EntityID("crate"), loaded.Container)
}

func TestFileStore_Missing(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	ctx := context.Background()

	_, err := store.Load(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
	assert.NoError(t, store.Delete(ctx, "ghost"))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_RejectsAnonymousState(t *testing.T) {
	err := file.New(t.TempDir()).Save(context.Background(), &domain.EscapeState{})
	assert.ErrorIs(t, err, domain.ErrInvariantViolated)
}

var _ ports.StateStore = (*file.Store)(nil)
