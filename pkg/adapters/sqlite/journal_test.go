package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/resist/pkg/adapters/sqlite"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openJournal(t *testing.T) *sqlite.Journal {
	t.Helper()
	j, err := sqlite.Open(filepath.Join(t.TempDir(), "journal", "escape.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)

	at := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, j.Record(ctx, sqlite.Entry{
		RecordedAt: at, Type: domain.EventAttemptStart, Entity: "mouse", Attempt: "a1",
		Container: "crate", Contest: domain.ContestUncontested, Multiplier: 1, Duration: 2 * time.Second,
	}))
	require.NoError(t, j.Record(ctx, sqlite.Entry{Type: domain.EventRejected, Entity: "cat", Container: "crate"}))
	require.NoError(t, j.Record(ctx, sqlite.Entry{
		Type: domain.EventAttemptEnd, Entity: "mouse", Attempt: "a1",
		Outcome: domain.OutcomeSucceeded, Release: domain.ReleaseDetach,
	}))

	mouse, err := j.Recent(ctx, "mouse", 10)
	require.NoError(t, err)
	require.Len(t, mouse, 2)
	assert.Equal(t, domain.EventAttemptEnd, mouse[0].Type, "newest first")
	assert.Equal(t, domain.ReleaseDetach, mouse[0].Release)

	start := mouse[1]
	assert.Equal(t, at, start.RecordedAt)
	assert.Equal(t, domain.AttemptID("a1"), start.Attempt)
	assert.Equal(t, domain.ContestUncontested, start.Contest)
	assert.Equal(t, 2*time.Second, start.Duration)

	all, err := j.Recent(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := j.Recent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestJournal_Hooks(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)
	hooks := j.Hooks()

	hooks.OnAttemptStart(ctx, &domain.AttemptEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventAttemptStart, Entity: "mouse"},
		Attempt:   "a1",
	})
	hooks.OnAttemptEnd(ctx, &domain.AttemptEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventAttemptEnd, Entity: "mouse"},
		Attempt:   "a1",
		Outcome:   domain.OutcomeCancelled,
	})
	hooks.OnRejected(ctx, &domain.RejectionEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRejected, Entity: "mouse"},
		Container: "crate",
	})

	entries, err := j.Recent(ctx, "mouse", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.EventRejected, entries[0].Type)
	assert.Equal(t, domain.OutcomeCancelled, entries[1].Outcome)
}

func TestJournal_ReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "escape.db")

	j, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, sqlite.Entry{Type: domain.EventRejected, Entity: "mouse"}))
	require.NoError(t, j.Close())

	j, err = sqlite.Open(path)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.Recent(ctx, "mouse", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJournal_EmptyPath(t *testing.T) {
	_, err := sqlite.Open("")
	assert.Error(t, err)
}
