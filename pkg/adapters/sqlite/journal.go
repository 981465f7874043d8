// Package sqlite records the lifecycle of escape attempts in a SQLite journal.
//
// The journal is an append-only audit trail fed from domain.LifecycleHooks; it is
// never read back by the engine.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/resist/internal/logging"
	"github.com/aretw0/resist/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS escape_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at INTEGER NOT NULL,
	type        TEXT    NOT NULL,
	entity      TEXT    NOT NULL,
	attempt     TEXT    NOT NULL DEFAULT '',
	container   TEXT    NOT NULL DEFAULT '',
	contest     TEXT    NOT NULL DEFAULT '',
	multiplier  REAL    NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	outcome     TEXT    NOT NULL DEFAULT '',
	release_path TEXT   NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS escape_events_entity ON escape_events(entity, id);
`

// Entry is one journal row.
type Entry struct {
	ID         int64              `json:"id"`
	RecordedAt time.Time          `json:"recorded_at"`
	Type       domain.EventType   `json:"type"`
	Entity     domain.EntityID    `json:"entity"`
	Attempt    domain.AttemptID   `json:"attempt,omitempty"`
	Container  domain.EntityID    `json:"container,omitempty"`
	Contest    domain.ContestKind `json:"contest,omitempty"`
	Multiplier float64            `json:"multiplier,omitempty"`
	Duration   time.Duration      `json:"duration,omitempty"`
	Outcome    domain.Outcome     `json:"outcome,omitempty"`
	Release    domain.ReleasePath `json:"release,omitempty"`
}

// Journal persists attempt events.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures the Journal.
type Option func(*Journal)

// WithLogger configures a logger for write failures reported by hooks.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Journal) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// Open opens (creating if needed) the journal at path. ":memory:" is accepted.
func Open(path string, opts ...Option) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("empty journal path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	j := &Journal{db: db, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Record appends an entry.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO escape_events
			(recorded_at, type, entity, attempt, container, contest, multiplier, duration_ms, outcome, release_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RecordedAt.UnixMilli(), string(e.Type), string(e.Entity), string(e.Attempt), string(e.Container),
		string(e.Contest), e.Multiplier, e.Duration.Milliseconds(), string(e.Outcome), string(e.Release),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s for %s: %w", e.Type, e.Entity, err)
	}
	return nil
}

// Recent returns up to limit entries of entity, newest first.
// An empty entity returns entries of every entity.
func (j *Journal) Recent(ctx context.Context, entity domain.EntityID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, recorded_at, type, entity, attempt, container, contest, multiplier, duration_ms, outcome, release_path
		FROM escape_events
		WHERE ? = '' OR entity = ?
		ORDER BY id DESC
		LIMIT ?`, string(entity), string(entity), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			recordedAt int64
			durationMS int64
			typ        string
			ent        string
			attempt    string
			container  string
			contest    string
			outcome    string
			release    string
		)
		if err := rows.Scan(&e.ID, &recordedAt, &typ, &ent, &attempt, &container, &contest, &e.Multiplier, &durationMS, &outcome, &release); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.RecordedAt = time.UnixMilli(recordedAt)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.Type = domain.EventType(typ)
		e.Entity = domain.EntityID(ent)
		e.Attempt = domain.AttemptID(attempt)
		e.Container = domain.EntityID(container)
		e.Contest = domain.ContestKind(contest)
		e.Outcome = domain.Outcome(outcome)
		e.Release = domain.ReleasePath(release)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Hooks returns lifecycle hooks that journal every event.
// Write failures are logged, never propagated to the engine.
func (j *Journal) Hooks() domain.LifecycleHooks {
	record := func(ctx context.Context, e Entry) {
		if err := j.Record(ctx, e); err != nil {
			j.logger.Warn("Failed to journal escape event", "entity", e.Entity, "err", err)
		}
	}
	fromAttempt := func(ev *domain.AttemptEvent) Entry {
		return Entry{
			RecordedAt: ev.Timestamp,
			Type:       ev.Type,
			Entity:     ev.Entity,
			Attempt:    ev.Attempt,
			Container:  ev.Container,
			Contest:    ev.Contest,
			Multiplier: ev.Multiplier,
			Duration:   ev.Duration,
			Outcome:    ev.Outcome,
			Release:    ev.Release,
		}
	}

	return domain.LifecycleHooks{
		OnAttemptStart: func(ctx context.Context, ev *domain.AttemptEvent) {
			record(ctx, fromAttempt(ev))
		},
		OnAttemptEnd: func(ctx context.Context, ev *domain.AttemptEvent) {
			record(ctx, fromAttempt(ev))
		},
		OnRejected: func(ctx context.Context, ev *domain.RejectionEvent) {
			record(ctx, Entry{RecordedAt: ev.Timestamp, Type: ev.Type, Entity: ev.Entity, Container: ev.Container})
		},
	}
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
