// Package catalog keeps a local SQLite journal of completed runs so the
// status and history commands can answer questions without touching the
// remote tier.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; the journal is derived data and safe to delete on mismatch.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Outcome classifies what a run did with one artifact key.
type Outcome string

const (
	OutcomeBuilt   Outcome = "built"
	OutcomeSkipped Outcome = "skipped"
	OutcomeEvicted Outcome = "evicted"
	OutcomeFailed  Outcome = "failed"
)

// Artifact is one per-key journal entry.
type Artifact struct {
	Key     string
	Outcome Outcome
	Detail  string
}

// Run is a completed run ready for journaling.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Artifacts  []Artifact
	Err        string
}

// Summary is one row of run history.
type Summary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Built      int
	Skipped    int
	Evicted    int
	Failed     int
	Err        string
}

// Store manages the journal database.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// RecordRun journals a completed run and its per-key outcomes in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	var built, skipped, evicted, failed int
	for _, a := range run.Artifacts {
		switch a.Outcome {
		case OutcomeBuilt:
			built++
		case OutcomeSkipped:
			skipped++
		case OutcomeEvicted:
			evicted++
		case OutcomeFailed:
			failed++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, finished_at, built, skipped, evicted, failed, error)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		built, skipped, evicted, failed,
		nullableString(run.Err),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, a := range run.Artifacts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_artifacts (run_id, artifact_key, outcome, detail)
             VALUES (?, ?, ?, ?)`,
			run.ID, a.Key, string(a.Outcome), nullableString(a.Detail),
		); err != nil {
			return fmt.Errorf("insert run artifact %s: %w", a.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run tx: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit run summaries, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, built, skipped, evicted, failed, error
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			sum                   Summary
			startedAt, finishedAt string
			errText               sql.NullString
		)
		if err := rows.Scan(&sum.ID, &startedAt, &finishedAt,
			&sum.Built, &sum.Skipped, &sum.Evicted, &sum.Failed, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if sum.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if sum.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		sum.Err = errText.String
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Artifacts returns the per-key outcomes recorded for a run.
func (s *Store) Artifacts(ctx context.Context, runID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT artifact_key, outcome, detail FROM run_artifacts
         WHERE run_id = ? ORDER BY artifact_key`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var (
			a      Artifact
			detail sql.NullString
		)
		if err := rows.Scan(&a.Key, (*string)(&a.Outcome), &detail); err != nil {
			return nil, fmt.Errorf("scan run artifact: %w", err)
		}
		a.Detail = detail.String
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
