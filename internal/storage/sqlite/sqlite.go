// Package sqlite implements run-history storage on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"meshdoctor/internal/storage"
	"meshdoctor/internal/types"
)

const defaultListLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	score       REAL NOT NULL,
	problems    INTEGER NOT NULL,
	fixes       INTEGER NOT NULL,
	iterations  INTEGER NOT NULL,
	termination TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Store is the SQLite-backed history store.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open creates or opens a history database, applying the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &types.IOError{Path: dir, Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// WAL so batch workers can record concurrently with readers.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordRun appends one run.
func (s *Store) RecordRun(ctx context.Context, rec storage.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, source, score, problems, fixes, iterations,
			termination, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Source, rec.Score, rec.Problems, rec.Fixes, rec.Iterations,
		string(rec.Termination), rec.Status, rec.Error,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record run %s: %w", rec.RunID, err)
	}
	return nil
}

// ListRuns returns recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, source string, limit int) ([]storage.RunRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT run_id, source, score, problems, fixes, iterations,
			termination, status, error, started_at, finished_at
		FROM runs`
	args := []any{}
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY started_at DESC, run_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []storage.RunRecord
	for rows.Next() {
		var rec storage.RunRecord
		var termination, startedAt, finishedAt string
		if err := rows.Scan(&rec.RunID, &rec.Source, &rec.Score, &rec.Problems,
			&rec.Fixes, &rec.Iterations, &termination, &rec.Status, &rec.Error,
			&startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		rec.Termination = types.TerminationReason(termination)
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at of %s: %w", rec.RunID, err)
		}
		if rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at of %s: %w", rec.RunID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return records, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
