// Package storage keeps a SQLite journal of job runs.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"timeledger/internal/core"
)

const (
	// Fixed width so that text order is time order.
	timeLayout   = "2006-01-02T15:04:05.000000000Z07:00"
	defaultLimit = 20
	maxLimit     = 500
)

// Journal records every job run.
type Journal struct {
	db      *sql.DB
	version uint
}

// Open creates the database file if needed and applies migrations.
func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	version, err := migrateJournal(dbPath)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Journal{db: db, version: version}, nil
}

// SchemaVersion is the migration version the journal was opened at.
func (j *Journal) SchemaVersion() uint {
	return j.version
}

func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// RecordRun stores a finished run. Recording the same ID twice overwrites it.
func (j *Journal) RecordRun(ctx context.Context, run core.JobRun) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job, started_at, finished_at, status, written, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			status      = excluded.status,
			written     = excluded.written,
			skipped     = excluded.skipped,
			error       = excluded.error`,
		run.ID, run.Job,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		string(run.Status), run.Stats.Written, run.Stats.Skipped, run.Error,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. An empty job lists every job.
func (j *Journal) ListRuns(ctx context.Context, job string, limit int) ([]core.JobRun, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	query := `SELECT id, job, started_at, finished_at, status, written, skipped, error FROM job_runs`
	args := []any{}
	if job != "" {
		query += ` WHERE job = ?`
		args = append(args, job)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []core.JobRun
	for rows.Next() {
		var (
			run               core.JobRun
			started, finished string
			status            string
		)
		if err := rows.Scan(&run.ID, &run.Job, &started, &finished, &status,
			&run.Stats.Written, &run.Stats.Skipped, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = core.RunStatus(status)
		if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at of %s: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at of %s: %w", run.ID, err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
