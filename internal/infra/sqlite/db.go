// Package sqlite provides the SQLite-backed run ledger. Every collection run
// gets one row plus one row per trajectory attempt, so operators can query
// history across runs without walking dataset directories. Uses WAL mode for
// crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the run ledger at dir/ledger.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "ledger.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			output_dir   TEXT NOT NULL,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER,
			workers      INTEGER NOT NULL,
			tasks        INTEGER NOT NULL,
			successful   INTEGER NOT NULL DEFAULT 0,
			failed       INTEGER NOT NULL DEFAULT 0,
			skipped      INTEGER NOT NULL DEFAULT 0,
			interrupted  BOOLEAN DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS attempts (
			trajectory_id TEXT PRIMARY KEY,
			run_id        TEXT NOT NULL REFERENCES runs(id),
			task_id       TEXT NOT NULL,
			slot          INTEGER NOT NULL,
			success       BOOLEAN NOT NULL,
			steps         INTEGER NOT NULL,
			duration_ms   INTEGER NOT NULL,
			error         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_task ON attempts(task_id)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Run Ledger ─────────────────────────────────────────────────────────────

// Run is one collection run's ledger row.
type Run struct {
	ID          string
	OutputDir   string
	StartedAt   time.Time
	FinishedAt  time.Time
	Workers     int
	Tasks       int
	Successful  int
	Failed      int
	Skipped     int
	Interrupted bool
}

// Attempt is one trajectory attempt's ledger row.
type Attempt struct {
	TrajectoryID string
	RunID        string
	TaskID       string
	Slot         int
	Success      bool
	Steps        int
	DurationMs   int64
	Error        string
}

// InsertRun records the start of a collection run.
func (d *DB) InsertRun(r Run) error {
	_, err := d.db.Exec(
		`INSERT INTO runs (id, output_dir, started_at, workers, tasks)
		 VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.OutputDir, r.StartedAt.Unix(), r.Workers, r.Tasks,
	)
	return err
}

// FinishRun records final counters for a run.
func (d *DB) FinishRun(r Run) error {
	_, err := d.db.Exec(
		`UPDATE runs SET finished_at=?, successful=?, failed=?, skipped=?, interrupted=?
		 WHERE id=?`,
		r.FinishedAt.Unix(), r.Successful, r.Failed, r.Skipped, r.Interrupted, r.ID,
	)
	return err
}

// InsertAttempt records one committed trajectory attempt.
func (d *DB) InsertAttempt(a Attempt) error {
	_, err := d.db.Exec(
		`INSERT INTO attempts (trajectory_id, run_id, task_id, slot, success, steps, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.TrajectoryID, a.RunID, a.TaskID, a.Slot, a.Success, a.Steps, a.DurationMs, nullable(a.Error),
	)
	return err
}

// GetRun loads one run row by id.
func (d *DB) GetRun(id string) (Run, error) {
	var r Run
	var started, finished sql.NullInt64
	err := d.db.QueryRow(
		`SELECT id, output_dir, started_at, finished_at, workers, tasks, successful, failed, skipped, interrupted
		 FROM runs WHERE id=?`, id,
	).Scan(&r.ID, &r.OutputDir, &started, &finished, &r.Workers, &r.Tasks,
		&r.Successful, &r.Failed, &r.Skipped, &r.Interrupted)
	if err != nil {
		return r, err
	}
	if started.Valid {
		r.StartedAt = time.Unix(started.Int64, 0)
	}
	if finished.Valid {
		r.FinishedAt = time.Unix(finished.Int64, 0)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.Query(
		`SELECT id, output_dir, started_at, finished_at, workers, tasks, successful, failed, skipped, interrupted
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished sql.NullInt64
		if err := rows.Scan(&r.ID, &r.OutputDir, &started, &finished, &r.Workers, &r.Tasks,
			&r.Successful, &r.Failed, &r.Skipped, &r.Interrupted); err != nil {
			return nil, err
		}
		if started.Valid {
			r.StartedAt = time.Unix(started.Int64, 0)
		}
		if finished.Valid {
			r.FinishedAt = time.Unix(finished.Int64, 0)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountAttempts returns the number of attempts recorded for a run.
func (d *DB) CountAttempts(runID string) (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM attempts WHERE run_id=?`, runID).Scan(&n)
	return n, err
}

// nullable turns an empty string into SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
