// Package results persists load-test and workflow run outcomes in a local
// SQLite database so past runs can be listed and compared.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no run matches the requested ID.
var ErrNotFound = errors.New("results: run not found")

// Run is one stored tool execution, either a load test or a workflow.
type Run struct {
	ID            string
	Kind          string // loadtest, workflow, simulate
	Scenario      string
	Tenant        string
	StartedAt     time.Time
	Duration      time.Duration
	TotalRequests int
	Succeeded     int
	Failed        int
	P95           time.Duration
	P99           time.Duration

	// Report is the full JSON report as produced by the run; the summary
	// columns above are denormalized out of it for listing.
	Report json.RawMessage
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the results database at dsn and applies any
// pending migrations. Plain file paths get their parent directory created.
func Open(dsn string) (*Store, error) {
	if dsn != ":memory:" && !strings.Contains(dsn, "://") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveRun inserts one run record.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	report := run.Report
	if len(report) == 0 {
		report = json.RawMessage(`{}`)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, kind, scenario, tenant, started_at, duration_ms,
			total_requests, succeeded, failed, p95_ms, p99_ms, report
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Scenario, run.Tenant,
		run.StartedAt.UTC(), run.Duration.Milliseconds(),
		run.TotalRequests, run.Succeeded, run.Failed,
		float64(run.P95)/float64(time.Millisecond),
		float64(run.P99)/float64(time.Millisecond),
		string(report),
	)
	return err
}

// GetRun fetches one run by ID, including its full report.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, scenario, tenant, started_at, duration_ms,
		       total_requests, succeeded, failed, p95_ms, p99_ms, report
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first. A limit below 1
// defaults to 20.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, scenario, tenant, started_at, duration_ms,
		       total_requests, succeeded, failed, p95_ms, p99_ms, report
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRunsBefore removes runs older than cutoff and reports how many went.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		durationMs int64
		p95, p99   float64
		report     string
	)
	err := row.Scan(
		&run.ID, &run.Kind, &run.Scenario, &run.Tenant,
		&run.StartedAt, &durationMs,
		&run.TotalRequests, &run.Succeeded, &run.Failed,
		&p95, &p99, &report,
	)
	if err != nil {
		return Run{}, err
	}

	run.Duration = time.Duration(durationMs) * time.Millisecond
	run.P95 = time.Duration(p95 * float64(time.Millisecond))
	run.P99 = time.Duration(p99 * float64(time.Millisecond))
	run.Report = json.RawMessage(report)
	return run, nil
}
