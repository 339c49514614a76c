// internal/history/history.go

// Package history keeps a SQLite log of finished sessions so runs can be
// compared over time.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/mwiater/lmperf/internal/metrics"
	"github.com/mwiater/lmperf/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	mode            TEXT NOT NULL,
	state           TEXT NOT NULL,
	endpoint        TEXT NOT NULL,
	model           TEXT NOT NULL,
	concurrency     INTEGER NOT NULL,
	started_at      TEXT NOT NULL,
	wall_clock_s    REAL NOT NULL,
	issued          INTEGER NOT NULL,
	success         INTEGER NOT NULL,
	failure         INTEGER NOT NULL,
	timeout         INTEGER NOT NULL,
	mean_latency_s  REAL,
	p95_latency_s   REAL,
	mean_tps        REAL,
	aggregate_tps   REAL,
	artifact_path   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one row of the history table.
type Run struct {
	ID           string
	Mode         string
	State        string
	Endpoint     string
	Model        string
	Concurrency  int
	StartedAt    time.Time
	WallClock    float64
	Issued       int
	Success      int
	Failure      int
	Timeout      int
	MeanLatency  *float64
	P95Latency   *float64
	MeanTPS      *float64
	AggregateTPS *float64
	ArtifactPath string
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history database path is empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores a finished session. Re-recording the same session replaces the row.
func (s *Store) Record(ctx context.Context, snap session.Snapshot, rep metrics.Report, artifactPath string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs (
	id, mode, state, endpoint, model, concurrency, started_at, wall_clock_s,
	issued, success, failure, timeout, mean_latency_s, p95_latency_s, mean_tps, aggregate_tps, artifact_path
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, string(snap.Config.Mode), string(snap.State), snap.Config.Endpoint, snap.Config.Model,
		snap.Config.Concurrency, snap.StartedAt.UTC().Format(time.RFC3339Nano), rep.WallClockSeconds,
		rep.Reliability.Issued, rep.Reliability.Success, rep.Reliability.Failure, rep.Reliability.Timeout,
		nullable(rep.Latency.Mean), nullable(rep.Latency.P95), nullable(rep.Throughput.MeanTPS), nullable(rep.Throughput.AggregateTPS),
		artifactPath,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", snap.ID, err)
	}
	return nil
}

// List returns the most recent runs first. A non-positive limit returns all rows.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, mode, state, endpoint, model, concurrency, started_at, wall_clock_s,
	issued, success, failure, timeout, mean_latency_s, p95_latency_s, mean_tps, aggregate_tps, artifact_path
FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                             Run
			started                       string
			meanLat, p95Lat, meanTPS, agg sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Mode, &r.State, &r.Endpoint, &r.Model, &r.Concurrency, &started, &r.WallClock,
			&r.Issued, &r.Success, &r.Failure, &r.Timeout, &meanLat, &p95Lat, &meanTPS, &agg, &r.ArtifactPath); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %s has invalid start time: %w", r.ID, err)
		}
		r.MeanLatency = fromNull(meanLat)
		r.P95Latency = fromNull(p95Lat)
		r.MeanTPS = fromNull(meanTPS)
		r.AggregateTPS = fromNull(agg)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
