// Package runstore persists correction-run summaries to SQLite so
// operators can review factor drift and timing across a campaign. The
// schema is owned by embedded migrations and applied on open.
package runstore

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/beamline-data/fluxnorm/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run is one persisted correction run. Factors is only populated for
// adaptive runs; Error is empty for runs that finished cleanly;
// CompletedAt is nil while a run is still in flight.
type Run struct {
	RunID       string
	Strategy    string
	Frames      int
	Height      int
	Width       int
	Sigma       float64
	AirPixels   int
	Workers     int
	Factors     []float64
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run store at path and applies
// any pending schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening run store %s: %w", path, err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// InsertRun records a run that has just started. Factors and Error may
// already be set when a finished run is recorded in one shot.
func (s *Store) InsertRun(run Run) error {
	if run.RunID == "" {
		return fmt.Errorf("runstore: empty run id")
	}
	factors, err := factorsJSON(run.Factors)
	if err != nil {
		return err
	}
	var completedAt interface{}
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UnixNano()
	}
	query := `
		INSERT INTO correction_runs (
			run_id, strategy, frames, height, width, sigma, air_pixels,
			workers, factors_json, error, started_at_unix_nanos,
			completed_at_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err = retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			run.RunID,
			run.Strategy,
			run.Frames,
			run.Height,
			run.Width,
			run.Sigma,
			run.AirPixels,
			run.Workers,
			nullStr(factors),
			nullStr(run.Error),
			run.StartedAt.UnixNano(),
			completedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.RunID, err)
	}
	monitoring.Logf("[runstore] recorded run %s (%s, %d frames)", run.RunID, run.Strategy, run.Frames)
	return nil
}

// CompleteRun marks a run finished, storing its factors (nil for the
// fixed-boundary path), its error message (empty on success) and the
// completion time.
func (s *Store) CompleteRun(runID string, factors []float64, errMsg string, completedAt time.Time) error {
	factorsStr, err := factorsJSON(factors)
	if err != nil {
		return err
	}
	query := `
		UPDATE correction_runs
		SET factors_json = ?, error = ?, completed_at_unix_nanos = ?
		WHERE run_id = ?
	`
	var affected int64
	err = retryOnBusy(func() error {
		res, err := s.db.Exec(query, nullStr(factorsStr), nullStr(errMsg), completedAt.UnixNano(), runID)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("completing run %s: %w", runID, err)
	}
	if affected == 0 {
		return fmt.Errorf("completing run %s: no such run", runID)
	}
	return nil
}

// GetRun returns a run by id, or nil when no such run exists.
func (s *Store) GetRun(runID string) (*Run, error) {
	query := `
		SELECT run_id, strategy, frames, height, width, sigma, air_pixels,
		       workers, factors_json, error, started_at_unix_nanos,
		       completed_at_unix_nanos
		FROM correction_runs
		WHERE run_id = ?
	`
	var run Run
	var factors, errMsg sql.NullString
	var startedAt int64
	var completedAt sql.NullInt64
	err := s.db.QueryRow(query, runID).Scan(
		&run.RunID, &run.Strategy, &run.Frames, &run.Height, &run.Width,
		&run.Sigma, &run.AirPixels, &run.Workers,
		&factors, &errMsg, &startedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}

	if factors.Valid && factors.String != "" {
		if err := json.Unmarshal([]byte(factors.String), &run.Factors); err != nil {
			return nil, fmt.Errorf("decoding factors for run %s: %w", runID, err)
		}
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	run.StartedAt = time.Unix(0, startedAt).UTC()
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64).UTC()
		run.CompletedAt = &t
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first. Factors are
// omitted to keep listings cheap; fetch a single run for the full
// record.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	query := `
		SELECT run_id, strategy, frames, height, width, sigma, air_pixels,
		       workers, error, started_at_unix_nanos, completed_at_unix_nanos
		FROM correction_runs
		ORDER BY started_at_unix_nanos DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var errMsg sql.NullString
		var startedAt int64
		var completedAt sql.NullInt64
		if err := rows.Scan(
			&run.RunID, &run.Strategy, &run.Frames, &run.Height, &run.Width,
			&run.Sigma, &run.AirPixels, &run.Workers,
			&errMsg, &startedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		run.StartedAt = time.Unix(0, startedAt).UTC()
		if completedAt.Valid {
			t := time.Unix(0, completedAt.Int64).UTC()
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

func factorsJSON(factors []float64) (string, error) {
	if len(factors) == 0 {
		return "", nil
	}
	data, err := json.Marshal(factors)
	if err != nil {
		return "", fmt.Errorf("encoding factors: %w", err)
	}
	return string(data), nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// retryOnBusy retries fn a few times when SQLite reports the database
// locked by a concurrent writer. Non-busy errors return immediately.
func retryOnBusy(fn func() error) error {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(i+1) * 10 * time.Millisecond)
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
