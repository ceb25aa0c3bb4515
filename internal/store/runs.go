// Package store persists pipeline runs in the registry database. The summary
// table stays lean for history listings; full diagnostics payloads live in a
// side table and are only read when a specific run is opened.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/akritis/vigil/internal/database"
	"github.com/akritis/vigil/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	pipeline TEXT NOT NULL,
	as_of TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	status TEXT NOT NULL,
	total_value REAL NOT NULL DEFAULT 0,
	concentration REAL NOT NULL DEFAULT 0,
	action_count INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_payloads (
	run_id TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
	payload BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_pipeline_created ON runs(pipeline, created_at);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Run statuses recorded in the registry.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is the summary row for one pipeline run.
type Run struct {
	ID            string    `json:"id"`
	Pipeline      string    `json:"pipeline"`
	AsOf          string    `json:"as_of"` // calendar date, YYYY-MM-DD
	CreatedAt     time.Time `json:"created_at"`
	Status        string    `json:"status"`
	TotalValue    float64   `json:"total_value"`
	Concentration float64   `json:"concentration"`
	ActionCount   int       `json:"action_count"`
	Error         string    `json:"error,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// RunRepository handles runs registry database operations.
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new runs repository.
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// Migrate creates the runs tables if they do not exist.
func (r *RunRepository) Migrate() error {
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply runs schema: %w", err)
	}
	return nil
}

// Record inserts a run and, when present, its serialized diagnostics payload.
// Summary row and payload are written in one transaction.
func (r *RunRepository) Record(run Run, result *domain.DiagnosticsResult) error {
	var payload []byte
	if result != nil {
		var err error
		payload, err = msgpack.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to serialize run payload: %w", err)
		}
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (id, pipeline, as_of, created_at, status, total_value, concentration, action_count, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.Pipeline, run.AsOf, run.CreatedAt.Unix(), run.Status,
			run.TotalValue, run.Concentration, run.ActionCount, run.Error)
		if err != nil {
			return err
		}

		if payload != nil {
			if _, err := tx.Exec(`INSERT INTO run_payloads (run_id, payload) VALUES (?, ?)`, run.ID, payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}

	r.log.Debug().
		Str("run_id", run.ID).
		Str("pipeline", run.Pipeline).
		Str("status", run.Status).
		Int("payload_bytes", len(payload)).
		Msg("Recorded run")

	return nil
}

// RecordCompleted records a successful run, deriving the summary columns from
// the result.
func (r *RunRepository) RecordCompleted(id, pipeline string, asOf time.Time, result *domain.DiagnosticsResult) error {
	run := Run{
		ID:        id,
		Pipeline:  pipeline,
		AsOf:      asOf.Format("2006-01-02"),
		CreatedAt: time.Now(),
		Status:    StatusCompleted,
	}
	if result != nil {
		if result.Allocation != nil {
			run.TotalValue = result.Allocation.TotalValue
		}
		run.Concentration = result.ConcentrationIndex
		run.ActionCount = len(result.Actions)
	}
	return r.Record(run, result)
}

// RecordFailed records a failed run with the error message; no payload.
func (r *RunRepository) RecordFailed(id, pipeline string, asOf time.Time, runErr error) error {
	return r.Record(Run{
		ID:        id,
		Pipeline:  pipeline,
		AsOf:      asOf.Format("2006-01-02"),
		CreatedAt: time.Now(),
		Status:    StatusFailed,
		Error:     runErr.Error(),
	}, nil)
}

// Get retrieves a run summary by id. Returns nil if not found (not an error).
func (r *RunRepository) Get(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`
		SELECT id, pipeline, as_of, created_at, status, total_value, concentration, action_count, error
		FROM runs WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// GetResult retrieves and deserializes a run's diagnostics payload. Returns
// nil if the run has no payload (failed runs) or does not exist.
func (r *RunRepository) GetResult(id string) (*domain.DiagnosticsResult, error) {
	var payload []byte
	err := r.db.QueryRow(`SELECT payload FROM run_payloads WHERE run_id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payload for run %s: %w", id, err)
	}

	var result domain.DiagnosticsResult
	if err := msgpack.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to deserialize payload for run %s: %w", id, err)
	}
	return &result, nil
}

// ListRecent returns the most recent runs, newest first.
func (r *RunRepository) ListRecent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, pipeline, as_of, created_at, status, total_value, concentration, action_count, error
		FROM runs ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan run row")
			continue
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// LatestForPipeline returns the newest completed run for a pipeline.
// Returns nil if the pipeline has never completed (not an error).
func (r *RunRepository) LatestForPipeline(pipeline string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`
		SELECT id, pipeline, as_of, created_at, status, total_value, concentration, action_count, error
		FROM runs WHERE pipeline = ? AND status = ?
		ORDER BY created_at DESC, id LIMIT 1
	`, pipeline, StatusCompleted))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run for %s: %w", pipeline, err)
	}
	return run, nil
}

// Latest returns the newest completed run across all pipelines.
func (r *RunRepository) Latest() (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`
		SELECT id, pipeline, as_of, created_at, status, total_value, concentration, action_count, error
		FROM runs WHERE status = ?
		ORDER BY created_at DESC, id LIMIT 1
	`, StatusCompleted))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// PruneOlderThan deletes runs created before the cutoff. Payloads cascade.
// Returns the number of runs deleted.
func (r *RunRepository) PruneOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM runs WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}

	if deleted > 0 {
		r.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Pruned old runs")
	}

	return deleted, nil
}

// Count returns the number of stored runs.
func (r *RunRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var createdAt int64
	err := s.Scan(&run.ID, &run.Pipeline, &run.AsOf, &createdAt, &run.Status,
		&run.TotalValue, &run.Concentration, &run.ActionCount, &run.Error)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &run, nil
}
