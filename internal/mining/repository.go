package mining

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run is the persisted record of one mining job.
type Run struct {
	RunID        string        `json:"run_id"`
	Algorithm    Algorithm     `json:"algorithm"`
	Status       RunStatus     `json:"status"`
	Config       Config        `json:"config"`
	RequestedBy  string        `json:"requested_by,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Result       *MiningResult `json:"result,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// Repository persists mining runs and their result payloads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repo over the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertRun stores a new pending run with its normalized configuration.
func (r *Repository) InsertRun(ctx context.Context, runID string, cfg Config, requestedBy string) (Run, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return Run{}, err
	}
	var run Run
	err = r.pool.QueryRow(ctx,
		`INSERT INTO mining_runs (run_id, algorithm, status, config, requested_by) VALUES ($1, $2, $3, $4, $5) RETURNING run_id, algorithm, status, requested_by, created_at`,
		runID, string(cfg.Algorithm), string(RunPending), cfgJSON, requestedBy,
	).Scan(&run.RunID, &run.Algorithm, &run.Status, &run.RequestedBy, &run.CreatedAt)
	if err != nil {
		return Run{}, err
	}
	run.Config = cfg
	return run, nil
}

// UpdateStatus moves a run through its lifecycle.
func (r *Repository) UpdateStatus(ctx context.Context, runID string, status RunStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE mining_runs SET status = $2, updated_at = NOW() WHERE run_id = $1`, runID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// SaveResult stores the terminal result payload alongside its status.
func (r *Repository) SaveResult(ctx context.Context, result *MiningResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE mining_runs SET status = $2, error_message = $3, result = $4, completed_at = $5, updated_at = NOW() WHERE run_id = $1`,
		result.JobID, string(result.Status), result.ErrorMessage, payload, result.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun loads one run with its configuration and result payload.
func (r *Repository) GetRun(ctx context.Context, runID string) (Run, error) {
	var run Run
	var cfgJSON, payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT run_id, algorithm, status, config, COALESCE(requested_by, ''), COALESCE(error_message, ''), result, created_at, completed_at FROM mining_runs WHERE run_id = $1`,
		runID,
	).Scan(&run.RunID, &run.Algorithm, &run.Status, &cfgJSON, &run.RequestedBy, &run.ErrorMessage, &payload, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, err
	}
	if len(cfgJSON) > 0 {
		if err := json.Unmarshal(cfgJSON, &run.Config); err != nil {
			return Run{}, err
		}
	}
	if len(payload) > 0 {
		var result MiningResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return Run{}, err
		}
		run.Result = &result
	}
	return run, nil
}

// ListRuns returns recent runs without their result payloads, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT run_id, algorithm, status, COALESCE(requested_by, ''), COALESCE(error_message, ''), created_at, completed_at FROM mining_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.RunID, &run.Algorithm, &run.Status, &run.RequestedBy, &run.ErrorMessage, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
