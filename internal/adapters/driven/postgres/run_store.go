package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

var _ driven.RunStore = (*RunStore)(nil)

// RunStore implements driven.RunStore using PostgreSQL, persisting
// PipelineRun audit records for ingestion, retrieval, and SSOT sync.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new RunStore
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Create inserts a new run
func (s *RunStore) Create(ctx context.Context, run *domain.PipelineRun) error {
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return err
	}
	config := run.Config
	if config == nil {
		config = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO pipeline_runs (id, tenant_id, kb_id, type, config, status, result_summary, error, metrics, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.TenantID, run.KBID, run.Type, config, run.Status, run.ResultSummary, run.Error,
		metricsJSON, run.StartedAt, NullTime(run.CompletedAt),
	)
	return err
}

// Finalize updates a run's terminal status, result, error, and metrics.
// Rejects (no-op, returns an error) attempts to finalize a run that isn't
// currently in a non-terminal status, per invariant I6.
func (s *RunStore) Finalize(ctx context.Context, run *domain.PipelineRun) error {
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return err
	}

	query := `
		UPDATE pipeline_runs
		SET status = $2, result_summary = $3, error = $4, metrics = $5, completed_at = $6
		WHERE id = $1 AND status IN ('pending', 'running')
	`

	result, err := s.db.ExecContext(ctx, query,
		run.ID, run.Status, run.ResultSummary, run.Error, metricsJSON, NullTime(run.CompletedAt),
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.NewError(domain.KindInternal, "run_already_finalized", "run is already in a terminal status", nil)
	}

	return nil
}

// Get retrieves a run by ID
func (s *RunStore) Get(ctx context.Context, id string) (*domain.PipelineRun, error) {
	query := `
		SELECT id, tenant_id, kb_id, type, config, status, result_summary, error, metrics, started_at, completed_at
		FROM pipeline_runs WHERE id = $1
	`
	return s.scan(s.db.QueryRowContext(ctx, query, id))
}

func (s *RunStore) scan(row *sql.Row) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	var metricsJSON []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.TenantID, &run.KBID, &run.Type, &run.Config, &run.Status,
		&run.ResultSummary, &run.Error, &metricsJSON, &run.StartedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	run.CompletedAt = TimePtr(completedAt)
	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &run.Metrics); err != nil {
			return nil, err
		}
	}

	return &run, nil
}

// GetByKB retrieves runs for a KB with pagination, most recent first
func (s *RunStore) GetByKB(ctx context.Context, kbID string, limit, offset int) ([]*domain.PipelineRun, error) {
	query := `
		SELECT id, tenant_id, kb_id, type, config, status, result_summary, error, metrics, started_at, completed_at
		FROM pipeline_runs
		WHERE kb_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, kbID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.PipelineRun
	for rows.Next() {
		var run domain.PipelineRun
		var metricsJSON []byte
		var completedAt sql.NullTime

		err := rows.Scan(
			&run.ID, &run.TenantID, &run.KBID, &run.Type, &run.Config, &run.Status,
			&run.ResultSummary, &run.Error, &metricsJSON, &run.StartedAt, &completedAt,
		)
		if err != nil {
			return nil, err
		}

		run.CompletedAt = TimePtr(completedAt)
		if len(metricsJSON) > 0 {
			if err := json.Unmarshal(metricsJSON, &run.Metrics); err != nil {
				return nil, err
			}
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}
