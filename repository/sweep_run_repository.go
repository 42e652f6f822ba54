package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"fairway/database"
	"fairway/models"

	"github.com/jackc/pgx/v5"
)

// SweepRunRepository implements the service.SweepRunRepository interface
type SweepRunRepository struct {
	q queryable
}

// NewSweepRunRepository creates a new sweep run repository
func NewSweepRunRepository(db *database.DB) *SweepRunRepository {
	return &SweepRunRepository{q: db.Pool}
}

// newSweepRunRepositoryWithTx creates a repository bound to a transaction
func newSweepRunRepositoryWithTx(tx queryable) *SweepRunRepository {
	return &SweepRunRepository{q: tx}
}

// Create records the outcome of one sweep
func (r *SweepRunRepository) Create(ctx context.Context, run *models.SweepRun) error {
	summaryJSON, err := json.Marshal(run.ExecutionSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	query := `
		INSERT INTO sweep_runs
		(started_at, deleted_pending, cancelled_reg_close, refunded_reg_close,
		 cancelled_safety_net, refunded_safety_net, execution_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		run.StartedAt,
		run.DeletedPending,
		run.CancelledByRegClose,
		run.RefundedByRegClose,
		run.CancelledSafetyNet,
		run.RefundedSafetyNet,
		summaryJSON,
	).Scan(&run.ID, &run.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create sweep run: %w", err)
	}

	return nil
}

// GetLatest returns the most recent sweep run, or nil when none exist
func (r *SweepRunRepository) GetLatest(ctx context.Context) (*models.SweepRun, error) {
	query := `
		SELECT id, started_at, deleted_pending, cancelled_reg_close,
		       refunded_reg_close, cancelled_safety_net, refunded_safety_net,
		       execution_summary, created_at
		FROM sweep_runs
		ORDER BY started_at DESC
		LIMIT 1
	`

	var run models.SweepRun
	var summaryJSON []byte

	err := r.q.QueryRow(ctx, query).Scan(
		&run.ID,
		&run.StartedAt,
		&run.DeletedPending,
		&run.CancelledByRegClose,
		&run.RefundedByRegClose,
		&run.CancelledSafetyNet,
		&run.RefundedSafetyNet,
		&summaryJSON,
		&run.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sweep run: %w", err)
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.ExecutionSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution summary: %w", err)
		}
	}

	return &run, nil
}
