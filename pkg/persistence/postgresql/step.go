package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
)

// StepRepository handles step ledger database operations.
type StepRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// CreateStep appends a pending step with the next contiguous step number.
// The execution row is locked for the count-then-insert pair so concurrent
// workers cannot mint the same number; the unique index on
// (execution_id, step_number) backs this up.
func (r *StepRepository) CreateStep(ctx context.Context, executionID, nodeID string) (*models.ExecutionStep, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence.NewStoreError("CreateStep", "step", nodeID, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lockedID string

	err = tx.QueryRowContext(ctx, "SELECT id FROM executions WHERE id = $1 FOR UPDATE", executionID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("CreateStep", "step", nodeID, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewStoreError("CreateStep", "step", nodeID, err)
	}

	var count int

	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM execution_steps WHERE execution_id = $1", executionID).Scan(&count)
	if err != nil {
		return nil, persistence.NewStoreError("CreateStep", "step", nodeID, err)
	}

	step := &models.ExecutionStep{
		ID:          uuid.New().String(),
		ExecutionID: executionID,
		NodeID:      nodeID,
		StepNumber:  count + 1,
		Status:      models.StepStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO execution_steps (id, execution_id, node_id, step_number, status,
			error_message, output, started_at, completed_at, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		step.ID, step.ExecutionID, step.NodeID, step.StepNumber, step.Status,
		step.Error, []byte("{}"), step.StartedAt, step.CompletedAt, step.DurationMs, step.CreatedAt)
	if err != nil {
		return nil, persistence.NewStoreError("CreateStep", "step", step.ID, err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, persistence.NewStoreError("CreateStep", "step", step.ID, err)
	}

	return step, nil
}

func (r *StepRepository) Update(ctx context.Context, step *models.ExecutionStep) error {
	outputJSON, err := json.Marshal(step.Output)
	if err != nil {
		return persistence.NewStoreError("Update", "step", step.ID,
			fmt.Errorf("failed to marshal output: %w", err))
	}

	query := `
		UPDATE execution_steps SET
			status = $2,
			error_message = $3,
			output = $4,
			started_at = $5,
			completed_at = $6,
			duration_ms = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		step.ID, step.Status, step.Error, outputJSON,
		step.StartedAt, step.CompletedAt, step.DurationMs)
	if err != nil {
		return persistence.NewStoreError("Update", "step", step.ID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStoreError("Update", "step", step.ID, persistence.ErrStepNotFound)
	}

	return nil
}

func (r *StepRepository) RecordBranchDecision(ctx context.Context, stepID, handle, targetNodeID string) error {
	query := `
		UPDATE execution_steps SET
			output = COALESCE(output, '{}'::jsonb) || jsonb_build_object($2::text, $3::text, $4::text, $5::text)
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, stepID,
		models.StepOutputBranchTaken, handle,
		models.StepOutputTargetNodeID, targetNodeID)
	if err != nil {
		return persistence.NewStoreError("RecordBranchDecision", "step", stepID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStoreError("RecordBranchDecision", "step", stepID, persistence.ErrStepNotFound)
	}

	return nil
}

func (r *StepRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.ExecutionStep, error) {
	query := `
		SELECT
			id
		  , execution_id
		  , node_id
		  , step_number
		  , status
		  , error_message
		  , output
		  , started_at
		  , completed_at
		  , duration_ms
		  , created_at
		FROM execution_steps
		WHERE execution_id = $1
		ORDER BY step_number
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, persistence.NewStoreError("ListByExecution", "step", executionID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	steps := make([]*models.ExecutionStep, 0)

	for rows.Next() {
		var (
			step       models.ExecutionStep
			outputJSON []byte
		)

		err = rows.Scan(
			&step.ID,
			&step.ExecutionID,
			&step.NodeID,
			&step.StepNumber,
			&step.Status,
			&step.Error,
			&outputJSON,
			&step.StartedAt,
			&step.CompletedAt,
			&step.DurationMs,
			&step.CreatedAt,
		)
		if err != nil {
			return nil, persistence.NewStoreError("ListByExecution", "step", executionID, err)
		}

		if len(outputJSON) > 0 {
			err = json.Unmarshal(outputJSON, &step.Output)
			if err != nil {
				return nil, persistence.NewStoreError("ListByExecution", "step", executionID,
					fmt.Errorf("failed to unmarshal output: %w", err))
			}
		}

		steps = append(steps, &step)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStoreError("ListByExecution", "step", executionID, err)
	}

	return steps, nil
}

func (r *StepRepository) HasCompletedForNode(ctx context.Context, executionID, nodeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM execution_steps
			WHERE execution_id = $1 AND node_id = $2 AND status = $3
		)
	`

	var exists bool

	err := r.db.QueryRowContext(ctx, query, executionID, nodeID, models.StepStatusCompleted).Scan(&exists)
	if err != nil {
		return false, persistence.NewStoreError("HasCompletedForNode", "step", nodeID, err)
	}

	return exists, nil
}
