package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
)

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	now := time.Now().UTC()
	execution.CreatedAt = now
	execution.UpdatedAt = now

	query := `
		INSERT INTO executions (id, workflow_id, lead_id, status, error_message,
			started_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.LeadID,
		execution.Status,
		execution.Error,
		execution.StartedAt,
		execution.CompletedAt,
		execution.CreatedAt,
		execution.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("Create", "execution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , lead_id
		  , status
		  , error_message
		  , started_at
		  , completed_at
		  , created_at
		  , updated_at
		FROM executions
		WHERE id = $1
	`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "execution", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.WorkflowExecution) error {
	execution.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE executions SET
			status = $2,
			error_message = $3,
			started_at = $4,
			completed_at = $5,
			updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		execution.Error,
		execution.StartedAt,
		execution.CompletedAt,
		execution.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("Update", "execution", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStoreError("Update", "execution", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

func (r *ExecutionRepository) ListStuck(ctx context.Context, olderThan time.Time) ([]*models.WorkflowExecution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , lead_id
		  , status
		  , error_message
		  , started_at
		  , completed_at
		  , created_at
		  , updated_at
		FROM executions
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at
	`

	rows, err := r.db.QueryContext(ctx, query, models.ExecutionStatusRunning, olderThan)
	if err != nil {
		return nil, persistence.NewStoreError("ListStuck", "execution", "", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewStoreError("ListStuck", "execution", "", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStoreError("ListStuck", "execution", "", err)
	}

	return executions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.LeadID,
		&execution.Status,
		&execution.Error,
		&execution.StartedAt,
		&execution.CompletedAt,
		&execution.CreatedAt,
		&execution.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &execution, nil
}
