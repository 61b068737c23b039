package file

import (
	"context"
	"time"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
)

const executionsDir = "executions"

type ExecutionRepository struct {
	persistence *Persistence
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	now := time.Now().UTC()
	execution.CreatedAt = now
	execution.UpdatedAt = now

	err := r.persistence.write(executionsDir, execution.ID, execution)
	if err != nil {
		return persistence.NewStoreError("Create", "execution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	found, err := r.persistence.read(executionsDir, id, &execution)
	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "execution", id, err)
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", "execution", id, persistence.ErrExecutionNotFound)
	}

	return &execution, nil
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.WorkflowExecution) error {
	execution.UpdatedAt = time.Now().UTC()

	err := r.persistence.write(executionsDir, execution.ID, execution)
	if err != nil {
		return persistence.NewStoreError("Update", "execution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) ListStuck(ctx context.Context, olderThan time.Time) ([]*models.WorkflowExecution, error) {
	ids, err := r.persistence.list(executionsDir)
	if err != nil {
		return nil, persistence.NewStoreError("ListStuck", "execution", "", err)
	}

	var stuck []*models.WorkflowExecution

	for _, id := range ids {
		execution, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if execution.Status == models.ExecutionStatusRunning && execution.UpdatedAt.Before(olderThan) {
			stuck = append(stuck, execution)
		}
	}

	return stuck, nil
}
