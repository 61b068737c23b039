package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
)

const stepsDir = "steps"

// StepRepository stores steps under steps/<executionID>/<stepID>.json.
type StepRepository struct {
	persistence *Persistence
}

func (r *StepRepository) CreateStep(ctx context.Context, executionID, nodeID string) (*models.ExecutionStep, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	existing, err := r.listLocked(executionID)
	if err != nil {
		return nil, persistence.NewStoreError("CreateStep", "step", nodeID, err)
	}

	step := &models.ExecutionStep{
		ID:          uuid.New().String(),
		ExecutionID: executionID,
		NodeID:      nodeID,
		StepNumber:  len(existing) + 1,
		Status:      models.StepStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	err = r.persistence.write(filepath.Join(stepsDir, executionID), step.ID, step)
	if err != nil {
		return nil, persistence.NewStoreError("CreateStep", "step", step.ID, err)
	}

	return step, nil
}

func (r *StepRepository) Update(ctx context.Context, step *models.ExecutionStep) error {
	err := r.persistence.write(filepath.Join(stepsDir, step.ExecutionID), step.ID, step)
	if err != nil {
		return persistence.NewStoreError("Update", "step", step.ID, err)
	}

	return nil
}

func (r *StepRepository) RecordBranchDecision(ctx context.Context, stepID, handle, targetNodeID string) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	step, err := r.findLocked(stepID)
	if err != nil {
		return err
	}

	if step.Output == nil {
		step.Output = make(map[string]any)
	}

	step.Output[models.StepOutputBranchTaken] = handle
	step.Output[models.StepOutputTargetNodeID] = targetNodeID

	err = r.persistence.write(filepath.Join(stepsDir, step.ExecutionID), step.ID, step)
	if err != nil {
		return persistence.NewStoreError("RecordBranchDecision", "step", stepID, err)
	}

	return nil
}

func (r *StepRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.ExecutionStep, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	steps, err := r.listLocked(executionID)
	if err != nil {
		return nil, persistence.NewStoreError("ListByExecution", "step", executionID, err)
	}

	return steps, nil
}

func (r *StepRepository) HasCompletedForNode(ctx context.Context, executionID, nodeID string) (bool, error) {
	steps, err := r.ListByExecution(ctx, executionID)
	if err != nil {
		return false, err
	}

	for _, step := range steps {
		if step.NodeID == nodeID && step.Status == models.StepStatusCompleted {
			return true, nil
		}
	}

	return false, nil
}

// listLocked returns the execution's steps sorted by step number. Caller
// holds the persistence mutex.
func (r *StepRepository) listLocked(executionID string) ([]*models.ExecutionStep, error) {
	dir := filepath.Join(stepsDir, executionID)

	ids, err := r.persistence.list(dir)
	if err != nil {
		return nil, err
	}

	steps := make([]*models.ExecutionStep, 0, len(ids))

	for _, id := range ids {
		var step models.ExecutionStep

		found, err := r.persistence.read(dir, id, &step)
		if err != nil {
			return nil, err
		}

		if found {
			steps = append(steps, &step)
		}
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StepNumber < steps[j].StepNumber
	})

	return steps, nil
}

func (r *StepRepository) findLocked(stepID string) (*models.ExecutionStep, error) {
	executionDirs, err := r.persistence.listDirs(stepsDir)
	if err != nil {
		return nil, persistence.NewStoreError("Find", "step", stepID, err)
	}

	for _, executionID := range executionDirs {
		var step models.ExecutionStep

		found, err := r.persistence.read(filepath.Join(stepsDir, executionID), stepID, &step)
		if err != nil {
			return nil, persistence.NewStoreError("Find", "step", stepID, err)
		}

		if found {
			return &step, nil
		}
	}

	return nil, persistence.NewStoreError("Find", "step", stepID,
		fmt.Errorf("%w: %s", persistence.ErrStepNotFound, stepID))
}
