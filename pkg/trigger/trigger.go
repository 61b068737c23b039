// Package trigger starts workflow executions for leads.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
	"github.com/driplinehq/dripline/pkg/queue"
	"github.com/driplinehq/dripline/pkg/registry"
)

// ErrWorkflowNotExecutable marks trigger attempts against workflows that are
// not in the active status.
var ErrWorkflowNotExecutable = errors.New("workflow is not executable")

// ErrInvalidWorkflow marks trigger attempts against workflows whose node
// configuration fails schema validation.
var ErrInvalidWorkflow = errors.New("workflow definition is invalid")

// Service validates trigger requests and enqueues the initial run job. The
// orchestrator never sees a trigger; it only consumes the jobs created here.
type Service struct {
	persistence persistence.Persistence
	queue       queue.Queue
	registry    *registry.Registry
	logger      *slog.Logger
}

func NewService(persistence persistence.Persistence, q queue.Queue, reg *registry.Registry, logger *slog.Logger) *Service {
	return &Service{
		persistence: persistence,
		queue:       q,
		registry:    reg,
		logger:      logger.With("module", "trigger"),
	}
}

// TriggerWorkflow creates a queued execution of the workflow for the lead and
// schedules its first run. The execution record is created before the job so
// a delivered job always finds its execution.
func (s *Service) TriggerWorkflow(ctx context.Context, workflowID, leadID string) (*models.WorkflowExecution, error) {
	workflow, err := s.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !workflow.Executable() {
		return nil, fmt.Errorf("%w: workflow %s has status %s", ErrWorkflowNotExecutable, workflow.ID, workflow.Status)
	}

	err = s.registry.ValidateWorkflow(workflow)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	lead, err := s.persistence.Leads().GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	execution := &models.WorkflowExecution{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		LeadID:     lead.ID,
		Status:     models.ExecutionStatusQueued,
	}

	err = s.persistence.Executions().Create(ctx, execution)
	if err != nil {
		return nil, err
	}

	err = s.queue.EnqueueExecution(ctx, execution.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue execution %s: %w", execution.ID, err)
	}

	s.logger.InfoContext(ctx, "Triggered workflow execution",
		"workflow_id", workflow.ID,
		"lead_id", lead.ID,
		"execution_id", execution.ID)

	return execution, nil
}
