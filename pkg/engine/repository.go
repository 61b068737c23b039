package engine

import (
	"context"
	"fmt"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
)

// ExecutionContext is everything one Execute invocation operates on: the run,
// its workflow with the full ordered node list, and the lead.
type ExecutionContext struct {
	Execution *models.WorkflowExecution
	Workflow  *models.Workflow
	Nodes     []*models.WorkflowNode
	Lead      *models.Lead
}

// Repository composes the persistence repositories into the loading
// operations the orchestrator needs.
type Repository struct {
	persistence persistence.Persistence
}

func NewRepository(p persistence.Persistence) *Repository {
	return &Repository{persistence: p}
}

// LoadExecutionContext loads the execution, its workflow (with nodes sorted
// by execution order) and its lead. A missing execution surfaces the
// persistence not-found sentinel; a missing lead is an invariant violation,
// since executions are only ever created for existing leads.
func (r *Repository) LoadExecutionContext(ctx context.Context, executionID string) (*ExecutionContext, error) {
	execution, err := r.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	workflow, err := r.persistence.Workflows().GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", execution.WorkflowID, err)
	}

	lead, err := r.persistence.Leads().GetByID(ctx, execution.LeadID)
	if err != nil {
		if persistence.IsLeadNotFound(err) {
			return nil, fmt.Errorf("%w: execution %s references missing lead %s", ErrInvariantViolation, executionID, execution.LeadID)
		}

		return nil, fmt.Errorf("failed to load lead %s: %w", execution.LeadID, err)
	}

	return &ExecutionContext{
		Execution: execution,
		Workflow:  workflow,
		Nodes:     workflow.OrderedNodes(),
		Lead:      lead,
	}, nil
}

// ListEnabledEdges returns the enabled edge set of the workflow.
func (r *Repository) ListEnabledEdges(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	return r.persistence.Workflows().ListEnabledEdges(ctx, workflowID)
}
