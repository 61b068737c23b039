// Package persistence provides the data storage abstraction for workflows,
// executions, steps and leads.
package persistence

import (
	"context"
	"time"

	"github.com/driplinehq/dripline/pkg/models"
)

type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	Steps() StepRepository
	Leads() LeadRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository reads workflow definitions. Definitions are immutable
// per run; the engine only ever reads them.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	// ListEnabledEdges returns the enabled edges of a workflow, used by the
	// condition handler for branch selection and reachability traversal.
	ListEnabledEdges(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error)
}

type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	Update(ctx context.Context, execution *models.WorkflowExecution) error
	// ListStuck returns non-terminal running executions whose last update is
	// older than the threshold. Used by the sweeper to recover runs whose
	// worker died mid-invocation.
	ListStuck(ctx context.Context, olderThan time.Time) ([]*models.WorkflowExecution, error)
}

// StepRepository is the step ledger: an append-and-update record of every
// node execution attempt. Written by the orchestrator, read back only for
// numbering and the duplicate-dispatch guard.
type StepRepository interface {
	// CreateStep appends a pending step for the node, assigning the next
	// 1-based step number by counting existing steps for the execution.
	CreateStep(ctx context.Context, executionID, nodeID string) (*models.ExecutionStep, error)
	Update(ctx context.Context, step *models.ExecutionStep) error
	// RecordBranchDecision stores the taken handle and target node on the
	// step's output payload.
	RecordBranchDecision(ctx context.Context, stepID, handle, targetNodeID string) error
	ListByExecution(ctx context.Context, executionID string) ([]*models.ExecutionStep, error)
	// HasCompletedForNode reports whether a completed step already exists for
	// the node within the execution. The queue delivers at-least-once, so
	// side-effecting handlers check this before dispatching.
	HasCompletedForNode(ctx context.Context, executionID, nodeID string) (bool, error)
}

type LeadRepository interface {
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	Save(ctx context.Context, lead *models.Lead) error
	UpdateStatus(ctx context.Context, id string, status models.LeadStatus) error
	TouchLastEmailSent(ctx context.Context, id string, sentAt time.Time) error
}
