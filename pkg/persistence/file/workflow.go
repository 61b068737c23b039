package file

import (
	"context"
	"time"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
)

const workflowsDir = "workflows"

type WorkflowRepository struct {
	persistence *Persistence
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := r.persistence.read(workflowsDir, id, &workflow)
	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, err)
	}

	if !found {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now
	workflow.NormalizeOrder()

	for _, node := range workflow.Nodes {
		node.WorkflowID = workflow.ID
	}

	for _, edge := range workflow.Edges {
		edge.WorkflowID = workflow.ID
	}

	err := r.persistence.write(workflowsDir, workflow.ID, workflow)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) ListEnabledEdges(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	workflow, err := r.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	edges := make([]*models.WorkflowEdge, 0, len(workflow.Edges))

	for _, edge := range workflow.Edges {
		if edge.Enabled {
			edges = append(edges, edge)
		}
	}

	return edges, nil
}
