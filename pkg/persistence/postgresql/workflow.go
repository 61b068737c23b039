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

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT
			id
		  , workspace_id
		  , name
		  , description
		  , status
		  , config
		  , created_at
		  , updated_at
		FROM workflows
		WHERE id = $1
	`

	var (
		workflow   models.Workflow
		configJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&workflow.ID,
		&workflow.WorkspaceID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&configJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewStoreError("GetByID", "workflow", id, err)
	}

	if len(configJSON) > 0 {
		err = json.Unmarshal(configJSON, &workflow.Config)
		if err != nil {
			return nil, persistence.NewStoreError("GetByID", "workflow", id,
				fmt.Errorf("failed to unmarshal config: %w", err))
		}
	}

	err = r.loadNodesAndEdges(ctx, &workflow)
	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, err)
	}

	return &workflow, nil
}

// Save upserts the workflow and replaces its nodes and edges in one
// transaction. Node orders are normalized before writing.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	workflow.NormalizeOrder()

	for _, node := range workflow.Nodes {
		node.WorkflowID = workflow.ID
	}

	for _, edge := range workflow.Edges {
		edge.WorkflowID = workflow.ID
	}

	configJSON, err := json.Marshal(workflow.Config)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID,
			fmt.Errorf("failed to marshal config: %w", err))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	workflowQuery := `
		INSERT INTO workflows (id, workspace_id, name, description, status, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = EXCLUDED.workspace_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`

	_, err = tx.ExecContext(ctx, workflowQuery,
		workflow.ID,
		workflow.WorkspaceID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		configJSON,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID,
			fmt.Errorf("failed to save workflow base: %w", err))
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_edges WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID,
			fmt.Errorf("failed to delete existing edges: %w", err))
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_nodes WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID,
			fmt.Errorf("failed to delete existing nodes: %w", err))
	}

	err = r.saveNodes(ctx, tx, workflow)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	err = r.saveEdges(ctx, tx, workflow)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	err = tx.Commit()
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) ListEnabledEdges(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , source_id
		  , target_id
		  , source_handle
		  , enabled
		FROM workflow_edges
		WHERE workflow_id = $1 AND enabled = true
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, persistence.NewStoreError("ListEnabledEdges", "workflow", workflowID, err)
	}

	defer closeRows(ctx, r.logger, rows)

	edges := make([]*models.WorkflowEdge, 0)

	for rows.Next() {
		var edge models.WorkflowEdge

		err = rows.Scan(&edge.ID, &edge.WorkflowID, &edge.SourceID, &edge.TargetID, &edge.SourceHandle, &edge.Enabled)
		if err != nil {
			return nil, persistence.NewStoreError("ListEnabledEdges", "workflow", workflowID, err)
		}

		edges = append(edges, &edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStoreError("ListEnabledEdges", "workflow", workflowID, err)
	}

	return edges, nil
}

func (r *WorkflowRepository) saveNodes(ctx context.Context, tx *sql.Tx, workflow *models.Workflow) error {
	nodeQuery := `
		INSERT INTO workflow_nodes (workflow_id, id, graph_id, node_type, name, execution_order, config)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, node := range workflow.Nodes {
		if node.ID == "" {
			node.ID = uuid.New().String()
		}

		configJSON, err := json.Marshal(node.Config)
		if err != nil {
			return fmt.Errorf("failed to marshal node config: %w", err)
		}

		_, err = tx.ExecContext(ctx, nodeQuery,
			workflow.ID, node.ID, node.GraphID, node.Type, node.Name, node.Order, configJSON)
		if err != nil {
			return fmt.Errorf("failed to save node %s: %w", node.GraphID, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) saveEdges(ctx context.Context, tx *sql.Tx, workflow *models.Workflow) error {
	edgeQuery := `
		INSERT INTO workflow_edges (workflow_id, id, source_id, target_id, source_handle, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, edge := range workflow.Edges {
		if edge.ID == "" {
			edge.ID = uuid.New().String()
		}

		_, err := tx.ExecContext(ctx, edgeQuery,
			workflow.ID, edge.ID, edge.SourceID, edge.TargetID, edge.SourceHandle, edge.Enabled)
		if err != nil {
			return fmt.Errorf("failed to save edge %s: %w", edge.ID, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) loadNodesAndEdges(ctx context.Context, workflow *models.Workflow) error {
	nodeQuery := `
		SELECT
			id
		  , workflow_id
		  , graph_id
		  , node_type
		  , name
		  , execution_order
		  , config
		FROM workflow_nodes
		WHERE workflow_id = $1
		ORDER BY execution_order
	`

	rows, err := r.db.QueryContext(ctx, nodeQuery, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to query nodes: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflow.Nodes = make([]*models.WorkflowNode, 0)

	for rows.Next() {
		var (
			node       models.WorkflowNode
			configJSON []byte
		)

		err = rows.Scan(&node.ID, &node.WorkflowID, &node.GraphID, &node.Type, &node.Name, &node.Order, &configJSON)
		if err != nil {
			return fmt.Errorf("failed to scan node: %w", err)
		}

		if len(configJSON) > 0 {
			err = json.Unmarshal(configJSON, &node.Config)
			if err != nil {
				return fmt.Errorf("failed to unmarshal node config: %w", err)
			}
		}

		workflow.Nodes = append(workflow.Nodes, &node)
	}

	err = rows.Err()
	if err != nil {
		return fmt.Errorf("error iterating nodes: %w", err)
	}

	edgeQuery := `
		SELECT
			id
		  , workflow_id
		  , source_id
		  , target_id
		  , source_handle
		  , enabled
		FROM workflow_edges
		WHERE workflow_id = $1
	`

	edgeRows, err := r.db.QueryContext(ctx, edgeQuery, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to query edges: %w", err)
	}

	defer closeRows(ctx, r.logger, edgeRows)

	workflow.Edges = make([]*models.WorkflowEdge, 0)

	for edgeRows.Next() {
		var edge models.WorkflowEdge

		err = edgeRows.Scan(&edge.ID, &edge.WorkflowID, &edge.SourceID, &edge.TargetID, &edge.SourceHandle, &edge.Enabled)
		if err != nil {
			return fmt.Errorf("failed to scan edge: %w", err)
		}

		workflow.Edges = append(workflow.Edges, &edge)
	}

	err = edgeRows.Err()
	if err != nil {
		return fmt.Errorf("error iterating edges: %w", err)
	}

	return nil
}
