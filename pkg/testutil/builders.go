// Package testutil provides test data builders for workflows, nodes and leads.
package testutil

import (
	"github.com/google/uuid"

	"github.com/driplinehq/dripline/pkg/models"
)

// CreateTestLead creates a lead with default values that can be overridden.
func CreateTestLead(overrides ...func(*models.Lead)) *models.Lead {
	lead := &models.Lead{
		ID:          uuid.New().String(),
		WorkspaceID: "ws-test",
		Email:       "ada@example.com",
		Name:        "Ada Lovelace",
		CompanyName: "Analytical Engines",
		Budget:      5000,
		Status:      models.LeadStatusNew,
	}

	for _, override := range overrides {
		override(lead)
	}

	return lead
}

// WithBudget sets the lead's budget.
func WithBudget(budget int64) func(*models.Lead) {
	return func(l *models.Lead) {
		l.Budget = budget
	}
}

// CreateTestNode creates a workflow node with default values that can be
// overridden.
func CreateTestNode(graphID string, nodeType models.NodeType, order int, overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:      uuid.New().String(),
		GraphID: graphID,
		Type:    nodeType,
		Name:    graphID,
		Order:   order,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithNodeConfig sets the node configuration.
func WithNodeConfig(config map[string]any) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Config = config
	}
}

// CreateTestEdge creates an enabled edge between two graph node ids.
func CreateTestEdge(sourceID, targetID, sourceHandle string) *models.WorkflowEdge {
	return &models.WorkflowEdge{
		ID:           uuid.New().String(),
		SourceID:     sourceID,
		TargetID:     targetID,
		SourceHandle: sourceHandle,
		Enabled:      true,
	}
}

// CreateTestWorkflow creates an active workflow with the given nodes and
// edges.
func CreateTestWorkflow(nodes []*models.WorkflowNode, edges []*models.WorkflowEdge, overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		WorkspaceID: "ws-test",
		Name:        "Test Outreach Sequence",
		Status:      models.WorkflowStatusActive,
		Nodes:       nodes,
		Edges:       edges,
		Config: map[string]any{
			"template_id": "tpl-intro",
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// CreateOutreachWorkflow builds the canonical four node sequence used across
// engine tests: trigger, send_email, delay, send_followup.
func CreateOutreachWorkflow() *models.Workflow {
	nodes := []*models.WorkflowNode{
		CreateTestNode("trigger-1", models.NodeTypeTrigger, 1),
		CreateTestNode("email-1", models.NodeTypeSendEmail, 2),
		CreateTestNode("delay-1", models.NodeTypeDelay, 3, WithNodeConfig(map[string]any{
			"delay_days": 3,
		})),
		CreateTestNode("followup-1", models.NodeTypeSendFollowup, 4, WithNodeConfig(map[string]any{
			"template_id": "tpl-followup",
		})),
	}

	edges := []*models.WorkflowEdge{
		CreateTestEdge("trigger-1", "email-1", ""),
		CreateTestEdge("email-1", "delay-1", ""),
		CreateTestEdge("delay-1", "followup-1", ""),
	}

	return CreateTestWorkflow(nodes, edges)
}
