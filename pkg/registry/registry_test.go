package registry

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/testutil"
)

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestValidateNode_AcceptsKnownTypesWithEmptyConfig(t *testing.T) {
	registry := newTestRegistry()

	for _, nodeType := range []models.NodeType{
		models.NodeTypeTrigger,
		models.NodeTypeSendEmail,
		models.NodeTypeSendFollowup,
		models.NodeTypeDelay,
		models.NodeTypeMarkFailed,
	} {
		node := &models.WorkflowNode{GraphID: "n-1", Type: nodeType}
		assert.NoError(t, registry.ValidateNode(node), string(nodeType))
	}
}

func TestValidateNode_RejectsUnknownType(t *testing.T) {
	registry := newTestRegistry()

	err := registry.ValidateNode(&models.WorkflowNode{GraphID: "n-1", Type: "webhook"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestValidateNode_ConditionRequiresKind(t *testing.T) {
	registry := newTestRegistry()

	err := registry.ValidateNode(&models.WorkflowNode{GraphID: "cond-1", Type: models.NodeTypeCondition})
	require.Error(t, err)

	node := &models.WorkflowNode{
		GraphID: "cond-1",
		Type:    models.NodeTypeCondition,
		Config:  map[string]any{"condition": "budget_qualifies", "min_budget": 1000},
	}
	assert.NoError(t, registry.ValidateNode(node))
}

func TestValidateNode_ConditionRejectsUnknownKind(t *testing.T) {
	registry := newTestRegistry()

	node := &models.WorkflowNode{
		GraphID: "cond-1",
		Type:    models.NodeTypeCondition,
		Config:  map[string]any{"condition": "weather_is_nice"},
	}
	assert.Error(t, registry.ValidateNode(node))
}

func TestValidateNode_DelayRejectsNonPositiveDays(t *testing.T) {
	registry := newTestRegistry()

	node := &models.WorkflowNode{
		GraphID: "delay-1",
		Type:    models.NodeTypeDelay,
		Config:  map[string]any{"delay_days": 0},
	}
	assert.Error(t, registry.ValidateNode(node))

	node.Config["delay_days"] = 3
	assert.NoError(t, registry.ValidateNode(node))
}

func TestValidateWorkflow_ChecksEdgeEndpoints(t *testing.T) {
	registry := newTestRegistry()

	workflow := testutil.CreateOutreachWorkflow()
	require.NoError(t, registry.ValidateWorkflow(workflow))

	workflow.Edges = append(workflow.Edges, testutil.CreateTestEdge("email-1", "ghost", ""))
	err := registry.ValidateWorkflow(workflow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}
