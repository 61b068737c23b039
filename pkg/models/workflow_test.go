package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflow_Executable(t *testing.T) {
	assert.True(t, (&Workflow{Status: WorkflowStatusActive}).Executable())
	assert.False(t, (&Workflow{Status: WorkflowStatusDraft}).Executable())
	assert.False(t, (&Workflow{Status: WorkflowStatusArchived}).Executable())
}

func TestWorkflow_OrderedNodes(t *testing.T) {
	workflow := &Workflow{
		Nodes: []*WorkflowNode{
			{GraphID: "c", Order: 30},
			{GraphID: "a", Order: 10},
			{GraphID: "b", Order: 20},
		},
	}

	ordered := workflow.OrderedNodes()

	assert.Equal(t, "a", ordered[0].GraphID)
	assert.Equal(t, "b", ordered[1].GraphID)
	assert.Equal(t, "c", ordered[2].GraphID)

	// The workflow's own slice is untouched.
	assert.Equal(t, "c", workflow.Nodes[0].GraphID)
}

func TestWorkflow_NormalizeOrder(t *testing.T) {
	workflow := &Workflow{
		Nodes: []*WorkflowNode{
			{GraphID: "c", Order: 300},
			{GraphID: "a", Order: 5},
			{GraphID: "b", Order: 42},
		},
	}

	workflow.NormalizeOrder()

	byID := map[string]int{}
	for _, node := range workflow.Nodes {
		byID[node.GraphID] = node.Order
	}

	assert.Equal(t, 1, byID["a"])
	assert.Equal(t, 2, byID["b"])
	assert.Equal(t, 3, byID["c"])
}

func TestWorkflow_NodeByGraphID(t *testing.T) {
	workflow := &Workflow{Nodes: []*WorkflowNode{{GraphID: "a"}, {GraphID: "b"}}}

	node, ok := workflow.NodeByGraphID("b")
	assert.True(t, ok)
	assert.Equal(t, "b", node.GraphID)

	_, ok = workflow.NodeByGraphID("missing")
	assert.False(t, ok)
}

func TestWorkflow_ConfigInt(t *testing.T) {
	workflow := &Workflow{Config: map[string]any{
		"as_int":   3,
		"as_float": float64(4), // JSON decoding produces float64
		"as_text":  "5",
	}}

	got, ok := workflow.ConfigInt("as_int")
	assert.True(t, ok)
	assert.Equal(t, 3, got)

	got, ok = workflow.ConfigInt("as_float")
	assert.True(t, ok)
	assert.Equal(t, 4, got)

	_, ok = workflow.ConfigInt("as_text")
	assert.False(t, ok)

	_, ok = workflow.ConfigInt("missing")
	assert.False(t, ok)
}

func TestNodeType_Known(t *testing.T) {
	for _, nodeType := range []NodeType{
		NodeTypeTrigger, NodeTypeSendEmail, NodeTypeSendFollowup,
		NodeTypeDelay, NodeTypeCondition, NodeTypeMarkFailed,
	} {
		assert.True(t, nodeType.Known(), string(nodeType))
	}

	assert.False(t, NodeType("webhook").Known())
}
