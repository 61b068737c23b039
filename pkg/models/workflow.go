// Package models defines the core domain models for outreach workflow automation.
package models

import (
	"sort"
	"time"
)

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"     // Editable, not executable
	WorkflowStatusActive    WorkflowStatus = "active"    // Executable
	WorkflowStatusArchived  WorkflowStatus = "archived"  // Historical, not executable
)

// Workflow is a directed graph of typed steps executed for one lead at a time.
// Nodes and edges are immutable during a run; the engine only reads them.
type Workflow struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspace_id" validate:"required"`
	Name        string          `json:"name"         validate:"required,min=3"`
	Description string          `json:"description"`
	Status      WorkflowStatus  `json:"status"       validate:"required"`
	Nodes       []*WorkflowNode `json:"nodes"`
	Edges       []*WorkflowEdge `json:"edges"`
	// Config carries workflow-level defaults that node config can override,
	// e.g. "template_id", "followup_template_id", "delay_days".
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Executable reports whether executions may be triggered for this workflow.
func (w *Workflow) Executable() bool {
	return w.Status == WorkflowStatusActive
}

// NodeByGraphID returns the node with the given graph-local identifier.
func (w *Workflow) NodeByGraphID(graphID string) (*WorkflowNode, bool) {
	for _, node := range w.Nodes {
		if node.GraphID == graphID {
			return node, true
		}
	}

	return nil, false
}

// OrderedNodes returns the workflow's nodes sorted by execution order.
// The slice is a copy; the workflow itself is not mutated.
func (w *Workflow) OrderedNodes() []*WorkflowNode {
	nodes := make([]*WorkflowNode, len(w.Nodes))
	copy(nodes, w.Nodes)

	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Order < nodes[j].Order
	})

	return nodes
}

// NormalizeOrder rewrites node execution orders into a 1-based contiguous
// sequence. Resume jobs carry the delay node's order plus one as the index
// to resume from, which assumes contiguous orders, so this runs on every save.
func (w *Workflow) NormalizeOrder() {
	for i, node := range w.OrderedNodes() {
		node.Order = i + 1
	}
}

// ConfigString reads a string value from the workflow-level config.
func (w *Workflow) ConfigString(key string) (string, bool) {
	value, ok := w.Config[key].(string)
	if !ok || value == "" {
		return "", false
	}

	return value, true
}

// ConfigInt reads an integer value from the workflow-level config. JSON
// decoding produces float64, so both representations are accepted.
func (w *Workflow) ConfigInt(key string) (int, bool) {
	return intFromAny(w.Config[key])
}

func intFromAny(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
