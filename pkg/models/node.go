// Package models defines node and edge models for workflow graph execution.
package models

// NodeType identifies the behavior of a workflow node. The set is closed:
// the engine dispatches over these variants exhaustively and unknown values
// are treated as a logged no-op rather than an error.
type NodeType string

const (
	NodeTypeTrigger      NodeType = "trigger"
	NodeTypeSendEmail    NodeType = "send_email"
	NodeTypeSendFollowup NodeType = "send_followup"
	NodeTypeDelay        NodeType = "delay"
	NodeTypeCondition    NodeType = "condition"
	NodeTypeMarkFailed   NodeType = "mark_failed"
)

// Known reports whether the node type is one the engine understands.
func (t NodeType) Known() bool {
	switch t {
	case NodeTypeTrigger, NodeTypeSendEmail, NodeTypeSendFollowup,
		NodeTypeDelay, NodeTypeCondition, NodeTypeMarkFailed:
		return true
	default:
		return false
	}
}

// WorkflowNode is one step in a workflow graph. GraphID is the graph-local
// identifier referenced by edges; ID is the stable storage identifier.
type WorkflowNode struct {
	ID         string         `json:"id"       validate:"required"`
	WorkflowID string         `json:"workflow_id"`
	GraphID    string         `json:"graph_id" validate:"required"`
	Type       NodeType       `json:"type"     validate:"required"`
	Name       string         `json:"name"`
	// Order is a monotonic hint for default sequencing; normalized to a
	// 1-based contiguous sequence on save.
	Order  int            `json:"order"`
	Config map[string]any `json:"config,omitempty"`
}

// ConfigString reads a string value from the node config.
func (n *WorkflowNode) ConfigString(key string) (string, bool) {
	value, ok := n.Config[key].(string)
	if !ok || value == "" {
		return "", false
	}

	return value, true
}

// ConfigInt reads an integer value from the node config.
func (n *WorkflowNode) ConfigInt(key string) (int, bool) {
	return intFromAny(n.Config[key])
}

// Edge source handles used by condition nodes.
const (
	EdgeHandleTrue  = "true"
	EdgeHandleFalse = "false"
)

// WorkflowEdge is a directed connection between two nodes by graph-local
// identifier. SourceHandle disambiguates multiple outgoing edges from a
// branch node ("true"/"false" for condition nodes).
type WorkflowEdge struct {
	ID           string `json:"id"        validate:"required"`
	WorkflowID   string `json:"workflow_id"`
	SourceID     string `json:"source_id" validate:"required"`
	TargetID     string `json:"target_id" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
	Enabled      bool   `json:"enabled"`
}
