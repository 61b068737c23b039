package models

import "time"

// ExecutionStatus is the state machine of one workflow run:
// queued -> running -> {paused, completed, failed}; paused -> running via a
// resume job. Terminal states are completed and failed; paused is not terminal.
type ExecutionStatus string

const (
	ExecutionStatusQueued    ExecutionStatus = "queued"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusPaused    ExecutionStatus = "paused"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// Runnable reports whether an Execute invocation may proceed. The queue
// delivers at-least-once, so duplicate jobs for terminal executions are
// expected and must be refused here rather than re-running side effects.
func (s ExecutionStatus) Runnable() bool {
	switch s {
	case ExecutionStatusQueued, ExecutionStatusRunning, ExecutionStatusPaused:
		return true
	default:
		return false
	}
}

// WorkflowExecution is one run of a workflow for one lead. Mutated only by
// the orchestrator; never deleted by the engine.
//
// The reachable-node set computed during branch pruning is deliberately NOT a
// field here: it is transient pruning memory local to a single Execute
// invocation and is threaded through the orchestrator as a value instead, so
// it can never go stale across process boundaries.
type WorkflowExecution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id" validate:"required"`
	LeadID      string          `json:"lead_id"     validate:"required"`
	Status      ExecutionStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// StepStatus is the state machine of one node execution attempt:
// pending -> running -> {completed, failed}.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// Step output keys recorded by the condition handler.
const (
	StepOutputBranchTaken  = "branchTaken"
	StepOutputTargetNodeID = "targetNodeId"
)

// ExecutionStep is one attempt to run one node within one execution.
// StepNumber is 1-based and assigned by counting existing steps for the
// execution, so numbering stays contiguous across resumptions.
type ExecutionStep struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	StepNumber  int            `json:"step_number"`
	Status      StepStatus     `json:"status"`
	Error       string         `json:"error,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DurationMs  int64          `json:"duration_ms"`
	CreatedAt   time.Time      `json:"created_at"`
}
