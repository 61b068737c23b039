// Package events defines event types for execution lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topic for execution lifecycle events.
const Topic = "dripline.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionPausedEvent    EventType = "execution.paused"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	EmailDispatchedEvent    EventType = "email.dispatched"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	LeadID      string `json:"lead_id"`
	FromStep    int    `json:"from_step"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionPaused struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	ResumeStep  int    `json:"resume_step"`
	DelayMs     int64  `json:"delay_ms"`
}

func (e ExecutionPaused) GetType() EventType {
	return ExecutionPausedEvent
}

type ExecutionResumed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	FromStep    int    `json:"from_step"`
}

func (e ExecutionResumed) GetType() EventType {
	return ExecutionResumedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	DurationMs    int64  `json:"duration_ms"`
	StepsExecuted int    `json:"steps_executed"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

// ExecutionFailed doubles as the audit log entry for failed runs: it carries
// the failing node and the error detail operators need for inspection.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id,omitempty"`
	Error       string `json:"error"`
	DurationMs  int64  `json:"duration_ms"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type EmailDispatched struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	LeadID      string `json:"lead_id"`
	NodeID      string `json:"node_id"`
	TemplateRef string `json:"template_ref"`
	To          string `json:"to"`
}

func (e EmailDispatched) GetType() EventType {
	return EmailDispatchedEvent
}
