package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/driplinehq/dripline/pkg/dispatch"
	"github.com/driplinehq/dripline/pkg/eventbus"
	"github.com/driplinehq/dripline/pkg/events"
	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/otelhelper"
	"github.com/driplinehq/dripline/pkg/persistence"
)

// DefaultDelayDays applies when neither node nor workflow config sets a
// delay length.
const DefaultDelayDays = 3

// Workflow/node config keys read by the node handlers.
const (
	ConfigKeyTemplate         = "template_id"
	ConfigKeyFollowupTemplate = "followup_template_id"
	ConfigKeySubject          = "subject"
	ConfigKeyDelayDays        = "delay_days"
)

const defaultSubject = "Hello {{.firstName}}"

// ConditionEvaluator resolves a condition node to a boolean against the
// current lead state. Implemented by pkg/conditions.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, node *models.WorkflowNode, lead *models.Lead) (bool, error)
}

// ResumeScheduler schedules the delayed resume job produced by delay nodes.
// Implemented by the queue backends.
type ResumeScheduler interface {
	EnqueueDelayedExecution(ctx context.Context, executionID string, fromStep int, delay time.Duration) error
}

// Orchestrator is the state machine that walks an execution's node graph:
// it iterates nodes in order, dispatches each to its type handler, applies
// branch pruning, and decides whether to continue, pause for a delay, or
// terminate.
type Orchestrator struct {
	repository  *Repository
	persistence persistence.Persistence
	dispatcher  dispatch.Dispatcher
	scheduler   ResumeScheduler
	evaluator   ConditionEvaluator
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	workerID    string
}

type Option func(*Orchestrator)

// WithTracer attaches an OpenTelemetry tracer to the orchestrator.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithWorkerID stamps published events with the processing worker's id.
func WithWorkerID(id string) Option {
	return func(o *Orchestrator) {
		o.workerID = id
	}
}

func NewOrchestrator(
	p persistence.Persistence,
	dispatcher dispatch.Dispatcher,
	scheduler ResumeScheduler,
	evaluator ConditionEvaluator,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	orchestrator := &Orchestrator{
		repository:  NewRepository(p),
		persistence: p,
		dispatcher:  dispatcher,
		scheduler:   scheduler,
		evaluator:   evaluator,
		publisher:   publisher,
		tracer:      noop.NewTracerProvider().Tracer("engine"),
		logger:      logger.With("module", "orchestrator"),
	}

	for _, opt := range opts {
		opt(orchestrator)
	}

	return orchestrator
}

// Execute runs the execution's nodes whose order is >= fromStep, one at a
// time, until a delay node pauses the run, a node fails, or the node list is
// exhausted. Delivery is at-least-once, so terminal executions are refused
// rather than re-run.
func (o *Orchestrator) Execute(ctx context.Context, executionID string, fromStep int) error {
	ctx, span := o.tracer.Start(ctx, "engine.Execute", trace.WithAttributes(
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.Int(otelhelper.FromStepKey, fromStep),
	))
	defer span.End()

	logger := o.logger.With("execution_id", executionID, "from_step", fromStep)

	ec, err := o.repository.LoadExecutionContext(ctx, executionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	logger = logger.With("workflow_id", ec.Workflow.ID, "lead_id", ec.Lead.ID)

	if !ec.Execution.Status.Runnable() {
		logger.WarnContext(ctx, "Refusing duplicate delivery for terminal execution",
			"status", ec.Execution.Status)

		return nil
	}

	resumed := ec.Execution.Status == models.ExecutionStatusPaused

	now := time.Now().UTC()
	if ec.Execution.StartedAt == nil {
		ec.Execution.StartedAt = &now
	}

	ec.Execution.Status = models.ExecutionStatusRunning

	err = o.persistence.Executions().Update(ctx, ec.Execution)
	if err != nil {
		return fmt.Errorf("failed to mark execution running: %w", err)
	}

	o.publishStarted(ctx, ec, fromStep, resumed)
	logger.InfoContext(ctx, "Executing workflow run", "nodes", len(ec.Nodes))

	// Pruning memory is local to this invocation: it starts unconstrained
	// and is rebuilt as condition nodes are encountered, never persisted.
	reach := newReachableSet()
	executed := 0

	for _, node := range ec.Nodes {
		if node.Order < fromStep {
			continue
		}

		if !reach.Allows(node.GraphID) {
			logger.DebugContext(ctx, "Skipping node pruned by branch decision",
				"node_id", node.GraphID, "node_type", node.Type)

			continue
		}

		shouldContinue, err := o.executeNode(ctx, logger, ec, node, reach)
		if err != nil {
			otelhelper.SetError(span, err)

			return o.fail(ctx, logger, ec, node, err)
		}

		executed++

		if !shouldContinue {
			// A delay node paused the run; no further nodes execute in
			// this invocation.
			return nil
		}
	}

	completedAt := time.Now().UTC()
	ec.Execution.Status = models.ExecutionStatusCompleted
	ec.Execution.CompletedAt = &completedAt

	err = o.persistence.Executions().Update(ctx, ec.Execution)
	if err != nil {
		return fmt.Errorf("failed to mark execution completed: %w", err)
	}

	logger.InfoContext(ctx, "Workflow run completed", "steps_executed", executed)
	o.publishCompleted(ctx, ec, executed)

	return nil
}

// executeNode records one step in the ledger around the type-specific
// handler. On handler failure the step is marked failed with the error
// captured, and the error propagates to Execute's failure path.
func (o *Orchestrator) executeNode(
	ctx context.Context,
	logger *slog.Logger,
	ec *ExecutionContext,
	node *models.WorkflowNode,
	reach *reachableSet,
) (bool, error) {
	step, err := o.persistence.Steps().CreateStep(ctx, ec.Execution.ID, node.ID)
	if err != nil {
		return false, fmt.Errorf("failed to create step for node %s: %w", node.GraphID, err)
	}

	startedAt := time.Now().UTC()
	step.Status = models.StepStatusRunning
	step.StartedAt = &startedAt

	err = o.persistence.Steps().Update(ctx, step)
	if err != nil {
		return false, fmt.Errorf("failed to mark step %d running: %w", step.StepNumber, err)
	}

	logger = logger.With("node_id", node.GraphID, "node_type", node.Type, "step_number", step.StepNumber)
	logger.InfoContext(ctx, "Executing node")

	shouldContinue, handlerErr := o.dispatchNode(ctx, logger, ec, node, step, reach)

	completedAt := time.Now().UTC()
	step.CompletedAt = &completedAt
	step.DurationMs = completedAt.Sub(startedAt).Milliseconds()

	if handlerErr != nil {
		step.Status = models.StepStatusFailed
		step.Error = handlerErr.Error()

		if updateErr := o.persistence.Steps().Update(ctx, step); updateErr != nil {
			logger.ErrorContext(ctx, "Failed to record step failure", "error", updateErr)
		}

		return false, &StepError{
			ExecutionID: ec.Execution.ID,
			NodeID:      node.GraphID,
			NodeType:    string(node.Type),
			Err:         handlerErr,
		}
	}

	step.Status = models.StepStatusCompleted

	err = o.persistence.Steps().Update(ctx, step)
	if err != nil {
		return false, fmt.Errorf("failed to mark step %d completed: %w", step.StepNumber, err)
	}

	return shouldContinue, nil
}

// dispatchNode routes a node to its handler by type. The NodeType set is
// closed; unknown values are logged and treated as a no-op so a malformed
// definition degrades instead of wedging the run.
func (o *Orchestrator) dispatchNode(
	ctx context.Context,
	logger *slog.Logger,
	ec *ExecutionContext,
	node *models.WorkflowNode,
	step *models.ExecutionStep,
	reach *reachableSet,
) (bool, error) {
	switch node.Type {
	case models.NodeTypeTrigger:
		// Already satisfied by the act of triggering.
		return true, nil
	case models.NodeTypeSendEmail:
		return true, o.handleSendEmail(ctx, logger, ec, node, step, models.LeadStatusEmailSent)
	case models.NodeTypeSendFollowup:
		return true, o.handleSendEmail(ctx, logger, ec, node, step, models.LeadStatusFollowUpSent)
	case models.NodeTypeDelay:
		return false, o.handleDelay(ctx, logger, ec, node, step)
	case models.NodeTypeCondition:
		return true, o.handleCondition(ctx, logger, ec, node, step, reach)
	case models.NodeTypeMarkFailed:
		return true, o.handleMarkFailed(ctx, ec)
	default:
		logger.WarnContext(ctx, "Unknown node type, treating as no-op")

		return true, nil
	}
}

// fail marks the execution failed with the error detail, writes the audit
// event, and re-raises so the queue's retry policy decides what happens next.
func (o *Orchestrator) fail(
	ctx context.Context,
	logger *slog.Logger,
	ec *ExecutionContext,
	node *models.WorkflowNode,
	cause error,
) error {
	completedAt := time.Now().UTC()
	ec.Execution.Status = models.ExecutionStatusFailed
	ec.Execution.Error = cause.Error()
	ec.Execution.CompletedAt = &completedAt

	err := o.persistence.Executions().Update(ctx, ec.Execution)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to record execution failure", "error", err)
	}

	logger.ErrorContext(ctx, "Workflow run failed",
		"node_id", node.GraphID, "node_type", node.Type, "error", cause)

	event := events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, ec.Workflow.ID),
		ExecutionID: ec.Execution.ID,
		NodeID:      node.GraphID,
		Error:       cause.Error(),
		DurationMs:  o.runDurationMs(ec, completedAt),
	}
	event.WorkerID = o.workerID
	o.publish(ctx, logger, ec.Workflow.ID, event)

	return cause
}

func (o *Orchestrator) publishStarted(ctx context.Context, ec *ExecutionContext, fromStep int, resumed bool) {
	logger := o.logger.With("execution_id", ec.Execution.ID)

	if resumed {
		event := events.ExecutionResumed{
			BaseEvent:   events.NewBaseEvent(events.ExecutionResumedEvent, ec.Workflow.ID),
			ExecutionID: ec.Execution.ID,
			FromStep:    fromStep,
		}
		event.WorkerID = o.workerID
		o.publish(ctx, logger, ec.Workflow.ID, event)

		return
	}

	event := events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, ec.Workflow.ID),
		ExecutionID: ec.Execution.ID,
		LeadID:      ec.Lead.ID,
		FromStep:    fromStep,
	}
	event.WorkerID = o.workerID
	o.publish(ctx, logger, ec.Workflow.ID, event)
}

func (o *Orchestrator) publishCompleted(ctx context.Context, ec *ExecutionContext, executed int) {
	event := events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, ec.Workflow.ID),
		ExecutionID:   ec.Execution.ID,
		DurationMs:    o.runDurationMs(ec, *ec.Execution.CompletedAt),
		StepsExecuted: executed,
	}
	event.WorkerID = o.workerID
	o.publish(ctx, o.logger.With("execution_id", ec.Execution.ID), ec.Workflow.ID, event)
}

// publish is best-effort: a lost lifecycle event must not fail the run.
func (o *Orchestrator) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	if o.publisher == nil {
		return
	}

	err := o.publisher.Publish(ctx, key, event)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(), "error", err)
	}
}

func (o *Orchestrator) runDurationMs(ec *ExecutionContext, until time.Time) int64 {
	if ec.Execution.StartedAt == nil {
		return 0
	}

	return until.Sub(*ec.Execution.StartedAt).Milliseconds()
}
