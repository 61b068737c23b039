package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/driplinehq/dripline/pkg/dispatch"
	"github.com/driplinehq/dripline/pkg/events"
	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/template"
)

// handleSendEmail sends the node's templated email to the lead and stamps
// the lead with the given status marker. The queue delivers at-least-once,
// so a completed step for the same node short-circuits without re-sending.
func (o *Orchestrator) handleSendEmail(
	ctx context.Context,
	logger *slog.Logger,
	ec *ExecutionContext,
	node *models.WorkflowNode,
	step *models.ExecutionStep,
	marker models.LeadStatus,
) error {
	alreadySent, err := o.persistence.Steps().HasCompletedForNode(ctx, ec.Execution.ID, node.ID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate dispatch: %w", err)
	}

	if alreadySent {
		logger.WarnContext(ctx, "Email already dispatched for this node, skipping duplicate")
		step.Output = map[string]any{"skipped": true, "reason": "duplicate delivery"}

		return nil
	}

	templateRef, err := o.resolveTemplate(ec.Workflow, node)
	if err != nil {
		return err
	}

	variables := map[string]string{
		"firstName":   ec.Lead.FirstName(),
		"companyName": ec.Lead.CompanyName,
		"email":       ec.Lead.Email,
	}

	subjectTemplate, ok := node.ConfigString(ConfigKeySubject)
	if !ok {
		subjectTemplate, ok = ec.Workflow.ConfigString(ConfigKeySubject)
		if !ok {
			subjectTemplate = defaultSubject
		}
	}

	subject, err := template.Render(subjectTemplate, variables)
	if err != nil {
		return fmt.Errorf("%w: invalid subject template on node %s: %w", ErrConfiguration, node.GraphID, err)
	}

	body, err := o.dispatcher.BuildFromTemplate(ctx, ec.Workflow.WorkspaceID, ec.Workflow.ID, ec.Lead.ID, templateRef, variables)
	if err != nil {
		return err
	}

	err = o.dispatcher.Send(ctx, ec.Workflow.WorkspaceID, dispatch.Message{
		To:       ec.Lead.Email,
		Subject:  subject,
		HTMLBody: body,
	})
	if err != nil {
		return err
	}

	sentAt := time.Now().UTC()

	err = o.persistence.Leads().TouchLastEmailSent(ctx, ec.Lead.ID, sentAt)
	if err != nil {
		return fmt.Errorf("failed to record last email sent: %w", err)
	}

	err = o.persistence.Leads().UpdateStatus(ctx, ec.Lead.ID, marker)
	if err != nil {
		return fmt.Errorf("failed to update lead status: %w", err)
	}

	ec.Lead.LastEmailSentAt = &sentAt
	ec.Lead.Status = marker

	step.Output = map[string]any{"templateRef": templateRef, "to": ec.Lead.Email}

	event := events.EmailDispatched{
		BaseEvent:   events.NewBaseEvent(events.EmailDispatchedEvent, ec.Workflow.ID),
		ExecutionID: ec.Execution.ID,
		LeadID:      ec.Lead.ID,
		NodeID:      node.GraphID,
		TemplateRef: templateRef,
		To:          ec.Lead.Email,
	}
	event.WorkerID = o.workerID
	o.publish(ctx, logger, ec.Workflow.ID, event)

	return nil
}

// resolveTemplate resolves the email template reference: node config wins,
// then the workflow-level config. Follow-up nodes may fall back to a
// dedicated workflow-level follow-up template before the primary one.
func (o *Orchestrator) resolveTemplate(workflow *models.Workflow, node *models.WorkflowNode) (string, error) {
	if ref, ok := node.ConfigString(ConfigKeyTemplate); ok {
		return ref, nil
	}

	if node.Type == models.NodeTypeSendFollowup {
		if ref, ok := workflow.ConfigString(ConfigKeyFollowupTemplate); ok {
			return ref, nil
		}
	}

	if ref, ok := workflow.ConfigString(ConfigKeyTemplate); ok {
		return ref, nil
	}

	return "", fmt.Errorf("%w: no email template resolvable for node %s", ErrConfiguration, node.GraphID)
}

// handleDelay pauses the execution and schedules a resume job. The delay
// length comes from node config, then workflow config, then the default.
// The caller stops iterating: no further nodes run in this invocation.
// The resume index derives from the node's execution order, not the step
// number: pruned nodes leave no step record, so step numbers can trail node
// orders and a step-based index would re-run the delay node itself.
func (o *Orchestrator) handleDelay(
	ctx context.Context,
	logger *slog.Logger,
	ec *ExecutionContext,
	node *models.WorkflowNode,
	step *models.ExecutionStep,
) error {
	days, ok := node.ConfigInt(ConfigKeyDelayDays)
	if !ok {
		days, ok = ec.Workflow.ConfigInt(ConfigKeyDelayDays)
		if !ok {
			days = DefaultDelayDays
		}
	}

	delay := time.Duration(days) * 24 * time.Hour
	resumeStep := node.Order + 1

	ec.Execution.Status = models.ExecutionStatusPaused

	err := o.persistence.Executions().Update(ctx, ec.Execution)
	if err != nil {
		return fmt.Errorf("failed to pause execution: %w", err)
	}

	err = o.scheduler.EnqueueDelayedExecution(ctx, ec.Execution.ID, resumeStep, delay)
	if err != nil {
		return fmt.Errorf("failed to schedule resume job: %w", err)
	}

	logger.InfoContext(ctx, "Execution paused for delay",
		"delay_days", days, "resume_step", resumeStep)

	step.Output = map[string]any{"delayDays": days, "resumeStep": resumeStep}

	event := events.ExecutionPaused{
		BaseEvent:   events.NewBaseEvent(events.ExecutionPausedEvent, ec.Workflow.ID),
		ExecutionID: ec.Execution.ID,
		NodeID:      node.GraphID,
		ResumeStep:  resumeStep,
		DelayMs:     delay.Milliseconds(),
	}
	event.WorkerID = o.workerID
	o.publish(ctx, logger, ec.Workflow.ID, event)

	return nil
}

// handleCondition evaluates the branch predicate, records the decision on the
// step, and unions everything reachable from the taken edge's target into the
// invocation's reachable set. A missing matching edge is non-fatal: the run
// proceeds without pruning.
func (o *Orchestrator) handleCondition(
	ctx context.Context,
	logger *slog.Logger,
	ec *ExecutionContext,
	node *models.WorkflowNode,
	step *models.ExecutionStep,
	reach *reachableSet,
) error {
	result, err := o.evaluator.Evaluate(ctx, node, ec.Lead)
	if err != nil {
		return err
	}

	handle := models.EdgeHandleFalse
	if result {
		handle = models.EdgeHandleTrue
	}

	edges, err := o.repository.ListEnabledEdges(ctx, ec.Workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to list edges: %w", err)
	}

	var taken *models.WorkflowEdge

	for _, edge := range edges {
		if edge.SourceID == node.GraphID && edge.SourceHandle == handle {
			taken = edge

			break
		}
	}

	if taken == nil {
		logger.WarnContext(ctx, "No enabled edge matches branch decision, proceeding without pruning",
			"handle", handle)

		return nil
	}

	step.Output = map[string]any{
		models.StepOutputBranchTaken:  handle,
		models.StepOutputTargetNodeID: taken.TargetID,
	}

	err = o.persistence.Steps().RecordBranchDecision(ctx, step.ID, handle, taken.TargetID)
	if err != nil {
		return fmt.Errorf("failed to record branch decision: %w", err)
	}

	reach.Union(reachableFrom(taken.TargetID, edges))

	logger.InfoContext(ctx, "Branch decision taken",
		"handle", handle, "target_node_id", taken.TargetID)

	return nil
}

// handleMarkFailed sets the lead's terminal lost marker. It does not stop
// the run; downstream nodes still execute if any remain reachable.
func (o *Orchestrator) handleMarkFailed(ctx context.Context, ec *ExecutionContext) error {
	err := o.persistence.Leads().UpdateStatus(ctx, ec.Lead.ID, models.LeadStatusLost)
	if err != nil {
		return fmt.Errorf("failed to mark lead lost: %w", err)
	}

	ec.Lead.Status = models.LeadStatusLost

	return nil
}
