// Package conditions resolves branch predicates for condition nodes.
package conditions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/driplinehq/dripline/pkg/engine"
	"github.com/driplinehq/dripline/pkg/models"
)

// Kind identifies one predicate from the closed set of condition kinds.
type Kind string

const (
	KindBudgetQualifies  Kind = "budget_qualifies"
	KindReplyReceived    Kind = "reply_received"
	KindBookingCompleted Kind = "booking_completed"
)

// ConfigKeyCondition names the node config entry carrying the condition kind.
const ConfigKeyCondition = "condition"

// ConfigKeyMinBudget names the node config entry for the budget threshold.
const ConfigKeyMinBudget = "min_budget"

// DefaultMinBudget applies when a budget_qualifies node has no threshold.
const DefaultMinBudget = 2000

// Evaluator resolves condition nodes to booleans. It reads only the fields it
// needs from the lead and has no side effects.
type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{
		logger: logger.With("module", "condition_evaluator"),
	}
}

// Evaluate resolves the node's condition kind against the lead. An unknown
// kind fails with ErrUnsupportedCondition rather than defaulting silently,
// since a silent default could route the lead down the wrong branch.
func (e *Evaluator) Evaluate(ctx context.Context, node *models.WorkflowNode, lead *models.Lead) (bool, error) {
	kind, ok := node.ConfigString(ConfigKeyCondition)
	if !ok {
		return false, fmt.Errorf("%w: condition node %s has no %q config", engine.ErrUnsupportedCondition, node.GraphID, ConfigKeyCondition)
	}

	switch Kind(kind) {
	case KindBudgetQualifies:
		minBudget, ok := node.ConfigInt(ConfigKeyMinBudget)
		if !ok {
			minBudget = DefaultMinBudget
		}

		result := lead.Budget >= int64(minBudget)
		e.logger.DebugContext(ctx, "Evaluated budget condition",
			"node_id", node.GraphID, "budget", lead.Budget, "min_budget", minBudget, "result", result)

		return result, nil
	case KindReplyReceived:
		return lead.RepliedAt != nil, nil
	case KindBookingCompleted:
		return lead.BookingConfirmedAt != nil, nil
	default:
		return false, fmt.Errorf("%w: %q on node %s", engine.ErrUnsupportedCondition, kind, node.GraphID)
	}
}
