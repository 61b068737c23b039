package conditions

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driplinehq/dripline/pkg/engine"
	"github.com/driplinehq/dripline/pkg/models"
)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func conditionNode(config map[string]any) *models.WorkflowNode {
	return &models.WorkflowNode{
		GraphID: "cond-1",
		Type:    models.NodeTypeCondition,
		Config:  config,
	}
}

func TestEvaluate_BudgetQualifies(t *testing.T) {
	evaluator := newTestEvaluator()
	ctx := context.Background()

	tests := []struct {
		name   string
		config map[string]any
		budget int64
		want   bool
	}{
		{"above explicit threshold", map[string]any{"condition": "budget_qualifies", "min_budget": 1000}, 1500, true},
		{"exactly at threshold", map[string]any{"condition": "budget_qualifies", "min_budget": 1000}, 1000, true},
		{"below explicit threshold", map[string]any{"condition": "budget_qualifies", "min_budget": 1000}, 999, false},
		{"default threshold passes", map[string]any{"condition": "budget_qualifies"}, 2000, true},
		{"default threshold fails", map[string]any{"condition": "budget_qualifies"}, 500, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := &models.Lead{Budget: tt.budget}

			got, err := evaluator.Evaluate(ctx, conditionNode(tt.config), lead)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_ReplyReceived(t *testing.T) {
	evaluator := newTestEvaluator()
	ctx := context.Background()
	node := conditionNode(map[string]any{"condition": "reply_received"})

	got, err := evaluator.Evaluate(ctx, node, &models.Lead{})
	require.NoError(t, err)
	assert.False(t, got)

	repliedAt := time.Now().UTC()

	got, err = evaluator.Evaluate(ctx, node, &models.Lead{RepliedAt: &repliedAt})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluate_BookingCompleted(t *testing.T) {
	evaluator := newTestEvaluator()
	ctx := context.Background()
	node := conditionNode(map[string]any{"condition": "booking_completed"})

	got, err := evaluator.Evaluate(ctx, node, &models.Lead{})
	require.NoError(t, err)
	assert.False(t, got)

	bookedAt := time.Now().UTC()

	got, err = evaluator.Evaluate(ctx, node, &models.Lead{BookingConfirmedAt: &bookedAt})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluate_UnknownKindFails(t *testing.T) {
	evaluator := newTestEvaluator()

	_, err := evaluator.Evaluate(context.Background(), conditionNode(map[string]any{"condition": "weather_is_nice"}), &models.Lead{})
	require.Error(t, err)
	assert.True(t, engine.IsUnsupportedCondition(err))
}

func TestEvaluate_MissingKindFails(t *testing.T) {
	evaluator := newTestEvaluator()

	_, err := evaluator.Evaluate(context.Background(), conditionNode(nil), &models.Lead{})
	require.Error(t, err)
	assert.True(t, engine.IsUnsupportedCondition(err))
}
