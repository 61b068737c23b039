package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
	"github.com/driplinehq/dripline/pkg/persistence/postgresql"
	"github.com/driplinehq/dripline/pkg/testutil"
)

var postgresContainer *postgres.PostgresContainer

func dropDB(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"execution_steps", "executions", "workflow_edges", "workflow_nodes", "leads", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("dripline_test"),
			postgres.WithUsername("dripline"),
			postgres.WithPassword("dripline"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDB(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDB(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx
}

func TestPostgres_WorkflowRoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)

	workflow := testutil.CreateOutreachWorkflow()
	require.NoError(t, p.Workflows().Save(ctx, workflow))

	got, err := p.Workflows().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, got.Name)
	assert.Equal(t, models.WorkflowStatusActive, got.Status)
	require.Len(t, got.Nodes, 4)
	require.Len(t, got.Edges, 3)

	// Orders were normalized on save.
	ordered := got.OrderedNodes()
	for i, node := range ordered {
		assert.Equal(t, i+1, node.Order)
	}

	templateID, ok := got.ConfigString("template_id")
	assert.True(t, ok)
	assert.Equal(t, "tpl-intro", templateID)

	// Saving again replaces nodes and edges instead of duplicating them.
	workflow.Nodes = workflow.Nodes[:2]
	require.NoError(t, p.Workflows().Save(ctx, workflow))

	got, err = p.Workflows().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 2)

	_, err = p.Workflows().GetByID(ctx, "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestPostgres_ListEnabledEdges(t *testing.T) {
	p, ctx := setupTestDB(t)

	workflow := testutil.CreateOutreachWorkflow()
	workflow.Edges[2].Enabled = false
	require.NoError(t, p.Workflows().Save(ctx, workflow))

	edges, err := p.Workflows().ListEnabledEdges(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestPostgres_ExecutionLifecycle(t *testing.T) {
	p, ctx := setupTestDB(t)

	workflow := testutil.CreateOutreachWorkflow()
	lead := testutil.CreateTestLead()
	require.NoError(t, p.Workflows().Save(ctx, workflow))
	require.NoError(t, p.Leads().Save(ctx, lead))

	execution := &models.WorkflowExecution{
		ID:         "exec-1",
		WorkflowID: workflow.ID,
		LeadID:     lead.ID,
		Status:     models.ExecutionStatusQueued,
	}
	require.NoError(t, p.Executions().Create(ctx, execution))

	startedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &startedAt
	require.NoError(t, p.Executions().Update(ctx, execution))

	got, err := p.Executions().GetByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)

	stuck, err := p.Executions().ListStuck(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "exec-1", stuck[0].ID)

	_, err = p.Executions().GetByID(ctx, "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestPostgres_StepLedger(t *testing.T) {
	p, ctx := setupTestDB(t)

	workflow := testutil.CreateOutreachWorkflow()
	lead := testutil.CreateTestLead()
	require.NoError(t, p.Workflows().Save(ctx, workflow))
	require.NoError(t, p.Leads().Save(ctx, lead))

	execution := &models.WorkflowExecution{
		ID:         "exec-1",
		WorkflowID: workflow.ID,
		LeadID:     lead.ID,
		Status:     models.ExecutionStatusRunning,
	}
	require.NoError(t, p.Executions().Create(ctx, execution))

	first, err := p.Steps().CreateStep(ctx, "exec-1", "n-1")
	require.NoError(t, err)
	second, err := p.Steps().CreateStep(ctx, "exec-1", "n-2")
	require.NoError(t, err)

	assert.Equal(t, 1, first.StepNumber)
	assert.Equal(t, 2, second.StepNumber)

	first.Status = models.StepStatusCompleted
	first.Output = map[string]any{"templateRef": "tpl-intro"}
	require.NoError(t, p.Steps().Update(ctx, first))

	require.NoError(t, p.Steps().RecordBranchDecision(ctx, second.ID, "false", "lost-1"))

	steps, err := p.Steps().ListByExecution(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "tpl-intro", steps[0].Output["templateRef"])
	assert.Equal(t, "false", steps[1].Output[models.StepOutputBranchTaken])
	assert.Equal(t, "lost-1", steps[1].Output[models.StepOutputTargetNodeID])

	sent, err := p.Steps().HasCompletedForNode(ctx, "exec-1", "n-1")
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = p.Steps().HasCompletedForNode(ctx, "exec-1", "n-2")
	require.NoError(t, err)
	assert.False(t, sent)

	// Creating a step for an unknown execution fails the FK lock.
	_, err = p.Steps().CreateStep(ctx, "exec-missing", "n-1")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestPostgres_LeadLifecycle(t *testing.T) {
	p, ctx := setupTestDB(t)

	lead := testutil.CreateTestLead()
	require.NoError(t, p.Leads().Save(ctx, lead))

	require.NoError(t, p.Leads().UpdateStatus(ctx, lead.ID, models.LeadStatusReplied))

	sentAt := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, p.Leads().TouchLastEmailSent(ctx, lead.ID, sentAt))

	got, err := p.Leads().GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusReplied, got.Status)
	require.NotNil(t, got.LastEmailSentAt)
	assert.WithinDuration(t, sentAt, *got.LastEmailSentAt, time.Second)

	_, err = p.Leads().GetByID(ctx, "missing")
	assert.True(t, persistence.IsLeadNotFound(err))
}
