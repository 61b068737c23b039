package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/driplinehq/dripline/pkg/mocks"
	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence/file"
	"github.com/driplinehq/dripline/pkg/registry"
	"github.com/driplinehq/dripline/pkg/testutil"
	"github.com/driplinehq/dripline/pkg/trigger"
	"github.com/driplinehq/dripline/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence, *mocks.MockQueue) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	persistence := file.NewPersistence(t.TempDir())
	queue := &mocks.MockQueue{}
	registryInstance := registry.NewRegistry(logger)
	triggerService := trigger.NewService(persistence, queue, registryInstance, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := web.NewAPIHandlers(persistence, triggerService, validate, registryInstance)

	app := fiber.New()

	v1 := app.Group("/v1")

	w := v1.Group("/workflows")
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/trigger", handlers.TriggerWorkflow)

	l := v1.Group("/leads")
	l.Post("/", handlers.CreateLead)
	l.Get("/:id", handlers.GetLead)

	v1.Get("/executions/:id", handlers.GetExecution)

	return app, persistence, queue
}

func postJSON(t *testing.T, app *fiber.App, url string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, target))
}

func TestCreateWorkflow(t *testing.T) {
	app, _, _ := setupTestApp(t)

	outreach := testutil.CreateOutreachWorkflow()
	resp := postJSON(t, app, "/v1/workflows/", web.CreateWorkflowRequest{
		WorkspaceID: "ws-test",
		Name:        "Cold Outreach",
		Status:      models.WorkflowStatusActive,
		Nodes:       outreach.Nodes,
		Edges:       outreach.Edges,
		Config:      map[string]any{"template_id": "tpl-intro"},
	})

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var workflow models.Workflow

	decodeBody(t, resp, &workflow)
	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, "Cold Outreach", workflow.Name)
	assert.Len(t, workflow.Nodes, 4)
}

func TestCreateWorkflow_ValidationFailures(t *testing.T) {
	app, _, _ := setupTestApp(t)

	// Name too short.
	resp := postJSON(t, app, "/v1/workflows/", web.CreateWorkflowRequest{
		WorkspaceID: "ws-test",
		Name:        "ab",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Condition node without a condition kind.
	resp = postJSON(t, app, "/v1/workflows/", web.CreateWorkflowRequest{
		WorkspaceID: "ws-test",
		Name:        "Broken Sequence",
		Nodes: []*models.WorkflowNode{
			testutil.CreateTestNode("cond-1", models.NodeTypeCondition, 1),
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflow_NotFound(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/workflows/missing", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerWorkflow(t *testing.T) {
	ctx := context.Background()
	app, persistence, queue := setupTestApp(t)

	workflow := testutil.CreateOutreachWorkflow()
	lead := testutil.CreateTestLead()
	require.NoError(t, persistence.Workflows().Save(ctx, workflow))
	require.NoError(t, persistence.Leads().Save(ctx, lead))

	queue.On("EnqueueExecution", mock.Anything, mock.Anything).Return(nil)

	resp := postJSON(t, app, "/v1/workflows/"+workflow.ID+"/trigger", web.TriggerWorkflowRequest{
		LeadID: lead.ID,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var ack map[string]string

	decodeBody(t, resp, &ack)
	assert.NotEmpty(t, ack["execution_id"])
	assert.Equal(t, string(models.ExecutionStatusQueued), ack["status"])
}

func TestTriggerWorkflow_InactiveWorkflowConflicts(t *testing.T) {
	ctx := context.Background()
	app, persistence, _ := setupTestApp(t)

	workflow := testutil.CreateOutreachWorkflow()
	workflow.Status = models.WorkflowStatusDraft
	lead := testutil.CreateTestLead()
	require.NoError(t, persistence.Workflows().Save(ctx, workflow))
	require.NoError(t, persistence.Leads().Save(ctx, lead))

	resp := postJSON(t, app, "/v1/workflows/"+workflow.ID+"/trigger", web.TriggerWorkflowRequest{
		LeadID: lead.ID,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTriggerWorkflow_MissingLead(t *testing.T) {
	ctx := context.Background()
	app, persistence, _ := setupTestApp(t)

	workflow := testutil.CreateOutreachWorkflow()
	require.NoError(t, persistence.Workflows().Save(ctx, workflow))

	resp := postJSON(t, app, "/v1/workflows/"+workflow.ID+"/trigger", web.TriggerWorkflowRequest{
		LeadID: "missing",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAndGetLead(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp := postJSON(t, app, "/v1/leads/", web.CreateLeadRequest{
		WorkspaceID: "ws-test",
		Email:       "ada@example.com",
		Name:        "Ada Lovelace",
		Budget:      3000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var lead models.Lead

	decodeBody(t, resp, &lead)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, models.LeadStatusNew, lead.Status)

	req := httptest.NewRequest(http.MethodGet, "/v1/leads/"+lead.ID, nil)
	getResp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestCreateLead_InvalidEmail(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp := postJSON(t, app, "/v1/leads/", web.CreateLeadRequest{
		WorkspaceID: "ws-test",
		Email:       "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetExecution_WithSteps(t *testing.T) {
	ctx := context.Background()
	app, persistence, _ := setupTestApp(t)

	execution := &models.WorkflowExecution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		LeadID:     "lead-1",
		Status:     models.ExecutionStatusRunning,
	}
	require.NoError(t, persistence.Executions().Create(ctx, execution))

	_, err := persistence.Steps().CreateStep(ctx, "exec-1", "n-1")
	require.NoError(t, err)
	_, err = persistence.Steps().CreateStep(ctx, "exec-1", "n-2")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/executions/exec-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Execution models.WorkflowExecution `json:"execution"`
		Steps     []models.ExecutionStep   `json:"steps"`
	}

	decodeBody(t, resp, &payload)
	assert.Equal(t, "exec-1", payload.Execution.ID)
	require.Len(t, payload.Steps, 2)
	assert.Equal(t, 1, payload.Steps[0].StepNumber)
	assert.Equal(t, 2, payload.Steps[1].StepNumber)
}

func TestGetExecution_NotFound(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/executions/missing", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
