// Package web provides the REST API for workflow, lead and execution
// management.
package web

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/driplinehq/dripline/pkg/models"
	"github.com/driplinehq/dripline/pkg/persistence"
	"github.com/driplinehq/dripline/pkg/registry"
	"github.com/driplinehq/dripline/pkg/trigger"
)

type APIHandlers struct {
	persistence    persistence.Persistence
	triggerService *trigger.Service
	validator      *validator.Validate
	registry       *registry.Registry
}

func NewAPIHandlers(
	p persistence.Persistence,
	triggerService *trigger.Service,
	validate *validator.Validate,
	reg *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		persistence:    p,
		triggerService: triggerService,
		validator:      validate,
		registry:       reg,
	}
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	status := req.Status
	if status == "" {
		status = models.WorkflowStatusDraft
	}

	workflow := &models.Workflow{
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Config:      req.Config,
	}

	if err := h.registry.ValidateWorkflow(workflow); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.Workflows().Save(c.Context(), workflow); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.persistence.Workflows().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateLead(c fiber.Ctx) error {
	var req CreateLeadRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	lead := &models.Lead{
		WorkspaceID: req.WorkspaceID,
		Email:       req.Email,
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Budget:      req.Budget,
		Status:      models.LeadStatusNew,
	}

	if err := h.persistence.Leads().Save(c.Context(), lead); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(lead)
}

func (h *APIHandlers) GetLead(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Lead ID is required")
	}

	lead, err := h.persistence.Leads().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(lead)
}

// TriggerWorkflow starts an execution of the workflow for a lead. The run
// itself happens on a worker; the response only acknowledges the enqueue.
func (h *APIHandlers) TriggerWorkflow(c fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req TriggerWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.triggerService.TriggerWorkflow(c.Context(), workflowID, req.LeadID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"execution_id": execution.ID,
		"status":       execution.Status,
	})
}

// GetExecution returns the execution together with its step ledger, ordered
// by step number.
func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.persistence.Executions().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	steps, err := h.persistence.Steps().ListByExecution(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"execution": execution,
		"steps":     steps,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := fiber.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = fiber.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
