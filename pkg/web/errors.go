package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/driplinehq/dripline/pkg/persistence"
	"github.com/driplinehq/dripline/pkg/trigger"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service and persistence errors onto problem
// responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, trigger.ErrWorkflowNotExecutable):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("workflow_not_executable").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case errors.Is(err, trigger.ErrInvalidWorkflow):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("invalid_workflow").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "Workflow not found")

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "Execution not found")

	case persistence.IsLeadNotFound(err):
		return notFound(c, "Lead not found")

	default:
		return internalError(c, err)
	}
}
