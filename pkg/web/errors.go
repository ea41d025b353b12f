package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/hybriq/hybriq/pkg/workflow"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleWorkflowError maps orchestration failures onto problem responses.
// A completion backend outage is the caller-visible dependency failure;
// everything else stays a 500.
func handleWorkflowError(c fiber.Ctx, err error) error {
	var wfErr *workflow.Error

	switch {
	case errors.Is(err, workflow.ErrCompletionUnavailable):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("completion_unavailable").
			WithDetail("completion backend is unreachable")

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	case errors.As(err, &wfErr):
		problem := problems.NewStatusProblem(502).
			WithInstance(c.Path()).
			WithType("orchestration_error").
			WithDetail("step " + string(wfErr.Step) + " failed for question " + wfErr.QuestionID)

		return c.Status(fiber.StatusBadGateway).JSON(problem)

	default:
		return internalError(c, err)
	}
}
