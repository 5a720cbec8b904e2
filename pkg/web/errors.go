package web

import (
	"errors"

	"github.com/dukex/docflow/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError maps engine and definition errors onto problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return problem(c, fiber.StatusBadRequest, errorCode(err, "validation_error"), err.Error())

	case errors.Is(err, services.ErrWorkflowNotFound):
		return problem(c, fiber.StatusNotFound, "workflow_not_found", "workflow not found")

	case errors.Is(err, services.ErrDocumentNotFound):
		return problem(c, fiber.StatusNotFound, "document_not_found", "document not found")

	case errors.Is(err, services.ErrApprovalNotFound):
		return problem(c, fiber.StatusNotFound, "approval_not_found", "approval not found")

	case errors.Is(err, services.ErrNoPendingApprovalForUser):
		return problem(c, fiber.StatusNotFound, "no_pending_approval", "no pending approval for user")

	case errors.Is(err, services.ErrStepAlreadyResolved):
		return problem(c, fiber.StatusConflict, "step_already_resolved", "approval step already resolved")

	case errors.Is(err, services.ErrAlreadyProcessed):
		return problem(c, fiber.StatusConflict, "already_processed", "approval already processed")

	case services.IsConflictError(err):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())

	case services.IsUnprocessableError(err):
		return problem(c, fiber.StatusUnprocessableEntity, errorCode(err, "unprocessable"), err.Error())

	default:
		// Log unexpected errors but don't expose details
		return internalError(c, err)
	}
}

func errorCode(err error, fallback string) string {
	var serviceErr *services.ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Code != "" {
		return serviceErr.Code
	}

	return fallback
}
