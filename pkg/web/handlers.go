// Package web provides HTTP handlers and REST API endpoints for workflow definitions
// and document approvals.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	definitions *services.Definitions
	approvals   *services.Approval
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	definitions *services.Definitions,
	approvals *services.Approval,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		definitions: definitions,
		approvals:   approvals,
		validator:   validator,
		logger:      logger.With("module", "web"),
	}
}

// RegisterRoutes mounts every endpoint on the router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)

	d := router.Group("/documents")
	d.Post("/:id/submit", h.SubmitDocument)
	d.Post("/:id/decisions", h.RecordDecision)
	d.Get("/:id/status", h.GetStatus)
	d.Get("/:id/current-step", h.GetCurrentStep)
	d.Get("/:id/approvers/:userId", h.CanApprove)

	a := router.Group("/approvals")
	a.Post("/:id/escalate", h.Escalate)
	a.Post("/:id/remind", h.Remind)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.definitions.List(c.Context(), c.Query("owner_scope"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.definitions.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.definitions.Create(c.Context(), req.Workflow())
	if err != nil {
		return handleServiceError(c, err)
	}

	h.logger.InfoContext(c.Context(), "workflow created", "workflow_id", created.ID, "steps", len(created.Steps))

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) SubmitDocument(c fiber.Ctx) error {
	var req SubmitDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	view, err := h.approvals.InitializeWorkflow(c.Context(), c.Params("id"), req.WorkflowID, req.SubmitterID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *APIHandlers) RecordDecision(c fiber.Ctx) error {
	var req DecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	view, err := h.approvals.ProcessApproval(
		c.Context(),
		c.Params("id"),
		req.ApproverID,
		models.Decision(req.Decision),
		req.Comments,
	)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) GetStatus(c fiber.Ctx) error {
	view, err := h.approvals.WorkflowStatus(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) GetCurrentStep(c fiber.Ctx) error {
	documentID := c.Params("id")

	required, err := h.approvals.IsApprovalRequired(c.Context(), documentID)
	if err != nil {
		return handleServiceError(c, err)
	}

	cursor, err := h.approvals.CurrentApprovalStep(c.Context(), documentID)
	if err != nil {
		return handleServiceError(c, err)
	}

	response := CurrentStepResponse{
		DocumentID:       documentID,
		ApprovalRequired: required,
		Halted:           cursor.Halted,
		Complete:         cursor.Complete,
	}

	if cursor.Step != nil {
		response.Step = &models.StepRef{
			ID:           cursor.Step.ID,
			Number:       cursor.Step.StepNumber,
			ApprovalType: cursor.Step.ApprovalType,
		}
	}

	return c.JSON(response)
}

func (h *APIHandlers) CanApprove(c fiber.Ctx) error {
	documentID := c.Params("id")
	userID := c.Params("userId")

	allowed, err := h.approvals.CanBeApprovedBy(c.Context(), documentID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(CanApproveResponse{DocumentID: documentID, UserID: userID, CanApprove: allowed})
}

func (h *APIHandlers) Escalate(c fiber.Ctx) error {
	approvalID := c.Params("id")

	escalated, err := h.approvals.CheckEscalation(c.Context(), approvalID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(SweepActionResponse{ApprovalID: approvalID, Action: "escalate", Performed: escalated})
}

func (h *APIHandlers) Remind(c fiber.Ctx) error {
	approvalID := c.Params("id")

	reminded, err := h.approvals.SendReminder(c.Context(), approvalID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(SweepActionResponse{ApprovalID: approvalID, Action: "remind", Performed: reminded})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.definitions.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Docflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Docflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
