package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/google/uuid"
)

// Definitions manages workflow definitions. Edits only affect documents submitted
// afterwards; in-flight documents keep reading the steps they were assigned on.
type Definitions struct {
	persistence persistence.Persistence
}

// NewDefinitions creates a new workflow definition service.
func NewDefinitions(persistence persistence.Persistence) *Definitions {
	return &Definitions{
		persistence: persistence,
	}
}

// HealthCheck checks the health of the persistence layer.
func (d *Definitions) HealthCheck(ctx context.Context) (string, bool) {
	if d.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := d.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// FetchByID returns a workflow with its steps.
func (d *Definitions) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := d.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, newServiceError("FetchByID", ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow: %w", err)
	}

	return workflow, nil
}

// List returns every workflow, optionally restricted to one owner scope.
func (d *Definitions) List(ctx context.Context, ownerScope string) ([]*models.Workflow, error) {
	workflows, err := d.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	if ownerScope == "" {
		return workflows, nil
	}

	filtered := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.OwnerScope == ownerScope {
			filtered = append(filtered, workflow)
		}
	}

	return filtered, nil
}

// Create validates a definition, assigns ids and persists it.
func (d *Definitions) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, NewValidationError("Create", "invalid_request", "workflow cannot be nil", ErrInvalidRequest)
	}

	workflow.ID = uuid.Must(uuid.NewV7()).String()

	for _, step := range workflow.Steps {
		step.ID = uuid.Must(uuid.NewV7()).String()
		step.WorkflowID = workflow.ID

		if step.ApprovalType == "" {
			step.ApprovalType = models.ApprovalTypeSequential
		}
	}

	err := workflow.Validate()
	if err != nil {
		return nil, NewValidationError("Create", "invalid_workflow", err.Error(), err)
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	err = d.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}
