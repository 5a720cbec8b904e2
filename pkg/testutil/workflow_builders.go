// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/google/uuid"
)

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// CreateTestStep creates a SEQUENTIAL step for the given designation that can be overridden.
func CreateTestStep(number int, designationID string, overrides ...func(*models.WorkflowStep)) *models.WorkflowStep {
	step := &models.WorkflowStep{
		ID:            uuid.New().String(),
		StepNumber:    number,
		DesignationID: designationID,
		IsMandatory:   true,
		ApprovalType:  models.ApprovalTypeSequential,
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

// WithParallelQuorum makes the step PARALLEL with the given minimum approvals.
func WithParallelQuorum(minApprovals int) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.ApprovalType = models.ApprovalTypeParallel
		s.MinApprovals = IntPtr(minApprovals)
	}
}

// WithDeadline sets the step deadline in hours.
func WithDeadline(hours int) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.Deadline = IntPtr(hours)
	}
}

// WithReminderInterval sets the reminder interval in hours.
func WithReminderInterval(hours int) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.ReminderInterval = IntPtr(hours)
	}
}

// WithEscalation escalates to the designation after the given number of hours.
func WithEscalation(hours int, designationID string) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.EscalateAfter = IntPtr(hours)
		s.EscalateToDesignationID = designationID
	}
}

// CreateTestWorkflow creates a SEQUENTIAL workflow with one step per designation.
func CreateTestWorkflow(designations []string, overrides ...func(*models.Workflow)) *models.Workflow {
	workflowID := uuid.New().String()
	steps := make([]*models.WorkflowStep, 0, len(designations))

	for i, designation := range designations {
		step := CreateTestStep(i+1, designation)
		step.WorkflowID = workflowID
		steps = append(steps, step)
	}

	workflow := &models.Workflow{
		ID:         workflowID,
		Name:       "Test Workflow",
		OwnerScope: "test-scope",
		Type:       models.WorkflowTypeSequential,
		Steps:      steps,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithStepOverrides applies step overrides to the step with the given number.
func WithStepOverrides(number int, overrides ...func(*models.WorkflowStep)) func(*models.Workflow) {
	return func(w *models.Workflow) {
		for _, step := range w.Steps {
			if step.StepNumber == number {
				for _, override := range overrides {
					override(step)
				}
			}
		}
	}
}

// WithMaxDuration sets the workflow SLA in hours.
func WithMaxDuration(hours int) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.MaxDuration = IntPtr(hours)
	}
}

// CreateTestDocument creates a DRAFT document bound to the workflow.
func CreateTestDocument(workflowID string) *models.Document {
	document := &models.Document{
		ID:        uuid.New().String(),
		Status:    models.DocumentStatusDraft,
		CreatedBy: "author",
	}

	if workflowID != "" {
		document.WorkflowID = StringPtr(workflowID)
	}

	return document
}
