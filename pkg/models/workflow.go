// Package models defines the core domain models for document approval workflows.
package models

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// WorkflowType is the chain-level policy of a workflow.
type WorkflowType string

const (
	WorkflowTypeSequential  WorkflowType = "SEQUENTIAL"
	WorkflowTypeParallel    WorkflowType = "PARALLEL"
	WorkflowTypeConditional WorkflowType = "CONDITIONAL"
)

// ErrInvalidWorkflow is returned when a workflow definition fails validation.
var ErrInvalidWorkflow = errors.New("invalid workflow")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Workflow is a named, ordered chain of approval steps. Definitions are read-only
// from the engine's perspective; editing one only affects documents submitted afterwards.
type Workflow struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"                    validate:"required,min=3"`
	OwnerScope   string          `json:"owner_scope"`
	Type         WorkflowType    `json:"type"                    validate:"required,oneof=SEQUENTIAL PARALLEL CONDITIONAL"`
	MinApprovals *int            `json:"min_approvals,omitempty" validate:"omitempty,min=1"`
	Conditions   map[string]any  `json:"conditions,omitempty"`
	MaxDuration  *int            `json:"max_duration,omitempty"  validate:"omitempty,min=1"` // hours, advisory
	Steps        []*WorkflowStep `json:"steps"                   validate:"dive"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Validate checks the workflow definition and every step it owns.
func (w *Workflow) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}

	switch w.Type {
	case WorkflowTypeParallel:
		if w.MinApprovals == nil {
			return fmt.Errorf("%w: parallel workflow requires min_approvals", ErrInvalidWorkflow)
		}
	case WorkflowTypeConditional:
		if len(w.Conditions) == 0 {
			return fmt.Errorf("%w: conditional workflow requires conditions", ErrInvalidWorkflow)
		}

		if err := ValidateConditions(w.Conditions); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
		}
	case WorkflowTypeSequential:
	}

	seen := make(map[int]bool, len(w.Steps))

	for _, step := range w.SortedSteps() {
		if seen[step.StepNumber] {
			return fmt.Errorf("%w: duplicate step number %d", ErrInvalidWorkflow, step.StepNumber)
		}

		seen[step.StepNumber] = true

		if step.EscalateAfter != nil && step.EscalateToDesignationID == "" {
			return fmt.Errorf("%w: step %d escalates without an escalation designation", ErrInvalidWorkflow, step.StepNumber)
		}
	}

	// Steps advance by stepNumber+1, so a gap would finalize the chain early.
	for number := 1; number <= len(w.Steps); number++ {
		if !seen[number] {
			return fmt.Errorf("%w: step numbers must run from 1 to %d without gaps", ErrInvalidWorkflow, len(w.Steps))
		}
	}

	return nil
}

// SortedSteps returns the steps ordered by step number. The receiver is not modified.
func (w *Workflow) SortedSteps() []*WorkflowStep {
	steps := make([]*WorkflowStep, len(w.Steps))
	copy(steps, w.Steps)

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StepNumber < steps[j].StepNumber
	})

	return steps
}

// StepByNumber returns the step with the given number, or nil.
func (w *Workflow) StepByNumber(number int) *WorkflowStep {
	for _, step := range w.Steps {
		if step.StepNumber == number {
			return step
		}
	}

	return nil
}

// StepByID returns the step with the given id, or nil.
func (w *Workflow) StepByID(id string) *WorkflowStep {
	for _, step := range w.Steps {
		if step.ID == id {
			return step
		}
	}

	return nil
}

// FirstStep returns the lowest numbered step, or nil for an empty chain.
func (w *Workflow) FirstStep() *WorkflowStep {
	steps := w.SortedSteps()
	if len(steps) == 0 {
		return nil
	}

	return steps[0]
}
