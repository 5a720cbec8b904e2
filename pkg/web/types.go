package web

import "github.com/dukex/docflow/pkg/models"

// CreateStepRequest is one step of a workflow definition.
type CreateStepRequest struct {
	StepNumber              int    `json:"step_number"                  validate:"required,min=1"`
	DesignationID           string `json:"designation_id"               validate:"required"`
	IsMandatory             *bool  `json:"is_mandatory,omitempty"`
	ApprovalType            string `json:"approval_type,omitempty"      validate:"omitempty,oneof=SEQUENTIAL PARALLEL"`
	MinApprovals            *int   `json:"min_approvals,omitempty"      validate:"omitempty,min=1"`
	Deadline                *int   `json:"deadline,omitempty"           validate:"omitempty,min=1"`
	ReminderInterval        *int   `json:"reminder_interval,omitempty"  validate:"omitempty,min=1"`
	EscalateAfter           *int   `json:"escalate_after,omitempty"     validate:"omitempty,min=1"`
	EscalateToDesignationID string `json:"escalate_to_designation_id,omitempty"`
}

// CreateWorkflowRequest represents the request body for creating a workflow definition.
type CreateWorkflowRequest struct {
	Name         string              `json:"name"                    validate:"required,min=3"`
	OwnerScope   string              `json:"owner_scope"`
	Type         string              `json:"type"                    validate:"required,oneof=SEQUENTIAL PARALLEL CONDITIONAL"`
	MinApprovals *int                `json:"min_approvals,omitempty" validate:"omitempty,min=1"`
	Conditions   map[string]any      `json:"conditions,omitempty"`
	MaxDuration  *int                `json:"max_duration,omitempty"  validate:"omitempty,min=1"`
	Steps        []CreateStepRequest `json:"steps"                   validate:"dive"`
}

// Workflow converts the request into a definition without ids.
func (r CreateWorkflowRequest) Workflow() *models.Workflow {
	workflow := &models.Workflow{
		Name:         r.Name,
		OwnerScope:   r.OwnerScope,
		Type:         models.WorkflowType(r.Type),
		MinApprovals: r.MinApprovals,
		Conditions:   r.Conditions,
		MaxDuration:  r.MaxDuration,
		Steps:        make([]*models.WorkflowStep, 0, len(r.Steps)),
	}

	for _, step := range r.Steps {
		mandatory := true
		if step.IsMandatory != nil {
			mandatory = *step.IsMandatory
		}

		workflow.Steps = append(workflow.Steps, &models.WorkflowStep{
			StepNumber:              step.StepNumber,
			DesignationID:           step.DesignationID,
			IsMandatory:             mandatory,
			ApprovalType:            models.ApprovalType(step.ApprovalType),
			MinApprovals:            step.MinApprovals,
			Deadline:                step.Deadline,
			ReminderInterval:        step.ReminderInterval,
			EscalateAfter:           step.EscalateAfter,
			EscalateToDesignationID: step.EscalateToDesignationID,
		})
	}

	return workflow
}

// SubmitDocumentRequest submits a document for approval. An empty workflow id
// approves the document without a chain.
type SubmitDocumentRequest struct {
	WorkflowID  string `json:"workflow_id"`
	SubmitterID string `json:"submitter_id" validate:"required"`
}

// DecisionRequest carries an approver's decision.
type DecisionRequest struct {
	ApproverID string `json:"approver_id" validate:"required"`
	Decision   string `json:"decision"    validate:"required,oneof=APPROVED REJECTED"`
	Comments   string `json:"comments"`
}

// CurrentStepResponse describes the active step of a document.
type CurrentStepResponse struct {
	DocumentID       string          `json:"document_id"`
	ApprovalRequired bool            `json:"approval_required"`
	Step             *models.StepRef `json:"step,omitempty"`
	Halted           bool            `json:"halted"`
	Complete         bool            `json:"complete"`
}

// CanApproveResponse answers whether a user may decide on the active step.
type CanApproveResponse struct {
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
	CanApprove bool   `json:"can_approve"`
}

// SweepActionResponse reports the outcome of a manual escalation or reminder.
type SweepActionResponse struct {
	ApprovalID string `json:"approval_id"`
	Action     string `json:"action"`
	Performed  bool   `json:"performed"`
}
