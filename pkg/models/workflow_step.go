package models

import "time"

// ApprovalType is the per-step quorum policy.
type ApprovalType string

const (
	// ApprovalTypeSequential completes once every assigned approver has approved,
	// in any order, or as soon as one of them rejects.
	ApprovalTypeSequential ApprovalType = "SEQUENTIAL"
	// ApprovalTypeParallel completes once MinApprovals approvers have approved,
	// or as soon as one of them rejects.
	ApprovalTypeParallel ApprovalType = "PARALLEL"
)

// WorkflowStep is one stage of a workflow. Hour based fields are nil when unset.
type WorkflowStep struct {
	ID                      string       `json:"id"`
	WorkflowID              string       `json:"workflow_id"`
	StepNumber              int          `json:"step_number"                          validate:"required,min=1"`
	DesignationID           string       `json:"designation_id"                       validate:"required"`
	IsMandatory             bool         `json:"is_mandatory"`
	ApprovalType            ApprovalType `json:"approval_type"                        validate:"required,oneof=SEQUENTIAL PARALLEL"`
	MinApprovals            *int         `json:"min_approvals,omitempty"              validate:"omitempty,min=1"`
	Deadline                *int         `json:"deadline,omitempty"                   validate:"omitempty,min=1"`
	ReminderInterval        *int         `json:"reminder_interval,omitempty"          validate:"omitempty,min=1"`
	EscalateAfter           *int         `json:"escalate_after,omitempty"             validate:"omitempty,min=1"`
	EscalateToDesignationID string       `json:"escalate_to_designation_id,omitempty"`
}

// DeadlineFrom returns the absolute due time for a record created at the given instant.
func (s *WorkflowStep) DeadlineFrom(createdAt time.Time) *time.Time {
	if s.Deadline == nil {
		return nil
	}

	due := createdAt.Add(Hours(*s.Deadline))

	return &due
}

// Hours converts an hour count from a definition into a duration.
func Hours(h int) time.Duration {
	return time.Duration(h) * time.Hour
}
