package models

import "time"

// ApprovalStatus is the state of a single approval record.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// IsTerminal reports whether no further transition is possible from the status.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// Decision is what an approver submits. Only APPROVED and REJECTED are accepted.
type Decision = ApprovalStatus

// ApprovalRecord is one approver's pending or resolved decision for one step of one
// document. At most one record exists per (DocumentID, WorkflowStepID, ApproverID).
type ApprovalRecord struct {
	ID               string         `json:"id"`
	DocumentID       string         `json:"document_id"`
	WorkflowStepID   string         `json:"workflow_step_id"`
	ApproverID       string         `json:"approver_id"`
	Status           ApprovalStatus `json:"status"`
	Comments         string         `json:"comments,omitempty"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty"`
	Deadline         *time.Time     `json:"deadline,omitempty"`
	RemindersSent    int            `json:"reminders_sent"`
	LastReminderSent *time.Time     `json:"last_reminder_sent,omitempty"`
	IsEscalated      bool           `json:"is_escalated"`
	EscalatedAt      *time.Time     `json:"escalated_at,omitempty"`
	EscalatedTo      string         `json:"escalated_to,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// LastContact is the instant the approver was last nudged: the latest reminder,
// or the record creation when no reminder was sent yet.
func (r *ApprovalRecord) LastContact() time.Time {
	if r.LastReminderSent != nil && r.LastReminderSent.After(r.CreatedAt) {
		return *r.LastReminderSent
	}

	return r.CreatedAt
}

// StepOutcome is how a completed step was resolved.
type StepOutcome = ApprovalStatus

// StepResolution marks a (document, step) pair as completed. It is written exactly once
// per pair; the storage layer rejects a second insert.
type StepResolution struct {
	DocumentID     string      `json:"document_id"`
	WorkflowStepID string      `json:"workflow_step_id"`
	Outcome        StepOutcome `json:"outcome"`
	ResolvedBy     string      `json:"resolved_by"` // approval record that completed the step
	ResolvedAt     time.Time   `json:"resolved_at"`
}
