package models

import "time"

// StepRef is the step summary embedded in status projections.
type StepRef struct {
	ID           string       `json:"id"`
	Number       int          `json:"number"`
	ApprovalType ApprovalType `json:"approval_type"`
}

// ApprovalView is one approval record as seen by the UI.
type ApprovalView struct {
	ID            string         `json:"id"`
	Status        ApprovalStatus `json:"status"`
	Comments      string         `json:"comments,omitempty"`
	ApprovedAt    *time.Time     `json:"approved_at,omitempty"`
	Deadline      *time.Time     `json:"deadline,omitempty"`
	Step          StepRef        `json:"step"`
	Approver      string         `json:"approver"`
	IsEscalated   bool           `json:"is_escalated"`
	EscalatedTo   string         `json:"escalated_to,omitempty"`
	RemindersSent int            `json:"reminders_sent"`
}

// WorkflowStatusView is the read projection of a document's approval progress.
type WorkflowStatusView struct {
	DocumentID  string         `json:"document_id"`
	Status      DocumentStatus `json:"status"`
	CurrentStep *StepRef       `json:"current_step,omitempty"`
	Approvals   []ApprovalView `json:"approvals"`
	SLADueAt    *time.Time     `json:"sla_due_at,omitempty"`
	Overdue     bool           `json:"overdue"`
}

// StepCursor is the result of locating the active step of a document.
// Exactly one of Step, Halted and Complete describes the position.
type StepCursor struct {
	Step     *WorkflowStep `json:"step,omitempty"`
	Halted   bool          `json:"halted"`
	Complete bool          `json:"complete"`
}
