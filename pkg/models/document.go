package models

import "time"

// DocumentStatus is the approval state of a document.
type DocumentStatus string

const (
	DocumentStatusDraft    DocumentStatus = "DRAFT"
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusApproved DocumentStatus = "APPROVED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)

// IsFinal reports whether the approval chain of the document has ended.
func (s DocumentStatus) IsFinal() bool {
	return s == DocumentStatusApproved || s == DocumentStatusRejected
}

// Document carries the approval relevant fields of a stored document. Version is the
// optimistic concurrency token bumped on every status write.
type Document struct {
	ID          string         `json:"id"`
	WorkflowID  *string        `json:"workflow_id,omitempty"`
	Status      DocumentStatus `json:"status"`
	CreatedBy   string         `json:"created_by"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
	Version     int            `json:"version"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RequiresApproval reports whether the document is bound to a workflow.
func (d *Document) RequiresApproval() bool {
	return d.WorkflowID != nil && *d.WorkflowID != ""
}
