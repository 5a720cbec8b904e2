// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrDocumentNotFound indicates a document was not found by the given identifier.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentAlreadyExists indicates a document with the same identifier already exists.
	ErrDocumentAlreadyExists = errors.New("document already exists")

	// ErrApprovalNotFound indicates an approval record was not found.
	ErrApprovalNotFound = errors.New("approval not found")

	// ErrDuplicateApproval indicates a record already exists for the (document, step, approver) triple.
	ErrDuplicateApproval = errors.New("approval already exists for approver on step")

	// ErrApprovalNotPending indicates a decision was written over an already decided record.
	ErrApprovalNotPending = errors.New("approval is not pending")

	// ErrStepAlreadyResolved indicates the completion marker of a step was already written.
	ErrStepAlreadyResolved = errors.New("step already resolved")

	// ErrConcurrentModification indicates an optimistic concurrency token did not match.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// DocumentError wraps document-related errors with additional context.
type DocumentError struct {
	Op         string // Operation being performed (e.g., "LockDocument", "UpdateDocument")
	DocumentID string // Document ID
	Err        error  // Underlying error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s operation failed for document %s: %v", e.Op, e.DocumentID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for document errors.
func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a new document error with context.
func NewDocumentError(op, documentID string, err error) *DocumentError {
	return &DocumentError{
		Op:         op,
		DocumentID: documentID,
		Err:        err,
	}
}

// ApprovalError wraps approval-record errors with additional context.
type ApprovalError struct {
	Op         string // Operation being performed
	DocumentID string // Document ID
	ApprovalID string // Approval record ID if applicable
	StepID     string // Workflow step ID if applicable
	Err        error  // Underlying error
}

func (e *ApprovalError) Error() string {
	target := e.ApprovalID
	if target == "" {
		target = "step " + e.StepID
	}

	return fmt.Sprintf("%s operation failed for approval %s on document %s: %v", e.Op, target, e.DocumentID, e.Err)
}

func (e *ApprovalError) Unwrap() error {
	return e.Err
}

func (e *ApprovalError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewApprovalError creates a new approval error for a single record.
func NewApprovalError(op, documentID, approvalID string, err error) *ApprovalError {
	return &ApprovalError{
		Op:         op,
		DocumentID: documentID,
		ApprovalID: approvalID,
		Err:        err,
	}
}

// NewStepError creates a new approval error scoped to a whole step.
func NewStepError(op, documentID, stepID string, err error) *ApprovalError {
	return &ApprovalError{
		Op:         op,
		DocumentID: documentID,
		StepID:     stepID,
		Err:        err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsDocumentNotFound checks if an error indicates a document was not found.
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// IsApprovalNotFound checks if an error indicates an approval record was not found.
func IsApprovalNotFound(err error) bool {
	return errors.Is(err, ErrApprovalNotFound)
}

// IsStepAlreadyResolved checks if an error indicates a step completion marker clash.
func IsStepAlreadyResolved(err error) bool {
	return errors.Is(err, ErrStepAlreadyResolved)
}

// IsDuplicateApproval checks if an error indicates a unique (document, step, approver) clash.
func IsDuplicateApproval(err error) bool {
	return errors.Is(err, ErrDuplicateApproval)
}
