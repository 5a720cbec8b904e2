// Package services provides the approval engine and the workflow definition service.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidWorkflow  = models.ErrInvalidWorkflow
	ErrInvalidDecision  = errors.New("decision must be APPROVED or REJECTED")
	ErrCommentsRequired = errors.New("comments are required to reject")

	// Lookup Errors (404 Not Found).
	ErrWorkflowNotFound         = persistence.ErrWorkflowNotFound
	ErrDocumentNotFound         = persistence.ErrDocumentNotFound
	ErrApprovalNotFound         = persistence.ErrApprovalNotFound
	ErrNoPendingApprovalForUser = errors.New("no pending approval for user")

	// Business Logic Conflicts (409 Conflict).
	ErrAlreadyProcessed         = errors.New("approval already processed")
	ErrStepAlreadyResolved      = persistence.ErrStepAlreadyResolved
	ErrDocumentAlreadySubmitted = errors.New("document already submitted for approval")

	// Unprocessable definitions (422).
	ErrNoEligibleApprovers = errors.New("no eligible approvers for designation")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidWorkflow) ||
		errors.Is(err, ErrInvalidDecision) ||
		errors.Is(err, ErrCommentsRequired)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed) ||
		errors.Is(err, ErrStepAlreadyResolved) ||
		errors.Is(err, ErrDocumentAlreadySubmitted) ||
		errors.Is(err, persistence.ErrConcurrentModification) ||
		errors.Is(err, persistence.ErrDuplicateApproval)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrApprovalNotFound) ||
		errors.Is(err, ErrNoPendingApprovalForUser)
}

// IsUnprocessableError checks if an error should return HTTP 422.
func IsUnprocessableError(err error) bool {
	return errors.Is(err, ErrNoEligibleApprovers)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func newServiceError(op string, err error) *ServiceError {
	return &ServiceError{Op: op, Err: err}
}
