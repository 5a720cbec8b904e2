// Package persistence provides the storage ports of the approval engine.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/docflow/pkg/models"
)

// Persistence is the transactional store behind the approval engine.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ApprovalRepository() ApprovalRepository

	// Transact runs fn as one unit of work. A non-nil error from fn, or a failure to
	// commit, rolls back every write fn performed through tx.
	Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions together with their steps.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
}

// ApprovalRepository serves read-only queries outside any transaction.
type ApprovalRepository interface {
	DocumentByID(ctx context.Context, id string) (*models.Document, error)
	ApprovalByID(ctx context.Context, id string) (*models.ApprovalRecord, error)
	ApprovalsByDocument(ctx context.Context, documentID string) ([]*models.ApprovalRecord, error)
	StepResolutions(ctx context.Context, documentID string) ([]*models.StepResolution, error)

	// PendingApprovals pages through PENDING records ordered by id, starting after afterID.
	PendingApprovals(ctx context.Context, afterID string, limit int) ([]*models.ApprovalRecord, error)
}

// Tx is the set of operations available inside a unit of work. Implementations must
// serialize concurrent units of work touching the same document through LockDocument.
type Tx interface {
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)

	// LockDocument loads the document and holds a write lock on it until the unit of
	// work ends.
	LockDocument(ctx context.Context, id string) (*models.Document, error)
	// CreateDocument inserts a new document row.
	CreateDocument(ctx context.Context, document *models.Document) error
	// UpdateDocument writes the document when its stored version still equals
	// document.Version, then bumps the version. Otherwise ErrConcurrentModification.
	UpdateDocument(ctx context.Context, document *models.Document) error

	ApprovalByID(ctx context.Context, id string) (*models.ApprovalRecord, error)
	ApprovalsByApprover(ctx context.Context, documentID, approverID string) ([]*models.ApprovalRecord, error)
	ApprovalsByStep(ctx context.Context, documentID, stepID string) ([]*models.ApprovalRecord, error)

	// InsertApprovals creates records; a clash on (document, step, approver) fails the
	// whole batch with ErrDuplicateApproval.
	InsertApprovals(ctx context.Context, records ...*models.ApprovalRecord) error
	// RecordDecision moves a PENDING record to its terminal status. ErrApprovalNotPending
	// when the record was already decided.
	RecordDecision(ctx context.Context, record *models.ApprovalRecord) error

	StepResolution(ctx context.Context, documentID, stepID string) (*models.StepResolution, error)
	// ResolveStep inserts the completion marker of a step. ErrStepAlreadyResolved when
	// the step was already resolved.
	ResolveStep(ctx context.Context, resolution *models.StepResolution) error

	// MarkEscalated flips is_escalated on a PENDING, not yet escalated record and
	// reports whether this call performed the flip.
	MarkEscalated(ctx context.Context, id, escalatedTo string, at time.Time) (bool, error)
	// RecordReminder bumps reminders_sent from previousCount and reports whether this
	// call performed the bump.
	RecordReminder(ctx context.Context, id string, previousCount int, at time.Time) (bool, error)
}
