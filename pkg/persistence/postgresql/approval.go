package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// ApprovalRepository serves committed approval state outside a unit of work.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewApprovalRepository creates a new approval repository.
func NewApprovalRepository(db *sql.DB, logger *slog.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

const selectDocument = `
	SELECT id, workflow_id, status, created_by, submitted_at, version, updated_at
	FROM documents
`

const selectApproval = `
	SELECT
		id
	  , document_id
	  , workflow_step_id
	  , approver_id
	  , status
	  , COALESCE(comments, '')
	  , approved_at
	  , deadline
	  , reminders_sent
	  , last_reminder_sent
	  , is_escalated
	  , escalated_at
	  , COALESCE(escalated_to, '')
	  , created_at
	FROM document_approvals
`

const selectResolution = `
	SELECT document_id, workflow_step_id, outcome, resolved_by, resolved_at
	FROM approval_step_resolutions
`

func (r *ApprovalRepository) DocumentByID(ctx context.Context, id string) (*models.Document, error) {
	return documentByID(ctx, r.db, "DocumentByID", selectDocument+" WHERE id = $1", id)
}

func (r *ApprovalRepository) ApprovalByID(ctx context.Context, id string) (*models.ApprovalRecord, error) {
	return approvalByID(ctx, r.db, "ApprovalByID", id)
}

func (r *ApprovalRepository) ApprovalsByDocument(ctx context.Context, documentID string) ([]*models.ApprovalRecord, error) {
	return queryApprovals(ctx, r.db, r.logger,
		selectApproval+" WHERE document_id = $1 ORDER BY created_at, id", documentID)
}

func (r *ApprovalRepository) StepResolutions(ctx context.Context, documentID string) ([]*models.StepResolution, error) {
	rows, err := r.db.QueryContext(ctx, selectResolution+" WHERE document_id = $1 ORDER BY resolved_at", documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step resolutions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	resolutions := make([]*models.StepResolution, 0)

	for rows.Next() {
		resolution, err := scanResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step resolution: %w", err)
		}

		resolutions = append(resolutions, resolution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating step resolutions: %w", err)
	}

	return resolutions, nil
}

func (r *ApprovalRepository) PendingApprovals(ctx context.Context, afterID string, limit int) ([]*models.ApprovalRecord, error) {
	if limit <= 0 {
		return queryApprovals(ctx, r.db, r.logger,
			selectApproval+" WHERE status = 'PENDING' AND id > $1 ORDER BY id", afterID)
	}

	return queryApprovals(ctx, r.db, r.logger,
		selectApproval+" WHERE status = 'PENDING' AND id > $1 ORDER BY id LIMIT $2", afterID, limit)
}

func documentByID(ctx context.Context, q queryer, op, query, id string) (*models.Document, error) {
	document := &models.Document{}

	var workflowID sql.NullString

	err := q.QueryRowContext(ctx, query, id).Scan(
		&document.ID,
		&workflowID,
		&document.Status,
		&document.CreatedBy,
		&document.SubmittedAt,
		&document.Version,
		&document.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewDocumentError(op, id, persistence.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	if workflowID.Valid {
		document.WorkflowID = &workflowID.String
	}

	return document, nil
}

func approvalByID(ctx context.Context, q queryer, op, id string) (*models.ApprovalRecord, error) {
	record, err := scanApproval(q.QueryRowContext(ctx, selectApproval+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewApprovalError(op, "", id, persistence.ErrApprovalNotFound)
		}

		return nil, fmt.Errorf("failed to scan approval: %w", err)
	}

	return record, nil
}

func queryApprovals(ctx context.Context, q queryer, logger *slog.Logger, query string, args ...any) ([]*models.ApprovalRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}

	defer closeRows(ctx, logger, rows)

	records := make([]*models.ApprovalRecord, 0)

	for rows.Next() {
		record, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating approvals: %w", err)
	}

	return records, nil
}

func scanApproval(row rowScanner) (*models.ApprovalRecord, error) {
	record := &models.ApprovalRecord{}

	err := row.Scan(
		&record.ID,
		&record.DocumentID,
		&record.WorkflowStepID,
		&record.ApproverID,
		&record.Status,
		&record.Comments,
		&record.ApprovedAt,
		&record.Deadline,
		&record.RemindersSent,
		&record.LastReminderSent,
		&record.IsEscalated,
		&record.EscalatedAt,
		&record.EscalatedTo,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func scanResolution(row rowScanner) (*models.StepResolution, error) {
	resolution := &models.StepResolution{}

	err := row.Scan(
		&resolution.DocumentID,
		&resolution.WorkflowStepID,
		&resolution.Outcome,
		&resolution.ResolvedBy,
		&resolution.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	return resolution, nil
}
