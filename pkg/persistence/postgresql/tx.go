package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// pgTx implements persistence.Tx on top of a single *sql.Tx.
type pgTx struct {
	tx        *sql.Tx
	workflows *WorkflowRepository
	logger    *slog.Logger
}

func (t *pgTx) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return t.workflows.getByID(ctx, t.tx, id)
}

func (t *pgTx) LockDocument(ctx context.Context, id string) (*models.Document, error) {
	return documentByID(ctx, t.tx, "LockDocument", selectDocument+" WHERE id = $1 FOR UPDATE", id)
}

func (t *pgTx) CreateDocument(ctx context.Context, document *models.Document) error {
	document.Version = 1
	document.UpdatedAt = time.Now().UTC()

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO documents (id, workflow_id, status, created_by, submitted_at, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		document.ID,
		document.WorkflowID,
		document.Status,
		document.CreatedBy,
		document.SubmittedAt,
		document.Version,
		document.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "documents_pkey") {
			return persistence.NewDocumentError("CreateDocument", document.ID, persistence.ErrDocumentAlreadyExists)
		}

		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

func (t *pgTx) UpdateDocument(ctx context.Context, document *models.Document) error {
	updatedAt := time.Now().UTC()

	result, err := t.tx.ExecContext(ctx, `
		UPDATE documents
		SET workflow_id = $1, status = $2, submitted_at = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6
	`,
		document.WorkflowID,
		document.Status,
		document.SubmittedAt,
		updatedAt,
		document.ID,
		document.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		var exists bool

		err = t.tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)", document.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check document existence: %w", err)
		}

		if !exists {
			return persistence.NewDocumentError("UpdateDocument", document.ID, persistence.ErrDocumentNotFound)
		}

		return persistence.NewDocumentError("UpdateDocument", document.ID, persistence.ErrConcurrentModification)
	}

	document.Version++
	document.UpdatedAt = updatedAt

	return nil
}

func (t *pgTx) ApprovalByID(ctx context.Context, id string) (*models.ApprovalRecord, error) {
	return approvalByID(ctx, t.tx, "ApprovalByID", id)
}

func (t *pgTx) ApprovalsByApprover(ctx context.Context, documentID, approverID string) ([]*models.ApprovalRecord, error) {
	return queryApprovals(ctx, t.tx, t.logger,
		selectApproval+" WHERE document_id = $1 AND approver_id = $2 ORDER BY created_at, id", documentID, approverID)
}

func (t *pgTx) ApprovalsByStep(ctx context.Context, documentID, stepID string) ([]*models.ApprovalRecord, error) {
	return queryApprovals(ctx, t.tx, t.logger,
		selectApproval+" WHERE document_id = $1 AND workflow_step_id = $2 ORDER BY created_at, id", documentID, stepID)
}

func (t *pgTx) InsertApprovals(ctx context.Context, records ...*models.ApprovalRecord) error {
	for _, record := range records {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO document_approvals (id, document_id, workflow_step_id, approver_id, status, comments,
				approved_at, deadline, reminders_sent, last_reminder_sent, is_escalated, escalated_at, escalated_to, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`,
			record.ID,
			record.DocumentID,
			record.WorkflowStepID,
			record.ApproverID,
			record.Status,
			nullString(record.Comments),
			record.ApprovedAt,
			record.Deadline,
			record.RemindersSent,
			record.LastReminderSent,
			record.IsEscalated,
			record.EscalatedAt,
			nullString(record.EscalatedTo),
			record.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "idx_document_approvals_unique") {
				return persistence.NewApprovalError("InsertApprovals", record.DocumentID, record.ID, persistence.ErrDuplicateApproval)
			}

			return fmt.Errorf("failed to insert approval: %w", err)
		}
	}

	return nil
}

func (t *pgTx) RecordDecision(ctx context.Context, record *models.ApprovalRecord) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE document_approvals
		SET status = $1, comments = $2, approved_at = $3
		WHERE id = $4 AND status = 'PENDING'
	`,
		record.Status,
		nullString(record.Comments),
		record.ApprovedAt,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		_, err = approvalByID(ctx, t.tx, "RecordDecision", record.ID)
		if err != nil {
			return err
		}

		return persistence.NewApprovalError("RecordDecision", record.DocumentID, record.ID, persistence.ErrApprovalNotPending)
	}

	return nil
}

func (t *pgTx) StepResolution(ctx context.Context, documentID, stepID string) (*models.StepResolution, error) {
	resolution, err := scanResolution(t.tx.QueryRowContext(ctx,
		selectResolution+" WHERE document_id = $1 AND workflow_step_id = $2", documentID, stepID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan step resolution: %w", err)
	}

	return resolution, nil
}

// ResolveStep uses ON CONFLICT so a clash leaves the transaction usable.
func (t *pgTx) ResolveStep(ctx context.Context, resolution *models.StepResolution) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO approval_step_resolutions (document_id, workflow_step_id, outcome, resolved_by, resolved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT approval_step_resolutions_pkey DO NOTHING
	`,
		resolution.DocumentID,
		resolution.WorkflowStepID,
		resolution.Outcome,
		resolution.ResolvedBy,
		resolution.ResolvedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "approval_step_resolutions_pkey") {
			return persistence.NewStepError("ResolveStep", resolution.DocumentID, resolution.WorkflowStepID, persistence.ErrStepAlreadyResolved)
		}

		return fmt.Errorf("failed to resolve step: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewStepError("ResolveStep", resolution.DocumentID, resolution.WorkflowStepID, persistence.ErrStepAlreadyResolved)
	}

	return nil
}

func (t *pgTx) MarkEscalated(ctx context.Context, id, escalatedTo string, at time.Time) (bool, error) {
	return t.conditionalUpdate(ctx, "MarkEscalated", id, `
		UPDATE document_approvals
		SET is_escalated = true, escalated_at = $1, escalated_to = $2
		WHERE id = $3 AND is_escalated = false AND status = 'PENDING'
	`, at, nullString(escalatedTo), id)
}

func (t *pgTx) RecordReminder(ctx context.Context, id string, previousCount int, at time.Time) (bool, error) {
	return t.conditionalUpdate(ctx, "RecordReminder", id, `
		UPDATE document_approvals
		SET reminders_sent = reminders_sent + 1, last_reminder_sent = $1
		WHERE id = $2 AND reminders_sent = $3 AND status = 'PENDING'
	`, at, id, previousCount)
}

func (t *pgTx) conditionalUpdate(ctx context.Context, op, id, query string, args ...any) (bool, error) {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected > 0 {
		return true, nil
	}

	_, err = approvalByID(ctx, t.tx, op, id)
	if err != nil {
		return false, err
	}

	return false, nil
}
