package file

import (
	"context"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
)

// ApprovalRepository answers read-only queries from the last committed snapshot.
type ApprovalRepository struct {
	persistence *Persistence
}

func (ar *ApprovalRepository) DocumentByID(_ context.Context, id string) (*models.Document, error) {
	var document *models.Document

	err := ar.persistence.read(func(s *snapshot) error {
		stored, ok := s.Documents[id]
		if !ok {
			return persistence.NewDocumentError("DocumentByID", id, persistence.ErrDocumentNotFound)
		}

		document = copyDocument(stored)

		return nil
	})

	return document, err
}

func (ar *ApprovalRepository) ApprovalByID(_ context.Context, id string) (*models.ApprovalRecord, error) {
	var record *models.ApprovalRecord

	err := ar.persistence.read(func(s *snapshot) error {
		stored, ok := s.Approvals[id]
		if !ok {
			return persistence.NewApprovalError("ApprovalByID", "", id, persistence.ErrApprovalNotFound)
		}

		record = copyApproval(stored)

		return nil
	})

	return record, err
}

func (ar *ApprovalRepository) ApprovalsByDocument(_ context.Context, documentID string) ([]*models.ApprovalRecord, error) {
	var records []*models.ApprovalRecord

	err := ar.persistence.read(func(s *snapshot) error {
		records = s.approvals(func(r *models.ApprovalRecord) bool {
			return r.DocumentID == documentID
		})

		return nil
	})

	return records, err
}

func (ar *ApprovalRepository) StepResolutions(_ context.Context, documentID string) ([]*models.StepResolution, error) {
	resolutions := make([]*models.StepResolution, 0)

	err := ar.persistence.read(func(s *snapshot) error {
		for _, resolution := range s.Resolutions {
			if resolution.DocumentID == documentID {
				resolutions = append(resolutions, copyResolution(resolution))
			}
		}

		return nil
	})

	return resolutions, err
}

func (ar *ApprovalRepository) PendingApprovals(_ context.Context, afterID string, limit int) ([]*models.ApprovalRecord, error) {
	var records []*models.ApprovalRecord

	err := ar.persistence.read(func(s *snapshot) error {
		pending := s.approvals(func(r *models.ApprovalRecord) bool {
			return r.Status == models.ApprovalStatusPending && r.ID > afterID
		})

		sortByID(pending)

		if limit > 0 && len(pending) > limit {
			pending = pending[:limit]
		}

		records = pending

		return nil
	})

	return records, err
}

// fileTx mutates a private copy of the snapshot. The whole store is locked for the
// lifetime of the unit of work, so LockDocument needs no extra bookkeeping.
type fileTx struct {
	state     *snapshot
	workflows *WorkflowRepository
}

func (tx *fileTx) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return tx.workflows.GetByID(ctx, id)
}

func (tx *fileTx) LockDocument(_ context.Context, id string) (*models.Document, error) {
	stored, ok := tx.state.Documents[id]
	if !ok {
		return nil, persistence.NewDocumentError("LockDocument", id, persistence.ErrDocumentNotFound)
	}

	return copyDocument(stored), nil
}

func (tx *fileTx) CreateDocument(_ context.Context, document *models.Document) error {
	if _, exists := tx.state.Documents[document.ID]; exists {
		return persistence.NewDocumentError("CreateDocument", document.ID, persistence.ErrDocumentAlreadyExists)
	}

	document.Version = 1
	document.UpdatedAt = time.Now().UTC()
	tx.state.Documents[document.ID] = copyDocument(document)

	return nil
}

func (tx *fileTx) UpdateDocument(_ context.Context, document *models.Document) error {
	stored, ok := tx.state.Documents[document.ID]
	if !ok {
		return persistence.NewDocumentError("UpdateDocument", document.ID, persistence.ErrDocumentNotFound)
	}

	if stored.Version != document.Version {
		return persistence.NewDocumentError("UpdateDocument", document.ID, persistence.ErrConcurrentModification)
	}

	document.Version++
	document.UpdatedAt = time.Now().UTC()
	tx.state.Documents[document.ID] = copyDocument(document)

	return nil
}

func (tx *fileTx) ApprovalByID(_ context.Context, id string) (*models.ApprovalRecord, error) {
	stored, ok := tx.state.Approvals[id]
	if !ok {
		return nil, persistence.NewApprovalError("ApprovalByID", "", id, persistence.ErrApprovalNotFound)
	}

	return copyApproval(stored), nil
}

func (tx *fileTx) ApprovalsByApprover(_ context.Context, documentID, approverID string) ([]*models.ApprovalRecord, error) {
	return tx.state.approvals(func(r *models.ApprovalRecord) bool {
		return r.DocumentID == documentID && r.ApproverID == approverID
	}), nil
}

func (tx *fileTx) ApprovalsByStep(_ context.Context, documentID, stepID string) ([]*models.ApprovalRecord, error) {
	return tx.state.approvals(func(r *models.ApprovalRecord) bool {
		return r.DocumentID == documentID && r.WorkflowStepID == stepID
	}), nil
}

func (tx *fileTx) InsertApprovals(_ context.Context, records ...*models.ApprovalRecord) error {
	batch := make(map[string]bool, len(records))

	for _, record := range records {
		key := record.DocumentID + "/" + record.WorkflowStepID + "/" + record.ApproverID
		if batch[key] {
			return persistence.NewApprovalError("InsertApprovals", record.DocumentID, record.ID, persistence.ErrDuplicateApproval)
		}

		batch[key] = true

		for _, existing := range tx.state.Approvals {
			if existing.DocumentID == record.DocumentID &&
				existing.WorkflowStepID == record.WorkflowStepID &&
				existing.ApproverID == record.ApproverID {
				return persistence.NewApprovalError("InsertApprovals", record.DocumentID, record.ID, persistence.ErrDuplicateApproval)
			}
		}
	}

	for _, record := range records {
		tx.state.Approvals[record.ID] = copyApproval(record)
	}

	return nil
}

func (tx *fileTx) RecordDecision(_ context.Context, record *models.ApprovalRecord) error {
	stored, ok := tx.state.Approvals[record.ID]
	if !ok {
		return persistence.NewApprovalError("RecordDecision", record.DocumentID, record.ID, persistence.ErrApprovalNotFound)
	}

	if stored.Status != models.ApprovalStatusPending {
		return persistence.NewApprovalError("RecordDecision", record.DocumentID, record.ID, persistence.ErrApprovalNotPending)
	}

	stored.Status = record.Status
	stored.Comments = record.Comments
	stored.ApprovedAt = record.ApprovedAt

	return nil
}

func (tx *fileTx) StepResolution(_ context.Context, documentID, stepID string) (*models.StepResolution, error) {
	stored, ok := tx.state.Resolutions[resolutionKey(documentID, stepID)]
	if !ok {
		return nil, nil
	}

	return copyResolution(stored), nil
}

func (tx *fileTx) ResolveStep(_ context.Context, resolution *models.StepResolution) error {
	key := resolutionKey(resolution.DocumentID, resolution.WorkflowStepID)
	if _, exists := tx.state.Resolutions[key]; exists {
		return persistence.NewStepError("ResolveStep", resolution.DocumentID, resolution.WorkflowStepID, persistence.ErrStepAlreadyResolved)
	}

	tx.state.Resolutions[key] = copyResolution(resolution)

	return nil
}

func (tx *fileTx) MarkEscalated(_ context.Context, id, escalatedTo string, at time.Time) (bool, error) {
	stored, ok := tx.state.Approvals[id]
	if !ok {
		return false, persistence.NewApprovalError("MarkEscalated", "", id, persistence.ErrApprovalNotFound)
	}

	if stored.IsEscalated || stored.Status != models.ApprovalStatusPending {
		return false, nil
	}

	stored.IsEscalated = true
	stored.EscalatedAt = &at
	stored.EscalatedTo = escalatedTo

	return true, nil
}

func (tx *fileTx) RecordReminder(_ context.Context, id string, previousCount int, at time.Time) (bool, error) {
	stored, ok := tx.state.Approvals[id]
	if !ok {
		return false, persistence.NewApprovalError("RecordReminder", "", id, persistence.ErrApprovalNotFound)
	}

	if stored.RemindersSent != previousCount || stored.Status != models.ApprovalStatusPending {
		return false, nil
	}

	stored.RemindersSent++
	stored.LastReminderSent = &at

	return true, nil
}
