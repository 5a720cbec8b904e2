package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dukex/docflow/pkg/directory"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/notification"
	"github.com/dukex/docflow/pkg/otelhelper"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Approval drives documents through their approval chains. Every state change runs
// in a single persistence unit of work holding the document lock; notifications are
// sent after commit and never fail the call.
type Approval struct {
	persistence persistence.Persistence
	directory   directory.UserDirectory
	notifier    notification.Gateway
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	newID       func() string
}

// ApprovalOption configures an Approval engine.
type ApprovalOption func(*Approval)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) ApprovalOption {
	return func(a *Approval) {
		a.now = now
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) ApprovalOption {
	return func(a *Approval) {
		a.logger = logger
	}
}

// WithTracer sets the tracer used for engine spans.
func WithTracer(tracer trace.Tracer) ApprovalOption {
	return func(a *Approval) {
		a.tracer = tracer
	}
}

// WithIDGenerator replaces the approval record id generator.
func WithIDGenerator(newID func() string) ApprovalOption {
	return func(a *Approval) {
		a.newID = newID
	}
}

// NewApproval creates a new approval engine.
func NewApproval(
	persistence persistence.Persistence,
	userDirectory directory.UserDirectory,
	notifier notification.Gateway,
	opts ...ApprovalOption,
) *Approval {
	a := &Approval{
		persistence: persistence,
		directory:   userDirectory,
		notifier:    notifier,
		logger:      slog.Default().With("module", "approval"),
		tracer:      otelhelper.NoopTracer(),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       newRecordID,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func newRecordID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// outbox collects notifications produced inside a unit of work; they are only
// delivered once the unit of work committed.
type outbox struct {
	messages []outboxMessage
}

type outboxMessage struct {
	userID string
	kind   notification.Kind
	data   map[string]any
}

func (o *outbox) add(userID string, kind notification.Kind, data map[string]any) {
	o.messages = append(o.messages, outboxMessage{userID: userID, kind: kind, data: data})
}

func (a *Approval) flush(ctx context.Context, box *outbox) {
	for _, message := range box.messages {
		err := a.notifier.Notify(ctx, message.userID, message.kind, message.data)
		if err != nil {
			a.logger.WarnContext(ctx, "failed to deliver notification",
				"user_id", message.userID,
				"kind", message.kind,
				"error", err,
			)
		}
	}
}

// InitializeWorkflow submits a document for approval. Without a workflow the document
// is approved on the spot; otherwise the approvers of the first step get one PENDING
// record each.
func (a *Approval) InitializeWorkflow(
	ctx context.Context,
	documentID, workflowID, submitterID string,
) (*models.WorkflowStatusView, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "approval.initialize_workflow",
		attribute.String(otelhelper.DocumentIDKey, documentID),
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
	)
	defer span.End()

	if strings.TrimSpace(documentID) == "" || strings.TrimSpace(submitterID) == "" {
		return nil, NewValidationError("InitializeWorkflow", "invalid_request",
			"document id and submitter id are required", ErrInvalidRequest)
	}

	box := &outbox{}

	err := a.persistence.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		now := a.now()

		document, err := tx.LockDocument(ctx, documentID)

		switch {
		case persistence.IsDocumentNotFound(err):
			document = &models.Document{ID: documentID, Status: models.DocumentStatusDraft, CreatedBy: submitterID}

			err = tx.CreateDocument(ctx, document)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		case document.Status != models.DocumentStatusDraft:
			return newServiceError("InitializeWorkflow", ErrDocumentAlreadySubmitted)
		}

		document.CreatedBy = submitterID
		document.SubmittedAt = &now

		if workflowID == "" {
			document.WorkflowID = nil
			document.Status = models.DocumentStatusApproved

			return tx.UpdateDocument(ctx, document)
		}

		workflow, err := tx.WorkflowByID(ctx, workflowID)
		if err != nil {
			return newServiceError("InitializeWorkflow", err)
		}

		document.WorkflowID = &workflow.ID

		first := workflow.FirstStep()
		if first == nil {
			document.Status = models.DocumentStatusApproved

			return tx.UpdateDocument(ctx, document)
		}

		document.Status = models.DocumentStatusPending

		err = tx.UpdateDocument(ctx, document)
		if err != nil {
			return err
		}

		return a.assignStep(ctx, tx, box, document, first, now)
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	a.flush(ctx, box)

	a.logger.InfoContext(ctx, "document submitted for approval",
		"document_id", documentID,
		"workflow_id", workflowID,
		"approvers_notified", len(box.messages),
	)

	return a.WorkflowStatus(ctx, documentID)
}

// assignStep creates one PENDING record per approver of the step.
func (a *Approval) assignStep(
	ctx context.Context,
	tx persistence.Tx,
	box *outbox,
	document *models.Document,
	step *models.WorkflowStep,
	now time.Time,
) error {
	approvers, err := a.directory.ResolveApprovers(ctx, step.DesignationID)
	if err != nil {
		return fmt.Errorf("failed to resolve approvers for designation %s: %w", step.DesignationID, err)
	}

	approvers = slices.Compact(slices.Sorted(slices.Values(approvers)))
	if len(approvers) == 0 {
		return &ServiceError{
			Op:      "AssignStep",
			Code:    "no_eligible_approvers",
			Message: fmt.Sprintf("no active user holds designation %s for step %d", step.DesignationID, step.StepNumber),
			Err:     ErrNoEligibleApprovers,
		}
	}

	records := make([]*models.ApprovalRecord, 0, len(approvers))

	for _, approverID := range approvers {
		records = append(records, &models.ApprovalRecord{
			ID:             a.newID(),
			DocumentID:     document.ID,
			WorkflowStepID: step.ID,
			ApproverID:     approverID,
			Status:         models.ApprovalStatusPending,
			Deadline:       step.DeadlineFrom(now),
			CreatedAt:      now,
		})
	}

	err = tx.InsertApprovals(ctx, records...)
	if err != nil {
		return err
	}

	for _, record := range records {
		box.add(record.ApproverID, notification.KindApprovalRequested, map[string]any{
			"document_id": document.ID,
			"approval_id": record.ID,
			"step_number": step.StepNumber,
			"deadline":    record.Deadline,
		})
	}

	return nil
}

// ProcessApproval records the decision of an approver on the active step of a
// document and advances or finalizes the chain when the step completes.
func (a *Approval) ProcessApproval(
	ctx context.Context,
	documentID, approverID string,
	decision models.Decision,
	comments string,
) (*models.WorkflowStatusView, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "approval.process_approval",
		attribute.String(otelhelper.DocumentIDKey, documentID),
		attribute.String(otelhelper.ApproverIDKey, approverID),
		attribute.String(otelhelper.DecisionKey, string(decision)),
	)
	defer span.End()

	box := &outbox{}

	err := a.persistence.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		document, err := tx.LockDocument(ctx, documentID)
		if err != nil {
			return newServiceError("ProcessApproval", err)
		}

		record, err := a.pendingRecordFor(ctx, tx, document, approverID)
		if err != nil {
			return err
		}

		if !decision.IsTerminal() {
			return newServiceError("ProcessApproval", ErrInvalidDecision)
		}

		if decision == models.ApprovalStatusRejected && strings.TrimSpace(comments) == "" {
			return newServiceError("ProcessApproval", ErrCommentsRequired)
		}

		workflow, err := tx.WorkflowByID(ctx, *document.WorkflowID)
		if err != nil {
			return err
		}

		step := workflow.StepByID(record.WorkflowStepID)
		if step == nil {
			return fmt.Errorf("step %s of approval %s is missing from workflow %s", record.WorkflowStepID, record.ID, workflow.ID)
		}

		span.SetAttributes(attribute.Int(otelhelper.StepNumberKey, step.StepNumber))

		now := a.now()
		record.Status = decision
		record.Comments = comments
		record.ApprovedAt = &now

		err = tx.RecordDecision(ctx, record)
		if err != nil {
			if errors.Is(err, persistence.ErrApprovalNotPending) {
				return newServiceError("ProcessApproval", ErrAlreadyProcessed)
			}

			return err
		}

		box.add(document.CreatedBy, notification.KindApprovalDecision, map[string]any{
			"document_id": document.ID,
			"approval_id": record.ID,
			"approver_id": approverID,
			"decision":    string(decision),
			"comments":    comments,
			"step_number": step.StepNumber,
		})

		return a.advance(ctx, tx, box, document, workflow, step, record, now)
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	a.flush(ctx, box)

	a.logger.InfoContext(ctx, "approval decision recorded",
		"document_id", documentID,
		"approver_id", approverID,
		"decision", decision,
	)

	return a.WorkflowStatus(ctx, documentID)
}

// pendingRecordFor finds the record the approver may still decide on. Records on
// already resolved steps are orphans of a completed quorum and cannot be decided.
func (a *Approval) pendingRecordFor(
	ctx context.Context,
	tx persistence.Tx,
	document *models.Document,
	approverID string,
) (*models.ApprovalRecord, error) {
	records, err := tx.ApprovalsByApprover(ctx, document.ID, approverID)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, newServiceError("ProcessApproval", ErrNoPendingApprovalForUser)
	}

	pending := slices.DeleteFunc(records, func(r *models.ApprovalRecord) bool {
		return r.Status != models.ApprovalStatusPending
	})
	if len(pending) == 0 {
		return nil, newServiceError("ProcessApproval", ErrAlreadyProcessed)
	}

	if document.Status != models.DocumentStatusPending || !document.RequiresApproval() {
		return nil, newServiceError("ProcessApproval", ErrStepAlreadyResolved)
	}

	for _, record := range pending {
		resolution, err := tx.StepResolution(ctx, document.ID, record.WorkflowStepID)
		if err != nil {
			return nil, err
		}

		if resolution == nil {
			return record, nil
		}
	}

	return nil, newServiceError("ProcessApproval", ErrStepAlreadyResolved)
}

// advance evaluates the step after a decision. A completed step is marked resolved
// exactly once; the marker insert fails for a concurrent duplicate advance.
func (a *Approval) advance(
	ctx context.Context,
	tx persistence.Tx,
	box *outbox,
	document *models.Document,
	workflow *models.Workflow,
	step *models.WorkflowStep,
	decided *models.ApprovalRecord,
	now time.Time,
) error {
	records, err := tx.ApprovalsByStep(ctx, document.ID, step.ID)
	if err != nil {
		return err
	}

	complete, outcome := evaluateStep(step, records)
	if !complete {
		return nil
	}

	err = tx.ResolveStep(ctx, &models.StepResolution{
		DocumentID:     document.ID,
		WorkflowStepID: step.ID,
		Outcome:        outcome,
		ResolvedBy:     decided.ID,
		ResolvedAt:     now,
	})
	if err != nil {
		return err
	}

	if outcome == models.ApprovalStatusRejected {
		document.Status = models.DocumentStatusRejected

		return tx.UpdateDocument(ctx, document)
	}

	next := workflow.StepByNumber(step.StepNumber + 1)
	if next == nil {
		document.Status = models.DocumentStatusApproved

		return tx.UpdateDocument(ctx, document)
	}

	err = tx.UpdateDocument(ctx, document)
	if err != nil {
		return err
	}

	return a.assignStep(ctx, tx, box, document, next, now)
}

// staleStep loads the context of a record for the sweeps. It reports true when the
// record no longer belongs to the active step of a pending document.
func (a *Approval) staleStep(
	ctx context.Context,
	tx persistence.Tx,
	record *models.ApprovalRecord,
) (*models.WorkflowStep, bool, error) {
	document, err := tx.LockDocument(ctx, record.DocumentID)
	if err != nil {
		return nil, false, err
	}

	if document.Status != models.DocumentStatusPending || !document.RequiresApproval() {
		return nil, true, nil
	}

	resolution, err := tx.StepResolution(ctx, record.DocumentID, record.WorkflowStepID)
	if err != nil {
		return nil, false, err
	}

	if resolution != nil {
		return nil, true, nil
	}

	workflow, err := tx.WorkflowByID(ctx, *document.WorkflowID)
	if err != nil {
		return nil, false, err
	}

	step := workflow.StepByID(record.WorkflowStepID)
	if step == nil {
		return nil, true, nil
	}

	return step, false, nil
}

// CheckEscalation escalates an overdue PENDING record to a holder of the step's
// escalation designation. It reports whether this call escalated the record.
func (a *Approval) CheckEscalation(ctx context.Context, approvalID string) (bool, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "approval.check_escalation",
		attribute.String(otelhelper.ApprovalIDKey, approvalID),
	)
	defer span.End()

	box := &outbox{}
	escalated := false

	err := a.persistence.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		record, err := tx.ApprovalByID(ctx, approvalID)
		if err != nil {
			return newServiceError("CheckEscalation", err)
		}

		if record.Status != models.ApprovalStatusPending || record.IsEscalated {
			return nil
		}

		step, stale, err := a.staleStep(ctx, tx, record)
		if err != nil || stale {
			return err
		}

		if step.EscalateAfter == nil || step.EscalateToDesignationID == "" {
			return nil
		}

		now := a.now()
		if now.Sub(record.CreatedAt) < models.Hours(*step.EscalateAfter) {
			return nil
		}

		candidates, err := a.directory.ResolveApprovers(ctx, step.EscalateToDesignationID)
		if err != nil {
			return fmt.Errorf("failed to resolve escalation designation %s: %w", step.EscalateToDesignationID, err)
		}

		if len(candidates) == 0 {
			a.logger.WarnContext(ctx, "no escalation target available",
				"approval_id", approvalID,
				"designation_id", step.EscalateToDesignationID,
			)

			return nil
		}

		stepRecords, err := tx.ApprovalsByStep(ctx, record.DocumentID, record.WorkflowStepID)
		if err != nil {
			return err
		}

		target, assigned := escalationTarget(candidates, stepRecords)

		flipped, err := tx.MarkEscalated(ctx, record.ID, target, now)
		if err != nil || !flipped {
			return err
		}

		escalated = true

		if !assigned {
			err = tx.InsertApprovals(ctx, &models.ApprovalRecord{
				ID:             a.newID(),
				DocumentID:     record.DocumentID,
				WorkflowStepID: record.WorkflowStepID,
				ApproverID:     target,
				Status:         models.ApprovalStatusPending,
				Deadline:       record.Deadline,
				CreatedAt:      now,
			})
			if err != nil {
				return err
			}
		}

		box.add(target, notification.KindApprovalEscalated, map[string]any{
			"document_id":      record.DocumentID,
			"approval_id":      record.ID,
			"original_user_id": record.ApproverID,
			"step_number":      step.StepNumber,
			"deadline":         record.Deadline,
		})

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return false, err
	}

	if escalated {
		a.flush(ctx, box)

		a.logger.InfoContext(ctx, "approval escalated", "approval_id", approvalID)
	}

	return escalated, nil
}

// escalationTarget picks the first candidate without a record on the step. When every
// candidate is already assigned the first one is reported and no record is added.
func escalationTarget(candidates []string, stepRecords []*models.ApprovalRecord) (string, bool) {
	sorted := slices.Sorted(slices.Values(candidates))

	assigned := make(map[string]bool, len(stepRecords))
	for _, record := range stepRecords {
		assigned[record.ApproverID] = true
	}

	for _, candidate := range sorted {
		if !assigned[candidate] {
			return candidate, false
		}
	}

	return sorted[0], true
}

// SendReminder nudges the approver of a PENDING record once its reminder interval
// elapsed since the last contact. It reports whether a reminder was sent.
func (a *Approval) SendReminder(ctx context.Context, approvalID string) (bool, error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "approval.send_reminder",
		attribute.String(otelhelper.ApprovalIDKey, approvalID),
	)
	defer span.End()

	box := &outbox{}
	reminded := false

	err := a.persistence.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		record, err := tx.ApprovalByID(ctx, approvalID)
		if err != nil {
			return newServiceError("SendReminder", err)
		}

		if record.Status != models.ApprovalStatusPending {
			return nil
		}

		step, stale, err := a.staleStep(ctx, tx, record)
		if err != nil || stale {
			return err
		}

		if step.ReminderInterval == nil {
			return nil
		}

		now := a.now()
		if now.Sub(record.LastContact()) < models.Hours(*step.ReminderInterval) {
			return nil
		}

		bumped, err := tx.RecordReminder(ctx, record.ID, record.RemindersSent, now)
		if err != nil || !bumped {
			return err
		}

		reminded = true

		box.add(record.ApproverID, notification.KindApprovalReminder, map[string]any{
			"document_id":    record.DocumentID,
			"approval_id":    record.ID,
			"step_number":    step.StepNumber,
			"deadline":       record.Deadline,
			"reminders_sent": record.RemindersSent + 1,
		})

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return false, err
	}

	if reminded {
		a.flush(ctx, box)
	}

	return reminded, nil
}

// documentState loads everything the read projections need from committed state.
func (a *Approval) documentState(ctx context.Context, documentID string) (
	*models.Document,
	*models.Workflow,
	[]*models.ApprovalRecord,
	[]*models.StepResolution,
	error,
) {
	repo := a.persistence.ApprovalRepository()

	document, err := repo.DocumentByID(ctx, documentID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if !document.RequiresApproval() {
		return document, nil, nil, nil, nil
	}

	workflow, err := a.persistence.WorkflowRepository().GetByID(ctx, *document.WorkflowID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	records, err := repo.ApprovalsByDocument(ctx, documentID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	resolutions, err := repo.StepResolutions(ctx, documentID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return document, workflow, records, resolutions, nil
}

// CurrentApprovalStep locates the active step of a document.
func (a *Approval) CurrentApprovalStep(ctx context.Context, documentID string) (*models.StepCursor, error) {
	document, workflow, _, resolutions, err := a.documentState(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return &models.StepCursor{Complete: document.Status == models.DocumentStatusApproved}, nil
	}

	cursor := locateStep(workflow, resolutions)

	return &cursor, nil
}

// IsApprovalRequired reports whether the document is bound to a workflow.
func (a *Approval) IsApprovalRequired(ctx context.Context, documentID string) (bool, error) {
	document, err := a.persistence.ApprovalRepository().DocumentByID(ctx, documentID)
	if err != nil {
		return false, err
	}

	return document.RequiresApproval(), nil
}

// CanBeApprovedBy reports whether the user holds a PENDING record on the active step.
func (a *Approval) CanBeApprovedBy(ctx context.Context, documentID, userID string) (bool, error) {
	document, workflow, records, resolutions, err := a.documentState(ctx, documentID)
	if err != nil {
		return false, err
	}

	if workflow == nil || document.Status != models.DocumentStatusPending {
		return false, nil
	}

	cursor := locateStep(workflow, resolutions)
	if cursor.Step == nil {
		return false, nil
	}

	return slices.ContainsFunc(records, func(r *models.ApprovalRecord) bool {
		return r.ApproverID == userID &&
			r.WorkflowStepID == cursor.Step.ID &&
			r.Status == models.ApprovalStatusPending
	}), nil
}

// WorkflowStatus projects the approval progress of a document.
func (a *Approval) WorkflowStatus(ctx context.Context, documentID string) (*models.WorkflowStatusView, error) {
	document, workflow, records, resolutions, err := a.documentState(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return buildStatusView(document, workflow, records, resolutions, a.now()), nil
}
