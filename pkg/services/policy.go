package services

import (
	"time"

	"github.com/dukex/docflow/pkg/models"
)

// evaluateStep applies the quorum rule of the step to every record assigned on it.
// A single rejection completes any step. PARALLEL steps complete on MinApprovals
// approvals (all assigned records when unset); SEQUENTIAL steps need every record
// approved, in any order.
func evaluateStep(step *models.WorkflowStep, records []*models.ApprovalRecord) (bool, models.StepOutcome) {
	var approved int

	for _, record := range records {
		switch record.Status {
		case models.ApprovalStatusRejected:
			return true, models.ApprovalStatusRejected
		case models.ApprovalStatusApproved:
			approved++
		case models.ApprovalStatusPending:
		}
	}

	if len(records) == 0 {
		return false, models.ApprovalStatusPending
	}

	required := len(records)
	if step.ApprovalType == models.ApprovalTypeParallel && step.MinApprovals != nil {
		required = *step.MinApprovals
	}

	if approved >= required {
		return true, models.ApprovalStatusApproved
	}

	return false, models.ApprovalStatusPending
}

// locateStep walks the chain in step order and stops at the first step without an
// APPROVED resolution. Such a step has no records yet or still has PENDING ones.
func locateStep(workflow *models.Workflow, resolutions []*models.StepResolution) models.StepCursor {
	outcomes := make(map[string]models.StepOutcome, len(resolutions))
	for _, resolution := range resolutions {
		outcomes[resolution.WorkflowStepID] = resolution.Outcome
	}

	for _, step := range workflow.SortedSteps() {
		switch outcomes[step.ID] {
		case models.ApprovalStatusApproved:
			continue
		case models.ApprovalStatusRejected:
			return models.StepCursor{Halted: true}
		case models.ApprovalStatusPending:
		}

		return models.StepCursor{Step: step}
	}

	return models.StepCursor{Complete: true}
}

func buildStatusView(
	document *models.Document,
	workflow *models.Workflow,
	records []*models.ApprovalRecord,
	resolutions []*models.StepResolution,
	now time.Time,
) *models.WorkflowStatusView {
	view := &models.WorkflowStatusView{
		DocumentID: document.ID,
		Status:     document.Status,
		Approvals:  make([]models.ApprovalView, 0, len(records)),
	}

	if workflow == nil {
		return view
	}

	if document.Status == models.DocumentStatusPending {
		cursor := locateStep(workflow, resolutions)
		if cursor.Step != nil {
			view.CurrentStep = stepRef(cursor.Step)
		}
	}

	for _, record := range records {
		approval := models.ApprovalView{
			ID:            record.ID,
			Status:        record.Status,
			Comments:      record.Comments,
			ApprovedAt:    record.ApprovedAt,
			Deadline:      record.Deadline,
			Approver:      record.ApproverID,
			IsEscalated:   record.IsEscalated,
			EscalatedTo:   record.EscalatedTo,
			RemindersSent: record.RemindersSent,
		}

		if step := workflow.StepByID(record.WorkflowStepID); step != nil {
			approval.Step = *stepRef(step)
		}

		view.Approvals = append(view.Approvals, approval)
	}

	if workflow.MaxDuration != nil && document.SubmittedAt != nil {
		due := document.SubmittedAt.Add(models.Hours(*workflow.MaxDuration))
		view.SLADueAt = &due
		view.Overdue = document.Status == models.DocumentStatusPending && now.After(due)
	}

	return view
}

func stepRef(step *models.WorkflowStep) *models.StepRef {
	return &models.StepRef{
		ID:           step.ID,
		Number:       step.StepNumber,
		ApprovalType: step.ApprovalType,
	}
}
