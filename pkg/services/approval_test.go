package services

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dukex/docflow/pkg/directory"
	"github.com/dukex/docflow/pkg/mocks"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/notification"
	"github.com/dukex/docflow/pkg/persistence/file"
	"github.com/dukex/docflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fixture struct {
	engine   *Approval
	store    *file.Persistence
	notifier *mocks.RecordingGateway
	clock    *testClock
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testDirectory() *directory.Static {
	return directory.NewStatic([]directory.User{
		{ID: "alice", DesignationID: "finance", Active: true},
		{ID: "bob", DesignationID: "finance", Active: true},
		{ID: "carol", DesignationID: "finance", Active: true},
		{ID: "dave", DesignationID: "legal", Active: true},
		{ID: "erin", DesignationID: "directors", Active: true},
		{ID: "frank", DesignationID: "retired", Active: false},
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)}
	store := file.NewPersistence(t.TempDir())
	notifier := &mocks.RecordingGateway{}

	engine := NewApproval(store, testDirectory(), notifier,
		WithClock(clock.Now),
		WithLogger(testLogger()),
	)

	return &fixture{engine: engine, store: store, notifier: notifier, clock: clock}
}

func (f *fixture) saveWorkflow(t *testing.T, workflow *models.Workflow) *models.Workflow {
	t.Helper()

	require.NoError(t, workflow.Validate())
	require.NoError(t, f.store.WorkflowRepository().Save(t.Context(), workflow))

	return workflow
}

func (f *fixture) submit(t *testing.T, workflow *models.Workflow) string {
	t.Helper()

	documentID := "doc-" + workflow.ID

	view, err := f.engine.InitializeWorkflow(t.Context(), documentID, workflow.ID, "author")
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusPending, view.Status)

	return documentID
}

func (f *fixture) recordsOnStep(t *testing.T, documentID, stepID string) []*models.ApprovalRecord {
	t.Helper()

	records, err := f.store.ApprovalRepository().ApprovalsByDocument(t.Context(), documentID)
	require.NoError(t, err)

	onStep := make([]*models.ApprovalRecord, 0)

	for _, record := range records {
		if record.WorkflowStepID == stepID {
			onStep = append(onStep, record)
		}
	}

	return onStep
}

func (f *fixture) recordOf(t *testing.T, documentID, approverID string) *models.ApprovalRecord {
	t.Helper()

	records, err := f.store.ApprovalRepository().ApprovalsByDocument(t.Context(), documentID)
	require.NoError(t, err)

	for _, record := range records {
		if record.ApproverID == approverID {
			return record
		}
	}

	t.Fatalf("no record for %s on %s", approverID, documentID)

	return nil
}

func parallelOneStep(minApprovals int) *models.Workflow {
	return testutil.CreateTestWorkflow([]string{"finance"},
		testutil.WithStepOverrides(1, testutil.WithParallelQuorum(minApprovals)),
		func(w *models.Workflow) {
			w.Type = models.WorkflowTypeParallel
			w.MinApprovals = testutil.IntPtr(minApprovals)
		},
	)
}

func TestInitializeWorkflow_AssignsFirstStep(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"finance", "legal"},
		testutil.WithStepOverrides(1, testutil.WithDeadline(24)),
	))

	view, err := f.engine.InitializeWorkflow(t.Context(), "doc-1", workflow.ID, "author")
	require.NoError(t, err)

	assert.Equal(t, models.DocumentStatusPending, view.Status)
	require.NotNil(t, view.CurrentStep)
	assert.Equal(t, 1, view.CurrentStep.Number)
	require.Len(t, view.Approvals, 3)

	for _, approval := range view.Approvals {
		assert.Equal(t, models.ApprovalStatusPending, approval.Status)
		assert.Equal(t, 1, approval.Step.Number)
		require.NotNil(t, approval.Deadline)
		assert.Equal(t, f.clock.Now().Add(24*time.Hour), *approval.Deadline)
	}

	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, f.notifier.SentOfKind(notification.KindApprovalRequested))

	document, err := f.store.ApprovalRepository().DocumentByID(t.Context(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "author", document.CreatedBy)
	require.NotNil(t, document.SubmittedAt)
}

func TestInitializeWorkflow_WithoutWorkflowApprovesImmediately(t *testing.T) {
	f := newFixture(t)

	view, err := f.engine.InitializeWorkflow(t.Context(), "doc-1", "", "author")
	require.NoError(t, err)

	assert.Equal(t, models.DocumentStatusApproved, view.Status)
	assert.Empty(t, view.Approvals)
	assert.Nil(t, view.CurrentStep)

	required, err := f.engine.IsApprovalRequired(t.Context(), "doc-1")
	require.NoError(t, err)
	assert.False(t, required)

	cursor, err := f.engine.CurrentApprovalStep(t.Context(), "doc-1")
	require.NoError(t, err)
	assert.True(t, cursor.Complete)
}

func TestInitializeWorkflow_Errors(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"finance"}))

	_, err := f.engine.InitializeWorkflow(t.Context(), "doc-1", "missing", "author")
	require.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.True(t, IsNotFoundError(err))

	f.submit(t, workflow)

	_, err = f.engine.InitializeWorkflow(t.Context(), "doc-"+workflow.ID, workflow.ID, "author")
	require.ErrorIs(t, err, ErrDocumentAlreadySubmitted)
	assert.True(t, IsConflictError(err))

	_, err = f.engine.InitializeWorkflow(t.Context(), "", workflow.ID, "author")
	assert.True(t, IsValidationError(err))
}

func TestInitializeWorkflow_NoEligibleApproversRollsBack(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"retired"}))

	_, err := f.engine.InitializeWorkflow(t.Context(), "doc-1", workflow.ID, "author")
	require.ErrorIs(t, err, ErrNoEligibleApprovers)
	assert.True(t, IsUnprocessableError(err))

	_, err = f.store.ApprovalRepository().DocumentByID(t.Context(), "doc-1")
	require.ErrorIs(t, err, ErrDocumentNotFound)
	assert.Empty(t, f.notifier.Sent())
}

func TestProcessApproval_ScenarioParallelQuorum(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, parallelOneStep(2))
	documentID := f.submit(t, workflow)

	view, err := f.engine.ProcessApproval(t.Context(), documentID, "alice", models.ApprovalStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, view.Status)

	view, err = f.engine.ProcessApproval(t.Context(), documentID, "bob", models.ApprovalStatusApproved, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, view.Status)
	assert.Nil(t, view.CurrentStep)

	_, err = f.engine.ProcessApproval(t.Context(), documentID, "carol", models.ApprovalStatusApproved, "")
	require.ErrorIs(t, err, ErrStepAlreadyResolved)

	assert.Equal(t, models.ApprovalStatusPending, f.recordOf(t, documentID, "carol").Status)
	assert.Equal(t, []string{"author", "author"}, f.notifier.SentOfKind(notification.KindApprovalDecision))
}

func TestProcessApproval_ScenarioSequentialRejection(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"finance", "legal"}))
	documentID := f.submit(t, workflow)

	_, err := f.engine.ProcessApproval(t.Context(), documentID, "alice", models.ApprovalStatusApproved, "")
	require.NoError(t, err)

	view, err := f.engine.ProcessApproval(t.Context(), documentID, "bob", models.ApprovalStatusRejected, "amount is wrong")
	require.NoError(t, err)

	assert.Equal(t, models.DocumentStatusRejected, view.Status)
	assert.Empty(t, f.recordsOnStep(t, documentID, workflow.Steps[1].ID))

	cursor, err := f.engine.CurrentApprovalStep(t.Context(), documentID)
	require.NoError(t, err)
	assert.True(t, cursor.Halted)

	_, err = f.engine.ProcessApproval(t.Context(), documentID, "carol", models.ApprovalStatusApproved, "")
	require.ErrorIs(t, err, ErrStepAlreadyResolved)
}

func TestProcessApproval_ParallelRejectionShortCircuits(t *testing.T) {
	f := newFixture(t)
	workflow := testutil.CreateTestWorkflow([]string{"finance", "legal"},
		testutil.WithStepOverrides(1, testutil.WithParallelQuorum(2)),
	)
	f.saveWorkflow(t, workflow)
	documentID := f.submit(t, workflow)

	view, err := f.engine.ProcessApproval(t.Context(), documentID, "carol", models.ApprovalStatusRejected, "no budget")
	require.NoError(t, err)

	assert.Equal(t, models.DocumentStatusRejected, view.Status)
	assert.Empty(t, f.recordsOnStep(t, documentID, workflow.Steps[1].ID))
	assert.Equal(t, models.ApprovalStatusPending, f.recordOf(t, documentID, "alice").Status)
}

func TestProcessApproval_SequentialRequiresUnanimity(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"finance", "legal"}))
	documentID := f.submit(t, workflow)

	for _, approver := range []string{"carol", "alice"} {
		_, err := f.engine.ProcessApproval(t.Context(), documentID, approver, models.ApprovalStatusApproved, "")
		require.NoError(t, err)
	}

	assert.Empty(t, f.recordsOnStep(t, documentID, workflow.Steps[1].ID))

	cursor, err := f.engine.CurrentApprovalStep(t.Context(), documentID)
	require.NoError(t, err)
	require.NotNil(t, cursor.Step)
	assert.Equal(t, 1, cursor.Step.StepNumber)

	view, err := f.engine.ProcessApproval(t.Context(), documentID, "bob", models.ApprovalStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, view.Status)
	require.NotNil(t, view.CurrentStep)
	assert.Equal(t, 2, view.CurrentStep.Number)

	step2 := f.recordsOnStep(t, documentID, workflow.Steps[1].ID)
	require.Len(t, step2, 1)
	assert.Equal(t, "dave", step2[0].ApproverID)
	assert.Contains(t, f.notifier.SentOfKind(notification.KindApprovalRequested), "dave")

	canApprove, err := f.engine.CanBeApprovedBy(t.Context(), documentID, "dave")
	require.NoError(t, err)
	assert.True(t, canApprove)

	canApprove, err = f.engine.CanBeApprovedBy(t.Context(), documentID, "alice")
	require.NoError(t, err)
	assert.False(t, canApprove)

	view, err = f.engine.ProcessApproval(t.Context(), documentID, "dave", models.ApprovalStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, view.Status)

	cursor, err = f.engine.CurrentApprovalStep(t.Context(), documentID)
	require.NoError(t, err)
	assert.True(t, cursor.Complete)
}

func TestProcessApproval_CallerErrors(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"finance"}))
	documentID := f.submit(t, workflow)

	_, err := f.engine.ProcessApproval(t.Context(), documentID, "mallory", models.ApprovalStatusApproved, "")
	require.ErrorIs(t, err, ErrNoPendingApprovalForUser)

	_, err = f.engine.ProcessApproval(t.Context(), documentID, "alice", models.ApprovalStatusRejected, "   ")
	require.ErrorIs(t, err, ErrCommentsRequired)
	assert.True(t, IsValidationError(err))

	_, err = f.engine.ProcessApproval(t.Context(), documentID, "alice", models.ApprovalStatusPending, "")
	require.ErrorIs(t, err, ErrInvalidDecision)

	_, err = f.engine.ProcessApproval(t.Context(), documentID, "alice", "MAYBE", "")
	require.ErrorIs(t, err, ErrInvalidDecision)

	_, err = f.engine.ProcessApproval(t.Context(), "missing", "alice", models.ApprovalStatusApproved, "")
	require.ErrorIs(t, err, ErrDocumentNotFound)

	assert.Equal(t, models.ApprovalStatusPending, f.recordOf(t, documentID, "alice").Status)
}

func TestProcessApproval_SecondDecisionIsAlreadyProcessed(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"finance"}))
	documentID := f.submit(t, workflow)

	_, err := f.engine.ProcessApproval(t.Context(), documentID, "alice", models.ApprovalStatusApproved, "")
	require.NoError(t, err)

	before, err := f.store.ApprovalRepository().DocumentByID(t.Context(), documentID)
	require.NoError(t, err)

	_, err = f.engine.ProcessApproval(t.Context(), documentID, "alice", models.ApprovalStatusRejected, "changed my mind")
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.True(t, IsConflictError(err))

	after, err := f.store.ApprovalRepository().DocumentByID(t.Context(), documentID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, models.ApprovalStatusApproved, f.recordOf(t, documentID, "alice").Status)
}

func TestProcessApproval_ConcurrentQuorumAdvancesOnce(t *testing.T) {
	f := newFixture(t)
	workflow := testutil.CreateTestWorkflow([]string{"finance", "legal"},
		testutil.WithStepOverrides(1, testutil.WithParallelQuorum(2)),
	)
	f.saveWorkflow(t, workflow)
	documentID := f.submit(t, workflow)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		succeeded  int
		lateErrors int
	)

	for _, approver := range []string{"alice", "bob", "carol"} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.engine.ProcessApproval(t.Context(), documentID, approver, models.ApprovalStatusApproved, "")

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrStepAlreadyResolved):
				lateErrors++
			default:
				t.Errorf("unexpected error for %s: %v", approver, err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, lateErrors)
	assert.Len(t, f.recordsOnStep(t, documentID, workflow.Steps[1].ID), 1)

	resolutions, err := f.store.ApprovalRepository().StepResolutions(t.Context(), documentID)
	require.NoError(t, err)
	assert.Len(t, resolutions, 1)
}

func TestProcessApproval_NotificationFailureIsSwallowed(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)}
	store := file.NewPersistence(t.TempDir())

	gateway := &mocks.MockGateway{}
	gateway.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	engine := NewApproval(store, testDirectory(), gateway, WithClock(clock.Now), WithLogger(testLogger()))

	workflow := testutil.CreateTestWorkflow([]string{"legal"})
	require.NoError(t, store.WorkflowRepository().Save(t.Context(), workflow))

	_, err := engine.InitializeWorkflow(t.Context(), "doc-1", workflow.ID, "author")
	require.NoError(t, err)

	view, err := engine.ProcessApproval(t.Context(), "doc-1", "dave", models.ApprovalStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, view.Status)

	gateway.AssertNumberOfCalls(t, "Notify", 2)
}

func TestCheckEscalation_FiresOnce(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"legal"},
		testutil.WithStepOverrides(1, testutil.WithDeadline(72), testutil.WithEscalation(48, "directors")),
	))
	documentID := f.submit(t, workflow)
	original := f.recordOf(t, documentID, "dave")

	f.clock.Advance(47 * time.Hour)

	for range 3 {
		escalated, err := f.engine.CheckEscalation(t.Context(), original.ID)
		require.NoError(t, err)
		assert.False(t, escalated)
	}

	f.clock.Advance(2 * time.Hour)

	escalated, err := f.engine.CheckEscalation(t.Context(), original.ID)
	require.NoError(t, err)
	assert.True(t, escalated)

	for range 2 {
		escalated, err = f.engine.CheckEscalation(t.Context(), original.ID)
		require.NoError(t, err)
		assert.False(t, escalated)
	}

	records := f.recordsOnStep(t, documentID, workflow.Steps[0].ID)
	require.Len(t, records, 2)

	flagged := f.recordOf(t, documentID, "dave")
	assert.True(t, flagged.IsEscalated)
	assert.Equal(t, "erin", flagged.EscalatedTo)
	assert.Equal(t, models.ApprovalStatusPending, flagged.Status)

	extra := f.recordOf(t, documentID, "erin")
	assert.Equal(t, models.ApprovalStatusPending, extra.Status)
	assert.Equal(t, original.Deadline, extra.Deadline)
	assert.False(t, extra.IsEscalated)

	assert.Equal(t, []string{"erin"}, f.notifier.SentOfKind(notification.KindApprovalEscalated))

	// The escalation target can decide; SEQUENTIAL still waits for the original approver.
	view, err := f.engine.ProcessApproval(t.Context(), documentID, "erin", models.ApprovalStatusApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, view.Status)
}

func TestCheckEscalation_NoTargetIsRetriedLater(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"legal"},
		testutil.WithStepOverrides(1, testutil.WithEscalation(1, "retired")),
	))
	documentID := f.submit(t, workflow)
	record := f.recordOf(t, documentID, "dave")

	f.clock.Advance(2 * time.Hour)

	escalated, err := f.engine.CheckEscalation(t.Context(), record.ID)
	require.NoError(t, err)
	assert.False(t, escalated)
	assert.False(t, f.recordOf(t, documentID, "dave").IsEscalated)
}

func TestCheckEscalation_NoOpCases(t *testing.T) {
	f := newFixture(t)
	withoutPolicy := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"legal"}))
	documentID := f.submit(t, withoutPolicy)
	record := f.recordOf(t, documentID, "dave")

	f.clock.Advance(1000 * time.Hour)

	escalated, err := f.engine.CheckEscalation(t.Context(), record.ID)
	require.NoError(t, err)
	assert.False(t, escalated)

	resolved := f.saveWorkflow(t, parallelOneStep(1))
	resolvedDoc := f.submit(t, resolved)

	_, err = f.engine.ProcessApproval(t.Context(), resolvedDoc, "alice", models.ApprovalStatusApproved, "")
	require.NoError(t, err)

	orphan := f.recordOf(t, resolvedDoc, "bob")

	escalated, err = f.engine.CheckEscalation(t.Context(), orphan.ID)
	require.NoError(t, err)
	assert.False(t, escalated)

	_, err = f.engine.CheckEscalation(t.Context(), "missing")
	require.ErrorIs(t, err, ErrApprovalNotFound)
}

func TestEscalationTarget(t *testing.T) {
	assigned := []*models.ApprovalRecord{{ApproverID: "dave"}, {ApproverID: "erin"}}

	target, already := escalationTarget([]string{"zoe", "erin", "dave"}, assigned)
	assert.Equal(t, "zoe", target)
	assert.False(t, already)

	target, already = escalationTarget([]string{"erin", "dave"}, assigned)
	assert.Equal(t, "dave", target)
	assert.True(t, already)
}

func TestSendReminder_Cadence(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"legal"},
		testutil.WithStepOverrides(1, testutil.WithReminderInterval(12)),
	))
	documentID := f.submit(t, workflow)
	record := f.recordOf(t, documentID, "dave")

	steps := []struct {
		advance  time.Duration
		reminded bool
		count    int
	}{
		{advance: 6 * time.Hour, reminded: false, count: 0},
		{advance: 6 * time.Hour, reminded: true, count: 1},
		{advance: 0, reminded: false, count: 1},
		{advance: 11 * time.Hour, reminded: false, count: 1},
		{advance: time.Hour, reminded: true, count: 2},
	}

	for i, step := range steps {
		f.clock.Advance(step.advance)

		reminded, err := f.engine.SendReminder(t.Context(), record.ID)
		require.NoError(t, err)
		assert.Equal(t, step.reminded, reminded, "call %d", i)
		assert.Equal(t, step.count, f.recordOf(t, documentID, "dave").RemindersSent, "call %d", i)
	}

	assert.Equal(t, []string{"dave", "dave"}, f.notifier.SentOfKind(notification.KindApprovalReminder))

	stored := f.recordOf(t, documentID, "dave")
	require.NotNil(t, stored.LastReminderSent)
	assert.Equal(t, f.clock.Now(), *stored.LastReminderSent)
}

func TestSendReminder_NoOpCases(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"legal"}))
	documentID := f.submit(t, workflow)
	record := f.recordOf(t, documentID, "dave")

	f.clock.Advance(1000 * time.Hour)

	reminded, err := f.engine.SendReminder(t.Context(), record.ID)
	require.NoError(t, err)
	assert.False(t, reminded)

	withInterval := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"legal"},
		testutil.WithStepOverrides(1, testutil.WithReminderInterval(1)),
	))
	decidedDoc := f.submit(t, withInterval)

	_, err = f.engine.ProcessApproval(t.Context(), decidedDoc, "dave", models.ApprovalStatusApproved, "")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	reminded, err = f.engine.SendReminder(t.Context(), f.recordOf(t, decidedDoc, "dave").ID)
	require.NoError(t, err)
	assert.False(t, reminded)
	assert.Empty(t, f.notifier.SentOfKind(notification.KindApprovalReminder))
}

func TestWorkflowStatus_Projection(t *testing.T) {
	f := newFixture(t)
	workflow := f.saveWorkflow(t, testutil.CreateTestWorkflow([]string{"finance", "legal"},
		testutil.WithStepOverrides(1, testutil.WithParallelQuorum(1)),
		testutil.WithMaxDuration(48),
	))
	documentID := f.submit(t, workflow)

	_, err := f.engine.ProcessApproval(t.Context(), documentID, "alice", models.ApprovalStatusApproved, "fine")
	require.NoError(t, err)

	view, err := f.engine.WorkflowStatus(t.Context(), documentID)
	require.NoError(t, err)

	assert.Equal(t, documentID, view.DocumentID)
	require.NotNil(t, view.CurrentStep)
	assert.Equal(t, 2, view.CurrentStep.Number)
	assert.Len(t, view.Approvals, 4)
	require.NotNil(t, view.SLADueAt)
	assert.Equal(t, f.clock.Now().Add(48*time.Hour), *view.SLADueAt)
	assert.False(t, view.Overdue)

	var alice models.ApprovalView

	for _, approval := range view.Approvals {
		if approval.Approver == "alice" {
			alice = approval
		}
	}

	assert.Equal(t, models.ApprovalStatusApproved, alice.Status)
	assert.Equal(t, "fine", alice.Comments)
	assert.Equal(t, models.ApprovalTypeParallel, alice.Step.ApprovalType)
	require.NotNil(t, alice.ApprovedAt)

	f.clock.Advance(49 * time.Hour)

	view, err = f.engine.WorkflowStatus(t.Context(), documentID)
	require.NoError(t, err)
	assert.True(t, view.Overdue)

	_, err = f.engine.WorkflowStatus(t.Context(), "missing")
	require.ErrorIs(t, err, ErrDocumentNotFound)
}
