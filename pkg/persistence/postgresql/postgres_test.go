package postgresql_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/persistence/postgresql"
	"github.com/dukex/docflow/pkg/testutil"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{
		"directory_users", "approval_step_resolutions", "document_approvals",
		"documents", "workflow_steps", "workflows", "schema_migrations",
	} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("docflow_test"),
			postgres.WithUsername("docflow"),
			postgres.WithPassword("docflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	persistence, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = persistence.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return persistence, ctx, databaseURL
}

// seedWorkflow stores a two step workflow and a PENDING document bound to it.
func seedWorkflow(ctx context.Context, t *testing.T, p *postgresql.Persistence) (*models.Workflow, *models.Document) {
	t.Helper()

	workflow := testutil.CreateTestWorkflow([]string{"finance", "legal"},
		testutil.WithStepOverrides(1, testutil.WithParallelQuorum(2), testutil.WithDeadline(24)),
		testutil.WithMaxDuration(72),
	)

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	document := testutil.CreateTestDocument(workflow.ID)
	document.Status = models.DocumentStatusPending

	err = p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.CreateDocument(ctx, document)
	})
	require.NoError(t, err)

	return workflow, document
}

func pendingRecord(document *models.Document, step *models.WorkflowStep, approver string) *models.ApprovalRecord {
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	return &models.ApprovalRecord{
		ID:             uuid.New().String(),
		DocumentID:     document.ID,
		WorkflowStepID: step.ID,
		ApproverID:     approver,
		Status:         models.ApprovalStatusPending,
		Deadline:       step.DeadlineFrom(createdAt),
		CreatedAt:      createdAt,
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"workflows", "workflow_steps", "documents", "document_approvals", "approval_step_resolutions", "directory_users"} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestWorkflowRepository_SaveAndRetrieve(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testutil.CreateTestWorkflow([]string{"finance", "legal"},
		testutil.WithStepOverrides(2, testutil.WithEscalation(48, "directors"), testutil.WithReminderInterval(12)),
		func(w *models.Workflow) {
			w.Type = models.WorkflowTypeConditional
			w.Conditions = map[string]any{"amount": map[string]any{"gt": float64(1000)}}
		},
	)

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	stored, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)

	assert.Equal(t, workflow.Name, stored.Name)
	assert.Equal(t, models.WorkflowTypeConditional, stored.Type)
	assert.Equal(t, workflow.Conditions, stored.Conditions)
	require.Len(t, stored.Steps, 2)
	assert.Equal(t, 1, stored.Steps[0].StepNumber)
	assert.Equal(t, "legal", stored.Steps[1].DesignationID)
	assert.Equal(t, "directors", stored.Steps[1].EscalateToDesignationID)
	require.NotNil(t, stored.Steps[1].EscalateAfter)
	assert.Equal(t, 48, *stored.Steps[1].EscalateAfter)
	assert.Nil(t, stored.Steps[0].Deadline)

	workflow.Name = "Renamed"
	workflow.Steps = workflow.Steps[:1]

	err = p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	all, err := p.WorkflowRepository().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Renamed", all[0].Name)
	assert.Len(t, all[0].Steps, 1)
}

func TestWorkflowRepository_GetByIDNotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.WorkflowRepository().GetByID(ctx, "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestTransact_RollsBackOnError(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	workflow, document := seedWorkflow(ctx, t, p)

	boom := errors.New("boom")

	err := p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		err := tx.InsertApprovals(ctx, pendingRecord(document, workflow.Steps[0], "alice"))
		if err != nil {
			return err
		}

		return boom
	})
	require.ErrorIs(t, err, boom)

	records, err := p.ApprovalRepository().ApprovalsByDocument(ctx, document.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTx_InsertApprovalsRejectsDuplicateTriple(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	workflow, document := seedWorkflow(ctx, t, p)

	err := p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.InsertApprovals(ctx,
			pendingRecord(document, workflow.Steps[0], "alice"),
			pendingRecord(document, workflow.Steps[0], "alice"),
		)
	})
	assert.True(t, persistence.IsDuplicateApproval(err))

	records, err := p.ApprovalRepository().ApprovalsByDocument(ctx, document.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTx_UpdateDocumentChecksVersion(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	_, document := seedWorkflow(ctx, t, p)

	err := p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		locked, err := tx.LockDocument(ctx, document.ID)
		if err != nil {
			return err
		}

		locked.Status = models.DocumentStatusApproved

		return tx.UpdateDocument(ctx, locked)
	})
	require.NoError(t, err)

	stale := *document
	stale.Status = models.DocumentStatusRejected

	err = p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.UpdateDocument(ctx, &stale)
	})
	require.ErrorIs(t, err, persistence.ErrConcurrentModification)

	stored, err := p.ApprovalRepository().DocumentByID(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, stored.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestTx_RecordDecisionAndResolveStepHappenOnce(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	workflow, document := seedWorkflow(ctx, t, p)
	record := pendingRecord(document, workflow.Steps[0], "alice")

	err := p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.InsertApprovals(ctx, record)
	})
	require.NoError(t, err)

	decide := func(ctx context.Context, tx persistence.Tx) error {
		now := time.Now().UTC()
		decided := *record
		decided.Status = models.ApprovalStatusApproved
		decided.ApprovedAt = &now

		err := tx.RecordDecision(ctx, &decided)
		if err != nil {
			return err
		}

		return tx.ResolveStep(ctx, &models.StepResolution{
			DocumentID:     document.ID,
			WorkflowStepID: workflow.Steps[0].ID,
			Outcome:        models.ApprovalStatusApproved,
			ResolvedBy:     record.ID,
			ResolvedAt:     now,
		})
	}

	require.NoError(t, p.Transact(ctx, decide))

	err = p.Transact(ctx, decide)
	require.ErrorIs(t, err, persistence.ErrApprovalNotPending)

	err = p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		err := tx.ResolveStep(ctx, &models.StepResolution{
			DocumentID:     document.ID,
			WorkflowStepID: workflow.Steps[0].ID,
			Outcome:        models.ApprovalStatusRejected,
			ResolvedBy:     record.ID,
			ResolvedAt:     time.Now().UTC(),
		})
		require.True(t, persistence.IsStepAlreadyResolved(err))

		// The clash must leave the transaction usable.
		resolution, err := tx.StepResolution(ctx, document.ID, workflow.Steps[0].ID)
		require.NoError(t, err)
		require.NotNil(t, resolution)
		assert.Equal(t, models.ApprovalStatusApproved, resolution.Outcome)

		return nil
	})
	require.NoError(t, err)

	stored, err := p.ApprovalRepository().ApprovalByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, stored.Status)
	assert.NotNil(t, stored.ApprovedAt)
}

func TestTx_MarkEscalatedAndRecordReminderAreConditional(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	workflow, document := seedWorkflow(ctx, t, p)
	record := pendingRecord(document, workflow.Steps[0], "alice")

	err := p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.InsertApprovals(ctx, record)
	})
	require.NoError(t, err)

	now := time.Now().UTC()

	err = p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		flipped, err := tx.MarkEscalated(ctx, record.ID, "dave", now)
		require.NoError(t, err)
		assert.True(t, flipped)

		flipped, err = tx.MarkEscalated(ctx, record.ID, "erin", now)
		require.NoError(t, err)
		assert.False(t, flipped)

		bumped, err := tx.RecordReminder(ctx, record.ID, 0, now)
		require.NoError(t, err)
		assert.True(t, bumped)

		bumped, err = tx.RecordReminder(ctx, record.ID, 0, now)
		require.NoError(t, err)
		assert.False(t, bumped)

		_, err = tx.MarkEscalated(ctx, "missing", "dave", now)
		assert.True(t, persistence.IsApprovalNotFound(err))

		return nil
	})
	require.NoError(t, err)

	stored, err := p.ApprovalRepository().ApprovalByID(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsEscalated)
	assert.Equal(t, "dave", stored.EscalatedTo)
	assert.Equal(t, 1, stored.RemindersSent)
	assert.NotNil(t, stored.LastReminderSent)
}

func TestTx_LockDocumentSerializesWriters(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	_, document := seedWorkflow(ctx, t, p)

	var (
		wg        sync.WaitGroup
		conflicts int
		mu        sync.Mutex
	)

	for range 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
				locked, err := tx.LockDocument(ctx, document.ID)
				if err != nil {
					return err
				}

				return tx.UpdateDocument(ctx, locked)
			})
			if err != nil {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Zero(t, conflicts)

	stored, err := p.ApprovalRepository().DocumentByID(ctx, document.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Version)
}

func TestApprovalRepository_PendingApprovalsPagesByID(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	workflow, document := seedWorkflow(ctx, t, p)

	err := p.Transact(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.InsertApprovals(ctx,
			pendingRecord(document, workflow.Steps[0], "alice"),
			pendingRecord(document, workflow.Steps[0], "bob"),
			pendingRecord(document, workflow.Steps[0], "carol"),
		)
	})
	require.NoError(t, err)

	first, err := p.ApprovalRepository().PendingApprovals(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Less(t, first[0].ID, first[1].ID)

	rest, err := p.ApprovalRepository().PendingApprovals(ctx, first[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Greater(t, rest[0].ID, first[1].ID)

	_, err = p.ApprovalRepository().DocumentByID(ctx, "missing")
	assert.True(t, persistence.IsDocumentNotFound(err))
}
