package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/lib/pq"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const selectWorkflow = `
	SELECT
		id
	  , name
	  , COALESCE(owner_scope, '')
	  , type
	  , min_approvals
	  , conditions
	  , max_duration
	  , created_at
	  , updated_at
	FROM workflows
`

// GetAll returns all workflows from the database, newest first.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, selectWorkflow+" ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		workflow.Steps, err = r.loadSteps(ctx, r.db, workflow.ID)
		if err != nil {
			return nil, err
		}
	}

	return workflows, nil
}

// GetByID returns a workflow with its steps, or ErrWorkflowNotFound.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.getByID(ctx, r.db, id)
}

func (r *WorkflowRepository) getByID(ctx context.Context, q queryer, id string) (*models.Workflow, error) {
	workflow, err := scanWorkflow(q.QueryRowContext(ctx, selectWorkflow+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	workflow.Steps, err = r.loadSteps(ctx, q, id)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// Save upserts a workflow and replaces its steps in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	var conditionsJSON []byte

	if workflow.Conditions != nil {
		var err error

		conditionsJSON, err = json.Marshal(workflow.Conditions)
		if err != nil {
			return fmt.Errorf("failed to marshal conditions: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, name, owner_scope, type, min_approvals, conditions, max_duration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			owner_scope = EXCLUDED.owner_scope,
			type = EXCLUDED.type,
			min_approvals = EXCLUDED.min_approvals,
			conditions = EXCLUDED.conditions,
			max_duration = EXCLUDED.max_duration,
			updated_at = EXCLUDED.updated_at
	`,
		workflow.ID,
		workflow.Name,
		workflow.OwnerScope,
		workflow.Type,
		workflow.MinApprovals,
		conditionsJSON,
		workflow.MaxDuration,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow base: %w", err)
	}

	stepIDs := make([]string, 0, len(workflow.Steps))

	for _, step := range workflow.Steps {
		step.WorkflowID = workflow.ID
		stepIDs = append(stepIDs, step.ID)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_steps (id, workflow_id, step_number, designation_id, is_mandatory, approval_type,
				min_approvals, deadline, reminder_interval, escalate_after, escalate_to_designation_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				step_number = EXCLUDED.step_number,
				designation_id = EXCLUDED.designation_id,
				is_mandatory = EXCLUDED.is_mandatory,
				approval_type = EXCLUDED.approval_type,
				min_approvals = EXCLUDED.min_approvals,
				deadline = EXCLUDED.deadline,
				reminder_interval = EXCLUDED.reminder_interval,
				escalate_after = EXCLUDED.escalate_after,
				escalate_to_designation_id = EXCLUDED.escalate_to_designation_id
		`,
			step.ID,
			step.WorkflowID,
			step.StepNumber,
			step.DesignationID,
			step.IsMandatory,
			step.ApprovalType,
			step.MinApprovals,
			step.Deadline,
			step.ReminderInterval,
			step.EscalateAfter,
			nullString(step.EscalateToDesignationID),
		)
		if err != nil {
			return fmt.Errorf("failed to save workflow step %d: %w", step.StepNumber, err)
		}
	}

	// Steps referenced by approvals stay; the FK makes removing them fail loudly.
	_, err = tx.ExecContext(ctx,
		"DELETE FROM workflow_steps WHERE workflow_id = $1 AND NOT (id = ANY($2))",
		workflow.ID, pq.Array(stepIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to prune workflow steps: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) loadSteps(ctx context.Context, q queryer, workflowID string) ([]*models.WorkflowStep, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT
			id
		  , workflow_id
		  , step_number
		  , designation_id
		  , is_mandatory
		  , approval_type
		  , min_approvals
		  , deadline
		  , reminder_interval
		  , escalate_after
		  , COALESCE(escalate_to_designation_id, '')
		FROM workflow_steps
		WHERE workflow_id = $1
		ORDER BY step_number
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow steps: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	steps := make([]*models.WorkflowStep, 0)

	for rows.Next() {
		step := &models.WorkflowStep{}

		err := rows.Scan(
			&step.ID,
			&step.WorkflowID,
			&step.StepNumber,
			&step.DesignationID,
			&step.IsMandatory,
			&step.ApprovalType,
			&step.MinApprovals,
			&step.Deadline,
			&step.ReminderInterval,
			&step.EscalateAfter,
			&step.EscalateToDesignationID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow step: %w", err)
		}

		steps = append(steps, step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow steps: %w", err)
	}

	return steps, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	workflow := &models.Workflow{}

	var conditionsJSON []byte

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.OwnerScope,
		&workflow.Type,
		&workflow.MinApprovals,
		&conditionsJSON,
		&workflow.MaxDuration,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(conditionsJSON) > 0 {
		err = json.Unmarshal(conditionsJSON, &workflow.Conditions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}

	return workflow, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
