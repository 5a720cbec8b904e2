package services

import (
	"testing"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence/file"
	"github.com/dukex/docflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefinitions(t *testing.T) {
	persistence := file.NewPersistence(t.TempDir())
	service := NewDefinitions(persistence)

	assert.NotNil(t, service)
	assert.Equal(t, persistence, service.persistence)
}

func TestDefinitions_HealthCheck(t *testing.T) {
	message, ok := NewDefinitions(file.NewPersistence(t.TempDir())).HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	message, ok = NewDefinitions(nil).HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Equal(t, "Persistence layer not initialized", message)
}

func TestDefinitions_Create(t *testing.T) {
	service := NewDefinitions(file.NewPersistence(t.TempDir()))

	workflow := &models.Workflow{
		Name:       "Purchase orders",
		OwnerScope: "acme",
		Type:       models.WorkflowTypeSequential,
		Steps: []*models.WorkflowStep{
			{StepNumber: 2, DesignationID: "legal", IsMandatory: true},
			{StepNumber: 1, DesignationID: "finance", IsMandatory: true, ApprovalType: models.ApprovalTypeParallel, MinApprovals: testutil.IntPtr(2)},
		},
	}

	created, err := service.Create(t.Context(), workflow)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	for _, step := range created.Steps {
		assert.NotEmpty(t, step.ID)
		assert.Equal(t, created.ID, step.WorkflowID)
	}

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Steps, 2)
	assert.Equal(t, models.ApprovalTypeSequential, fetched.StepByNumber(2).ApprovalType)
	assert.Equal(t, models.ApprovalTypeParallel, fetched.StepByNumber(1).ApprovalType)
	assert.Equal(t, 2, *fetched.StepByNumber(1).MinApprovals)
}

func TestDefinitions_CreateRejectsInvalidDefinitions(t *testing.T) {
	service := NewDefinitions(file.NewPersistence(t.TempDir()))

	tests := []struct {
		name     string
		workflow *models.Workflow
	}{
		{name: "nil workflow"},
		{
			name:     "short name",
			workflow: &models.Workflow{Name: "PO", Type: models.WorkflowTypeSequential},
		},
		{
			name:     "parallel without min approvals",
			workflow: &models.Workflow{Name: "Contracts", Type: models.WorkflowTypeParallel},
		},
		{
			name: "gap in step numbers",
			workflow: &models.Workflow{
				Name: "Contracts",
				Type: models.WorkflowTypeSequential,
				Steps: []*models.WorkflowStep{
					{StepNumber: 1, DesignationID: "finance"},
					{StepNumber: 3, DesignationID: "legal"},
				},
			},
		},
		{
			name: "escalation without designation",
			workflow: &models.Workflow{
				Name: "Contracts",
				Type: models.WorkflowTypeSequential,
				Steps: []*models.WorkflowStep{
					{StepNumber: 1, DesignationID: "finance", EscalateAfter: testutil.IntPtr(24)},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(t.Context(), tt.workflow)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}

	workflows, err := service.List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestDefinitions_FetchByIDNotFound(t *testing.T) {
	service := NewDefinitions(file.NewPersistence(t.TempDir()))

	_, err := service.FetchByID(t.Context(), "missing")
	require.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.True(t, IsNotFoundError(err))
}

func TestDefinitions_ListFiltersByOwnerScope(t *testing.T) {
	persistence := file.NewPersistence(t.TempDir())
	service := NewDefinitions(persistence)

	acme := testutil.CreateTestWorkflow([]string{"finance"}, func(w *models.Workflow) { w.OwnerScope = "acme" })
	globex := testutil.CreateTestWorkflow([]string{"legal"}, func(w *models.Workflow) { w.OwnerScope = "globex" })

	for _, workflow := range []*models.Workflow{acme, globex} {
		require.NoError(t, persistence.WorkflowRepository().Save(t.Context(), workflow))
	}

	all, err := service.List(t.Context(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := service.List(t.Context(), "acme")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, acme.ID, scoped[0].ID)
}
