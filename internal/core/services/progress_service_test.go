package services

import (
	"context"
	"testing"
	"time"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProgressService(db *fakeDB) *ProgressService {
	validation := NewValidationService(db.ruleStore(), db.leadStore(), db.docStore(), NewConditionEvaluator())
	return NewProgressService(db.leadStore(), db.stageStore(), db.transitionStore(), db.teamStore(), validation)
}

func TestProgressService_GetProgress(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	db := newPipelineScenario(t)

	// Lead 101 was created 60h ago, entered New Lead 50h ago and
	// Qualification 10h ago
	db.leads[101].Email = "qualified@example.com"
	db.leads[101].CreatedAt = now.Add(-60 * time.Hour)
	db.transitions = []*models.StateTransition{
		{ID: 1, LeadID: 101, ToStageID: 1, Event: models.EventStageChanged, TriggeredBy: 7, TriggeredAt: now.Add(-50 * time.Hour)},
		{ID: 2, LeadID: 101, FromStageID: ptrUint(1), ToStageID: 2, Event: models.EventStageChanged, TriggeredBy: 7, TriggeredAt: now.Add(-10 * time.Hour)},
	}

	db.rules = []*models.ValidationRule{
		{ID: 1, TenantID: testTenantID, Name: "Email required", Severity: models.SeverityError, Enabled: true, Condition: `{"field":"email","operator":"isValidEmail"}`},
	}

	db.members[2] = []*models.TeamMember{
		{UserID: 7, User: &models.User{ID: 7, Username: "agent7", FullName: "Agent Seven"}},
		{UserID: 42, User: nil},
	}

	svc := newTestProgressService(db)
	svc.now = func() time.Time { return now }

	progress, err := svc.GetProgress(ctx, testTenantID, 101)
	require.NoError(t, err)

	assert.Equal(t, 60, progress.TotalTime)
	assert.Equal(t, 10, progress.TimeInCurrentStage)

	require.NotNil(t, progress.CurrentStage)
	assert.Equal(t, uint(2), progress.CurrentStage.ID)
	require.NotNil(t, progress.CurrentStageSLA)
	assert.Equal(t, 48, progress.CurrentStageSLA.SLAHours)
	assert.Equal(t, 10, progress.CurrentStageSLA.HoursElapsed)
	assert.Equal(t, SLAStatusNormal, progress.CurrentStageSLA.Status)

	require.Len(t, progress.TeamMembers, 1, "members without a loaded user are skipped")
	assert.Equal(t, "agent7", progress.TeamMembers[0].Username)

	require.Len(t, progress.Validations, 1)
	assert.Equal(t, StatusPassed, progress.Validations[0].Status)
	assert.True(t, progress.Summary.CanProceed)

	// Active stages in pipeline order
	require.Len(t, progress.StageTimes, 5)

	byStage := make(map[uint]StageTime, len(progress.StageTimes))
	for _, st := range progress.StageTimes {
		byStage[st.StageID] = st
	}

	newLead := byStage[1]
	assert.Equal(t, 40, newLead.Hours)
	assert.Equal(t, StageStatusCompleted, newLead.Status)
	assert.Equal(t, SLAStatusOverdue, newLead.SLAStatus, "40h in a 24h stage")

	qualification := byStage[2]
	assert.Equal(t, 10, qualification.Hours)
	assert.Equal(t, StageStatusInProgress, qualification.Status)
	assert.Equal(t, SLAStatusNormal, qualification.SLAStatus)

	approval := byStage[3]
	assert.Equal(t, 0, approval.Hours)
	assert.Equal(t, StageStatusPending, approval.Status)
	assert.Equal(t, SLAStatusNormal, approval.SLAStatus)
}

func TestProgressService_GetProgress_NeverMoved(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	db := newPipelineScenario(t)
	db.leads[100].CreatedAt = now.Add(-5 * time.Hour)

	svc := newTestProgressService(db)
	svc.now = func() time.Time { return now }

	progress, err := svc.GetProgress(ctx, testTenantID, 100)
	require.NoError(t, err)

	assert.Equal(t, 5, progress.TotalTime)
	assert.Equal(t, 5, progress.TimeInCurrentStage, "counts from creation when the lead never moved")
	assert.Nil(t, progress.CurrentStage)
	assert.Nil(t, progress.CurrentStageSLA)
	assert.Empty(t, progress.TeamMembers)

	for _, st := range progress.StageTimes {
		assert.Equal(t, StageStatusPending, st.Status)
		assert.Equal(t, 0, st.Hours)
	}
}

func TestProgressService_GetProgress_RevisitsAccumulate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	db := newPipelineScenario(t)
	stage1 := uint(1)
	db.leads[101].CurrentStageID = &stage1
	db.leads[101].CreatedAt = now.Add(-40 * time.Hour)

	// 1 for 10h, 2 for 20h, then back to 1 for the last 6h
	db.transitions = []*models.StateTransition{
		{ID: 1, LeadID: 101, ToStageID: 1, TriggeredBy: 7, TriggeredAt: now.Add(-36 * time.Hour)},
		{ID: 2, LeadID: 101, FromStageID: ptrUint(1), ToStageID: 2, TriggeredBy: 7, TriggeredAt: now.Add(-26 * time.Hour)},
		{ID: 3, LeadID: 101, FromStageID: ptrUint(2), ToStageID: 1, TriggeredBy: 7, TriggeredAt: now.Add(-6 * time.Hour)},
	}

	svc := newTestProgressService(db)
	svc.now = func() time.Time { return now }

	progress, err := svc.GetProgress(ctx, testTenantID, 101)
	require.NoError(t, err)

	byStage := make(map[uint]StageTime, len(progress.StageTimes))
	for _, st := range progress.StageTimes {
		byStage[st.StageID] = st
	}

	assert.Equal(t, 16, byStage[1].Hours, "both visits count")
	assert.Equal(t, StageStatusInProgress, byStage[1].Status)
	assert.Equal(t, 20, byStage[2].Hours)
	assert.Equal(t, StageStatusCompleted, byStage[2].Status)
}

func TestProgressService_GetProgress_UnknownLead(t *testing.T) {
	db := newPipelineScenario(t)
	svc := newTestProgressService(db)

	_, err := svc.GetProgress(context.Background(), testTenantID, 999)
	assert.ErrorIs(t, err, domain.ErrLeadNotFound)
}

func TestSLAStatus(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  int
		sla      int
		expected string
	}{
		{"untracked stage", 500, 0, SLAStatusNormal},
		{"well within window", 10, 48, SLAStatusNormal},
		{"at 80 percent exactly", 38, 48, SLAStatusNormal},
		{"past 80 percent", 39, 48, SLAStatusAtRisk},
		{"at the window edge", 48, 48, SLAStatusAtRisk},
		{"past the window", 49, 48, SLAStatusOverdue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, slaStatus(tt.elapsed, tt.sla))
		})
	}
}

func ptrUint(v uint) *uint { return &v }
