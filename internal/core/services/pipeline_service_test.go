package services

import (
	"context"
	"encoding/json"
	"testing"

	"leadflow/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipelineService(db *fakeDB) *PipelineService {
	return NewPipelineService(db.stageStore(), db.ruleStore())
}

func TestPipelineService_CreateStage(t *testing.T) {
	ctx := context.Background()

	t.Run("valid stage", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		stage, err := svc.CreateStage(ctx, testTenantID, &StageInput{
			Name:               "Second Review",
			StageOrder:         7,
			IsActive:           true,
			SLAHours:           24,
			AllowedTransitions: []uint{4, 5},
		})
		require.NoError(t, err)
		assert.NotZero(t, stage.ID)
		assert.ElementsMatch(t, []uint{4, 5}, stage.AllowedStageIDs())
	})

	t.Run("name is required", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		_, err := svc.CreateStage(ctx, testTenantID, &StageInput{IsActive: true})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("final stage must not declare transitions", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		_, err := svc.CreateStage(ctx, testTenantID, &StageInput{
			Name:               "Closed Won",
			IsFinal:            true,
			IsActive:           true,
			AllowedTransitions: []uint{1},
		})
		assert.ErrorIs(t, err, domain.ErrFinalStageTransitions)
	})

	t.Run("transition target must belong to the tenant", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		_, err := svc.CreateStage(ctx, testTenantID, &StageInput{
			Name:               "Review",
			IsActive:           true,
			AllowedTransitions: []uint{999},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestPipelineService_UpdateStage(t *testing.T) {
	ctx := context.Background()

	t.Run("stage may list itself on update", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		stage, err := svc.UpdateStage(ctx, testTenantID, 2, &StageInput{
			Name:               "Qualification",
			StageOrder:         2,
			IsActive:           true,
			SLAHours:           48,
			AllowedTransitions: []uint{2, 3, 5},
		})
		require.NoError(t, err)
		assert.Contains(t, stage.AllowedStageIDs(), uint(2))
	})

	t.Run("demoting to final clears nothing implicitly", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		_, err := svc.UpdateStage(ctx, testTenantID, 2, &StageInput{
			Name:               "Qualification",
			IsFinal:            true,
			IsActive:           true,
			AllowedTransitions: []uint{3},
		})
		assert.ErrorIs(t, err, domain.ErrFinalStageTransitions)
	})

	t.Run("unknown stage", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		_, err := svc.UpdateStage(ctx, testTenantID, 999, &StageInput{Name: "Ghost"})
		assert.ErrorIs(t, err, domain.ErrStageNotFound)
	})
}

func TestPipelineService_Rules(t *testing.T) {
	ctx := context.Background()

	validCondition := json.RawMessage(`{"field":"email","operator":"isValidEmail"}`)

	t.Run("valid rule", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		stageID := uint(2)
		rule, err := svc.CreateRule(ctx, testTenantID, &RuleInput{
			PipelineStageID: &stageID,
			Name:            "Email required",
			Severity:        "error",
			Enabled:         true,
			Condition:       validCondition,
		})
		require.NoError(t, err)
		assert.NotZero(t, rule.ID)
		assert.Equal(t, string(validCondition), rule.Condition)
	})

	t.Run("global rule needs no stage", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		rule, err := svc.CreateRule(ctx, testTenantID, &RuleInput{
			Name:      "Name required",
			Severity:  "warning",
			Enabled:   true,
			Condition: json.RawMessage(`{"field":"name","operator":"isNotEmpty"}`),
		})
		require.NoError(t, err)
		assert.Nil(t, rule.PipelineStageID)
	})

	t.Run("invalid severity", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		_, err := svc.CreateRule(ctx, testTenantID, &RuleInput{
			Name:      "Bad severity",
			Severity:  "critical",
			Condition: validCondition,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("malformed condition is rejected at save time", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		_, err := svc.CreateRule(ctx, testTenantID, &RuleInput{
			Name:      "Broken",
			Severity:  "error",
			Condition: json.RawMessage(`{"operator":"and","conditions":[]}`),
		})
		assert.ErrorIs(t, err, domain.ErrRuleConditionInvalid)
	})

	t.Run("rule bound to a foreign stage is rejected", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		stageID := uint(999)
		_, err := svc.CreateRule(ctx, testTenantID, &RuleInput{
			PipelineStageID: &stageID,
			Name:            "Orphan",
			Severity:        "error",
			Condition:       validCondition,
		})
		assert.ErrorIs(t, err, domain.ErrStageNotFound)
	})

	t.Run("update keeps validation", func(t *testing.T) {
		db := newPipelineScenario(t)
		svc := newTestPipelineService(db)

		rule, err := svc.CreateRule(ctx, testTenantID, &RuleInput{
			Name:      "Email required",
			Severity:  "error",
			Enabled:   true,
			Condition: validCondition,
		})
		require.NoError(t, err)

		_, err = svc.UpdateRule(ctx, testTenantID, rule.ID, &RuleInput{
			Name:      "Email required",
			Severity:  "error",
			Enabled:   true,
			Condition: json.RawMessage(`not json`),
		})
		assert.ErrorIs(t, err, domain.ErrRuleConditionInvalid)

		_, err = svc.UpdateRule(ctx, testTenantID, 999, &RuleInput{
			Name:      "Missing",
			Severity:  "error",
			Condition: validCondition,
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
