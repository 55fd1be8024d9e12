package services

import (
	"testing"

	"leadflow/internal/adapters/persistence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidationService() *ValidationService {
	return NewValidationService(nil, nil, nil, NewConditionEvaluator())
}

func TestValidationService_EvaluateRule(t *testing.T) {
	svc := newTestValidationService()
	data := sampleLeadData()

	t.Run("passing rule carries the pass message", func(t *testing.T) {
		rule := &models.ValidationRule{
			ID:            1,
			Name:          "Email required",
			Severity:      models.SeverityError,
			Condition:     `{"field":"email","operator":"isValidEmail"}`,
			OnPassMessage: "Email looks good",
			OnFailMessage: "Add a valid email",
		}

		result := svc.EvaluateRule(rule, data, nil)
		assert.Equal(t, StatusPassed, result.Status)
		assert.Equal(t, "Email looks good", result.Message)
		assert.Empty(t, result.SuggestedAction)
	})

	t.Run("failing error rule is failed", func(t *testing.T) {
		rule := &models.ValidationRule{
			ID:              2,
			Name:            "DTI ceiling",
			Severity:        models.SeverityError,
			Condition:       `{"field":"debtToIncomeRatio","operator":"lessThanOrEqual","value":0.4}`,
			OnFailMessage:   "Debt-to-income ratio too high",
			SuggestedAction: "Reduce requested amount",
			ActionURL:       "/leads/edit",
		}

		result := svc.EvaluateRule(rule, data, nil)
		assert.Equal(t, StatusFailed, result.Status)
		assert.Equal(t, "Debt-to-income ratio too high", result.Message)
		assert.Equal(t, "Reduce requested amount", result.SuggestedAction)
		assert.Equal(t, "/leads/edit", result.ActionURL)
	})

	t.Run("failing warning rule stays a warning", func(t *testing.T) {
		rule := &models.ValidationRule{
			ID:        3,
			Name:      "Phone recommended",
			Severity:  models.SeverityWarning,
			Condition: `{"field":"missingField","operator":"isNotEmpty"}`,
		}

		result := svc.EvaluateRule(rule, data, nil)
		assert.Equal(t, StatusWarning, result.Status)
	})

	t.Run("failing info rule stays a warning", func(t *testing.T) {
		rule := &models.ValidationRule{
			ID:        4,
			Name:      "Nice to have",
			Severity:  models.SeverityInfo,
			Condition: `{"field":"missingField","operator":"isNotEmpty"}`,
		}

		result := svc.EvaluateRule(rule, data, nil)
		assert.Equal(t, StatusWarning, result.Status)
	})

	t.Run("malformed condition degrades to a warning", func(t *testing.T) {
		rule := &models.ValidationRule{
			ID:        5,
			Name:      "Broken rule",
			Severity:  models.SeverityError,
			Condition: `{"operator":"and","conditions":[]}`,
		}

		result := svc.EvaluateRule(rule, data, nil)
		assert.Equal(t, StatusWarning, result.Status)
		assert.Equal(t, "Rule could not be evaluated", result.Message)
	})

	t.Run("evaluation is repeatable", func(t *testing.T) {
		rule := &models.ValidationRule{
			ID:        6,
			Name:      "Collateral coverage",
			Severity:  models.SeverityError,
			Condition: `{"field":"collateralRatio","operator":"greaterThanOrEqual","value":1}`,
		}

		first := svc.EvaluateRule(rule, data, nil)
		second := svc.EvaluateRule(rule, data, nil)
		assert.Equal(t, first, second)
	})
}

func TestValidationService_EvaluateAll(t *testing.T) {
	svc := newTestValidationService()
	data := sampleLeadData()

	rules := []*models.ValidationRule{
		{ID: 10, Name: "Third", Enabled: true, RuleOrder: 30, Severity: models.SeverityWarning, Condition: `{"field":"name","operator":"isNotEmpty"}`},
		{ID: 11, Name: "First", Enabled: true, RuleOrder: 10, Severity: models.SeverityError, Condition: `{"field":"email","operator":"isValidEmail"}`},
		{ID: 12, Name: "Disabled", Enabled: false, RuleOrder: 5, Severity: models.SeverityError, Condition: `{"field":"name","operator":"isNotEmpty"}`},
		{ID: 13, Name: "Second", Enabled: true, RuleOrder: 20, Severity: models.SeverityError, Condition: `{"field":"debtToIncomeRatio","operator":"lessThanOrEqual","value":0.4}`},
	}

	results := svc.EvaluateAll(rules, data, nil)
	require.Len(t, results, 3)
	assert.Equal(t, "First", results[0].Name)
	assert.Equal(t, "Second", results[1].Name)
	assert.Equal(t, "Third", results[2].Name)

	assert.Equal(t, StatusPassed, results[0].Status)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Equal(t, StatusPassed, results[2].Status)
}

func TestValidationService_Summarize(t *testing.T) {
	svc := newTestValidationService()

	t.Run("counts and percentage", func(t *testing.T) {
		results := []ValidationResult{
			{Status: StatusPassed},
			{Status: StatusPassed},
			{Status: StatusWarning},
			{Status: StatusFailed},
		}

		summary := svc.Summarize(results)
		assert.Equal(t, 4, summary.Total)
		assert.Equal(t, 2, summary.Passed)
		assert.Equal(t, 1, summary.Warnings)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 50, summary.PassedPercentage)
		assert.False(t, summary.CanProceed)
	})

	t.Run("warnings never block", func(t *testing.T) {
		results := []ValidationResult{
			{Status: StatusPassed},
			{Status: StatusWarning},
			{Status: StatusWarning},
		}

		summary := svc.Summarize(results)
		assert.True(t, summary.CanProceed)
		assert.Equal(t, 33, summary.PassedPercentage)
	})

	t.Run("empty batch", func(t *testing.T) {
		summary := svc.Summarize(nil)
		assert.Equal(t, 0, summary.Total)
		assert.Equal(t, 0, summary.PassedPercentage)
		assert.True(t, summary.CanProceed)
	})
}
