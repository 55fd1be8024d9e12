package services

import (
	"testing"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLeadData() map[string]interface{} {
	return map[string]interface{}{
		"name":            "Jane Borrower",
		"email":           "jane@example.com",
		"phone":           "+66 81-234-5678",
		"status":          "active",
		"monthlyIncome":   float64(5000),
		"totalDebt":       float64(30000),
		"collateralValue": float64(250000),
		"requestedAmount": float64(200000),
		"employer": map[string]interface{}{
			"name": "Acme Co",
		},
	}
}

func TestConditionEvaluator_LeafOperators(t *testing.T) {
	evaluator := NewConditionEvaluator()
	data := sampleLeadData()

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"isNotEmpty on present field", Condition{Field: "name", Operator: OpIsNotEmpty}, true},
		{"isNotEmpty on missing field", Condition{Field: "nickname", Operator: OpIsNotEmpty}, false},
		{"isEmpty on missing field", Condition{Field: "nickname", Operator: OpIsEmpty}, true},
		{"equals string case-insensitive", Condition{Field: "status", Operator: OpEquals, Value: "ACTIVE"}, true},
		{"equals on missing field is false", Condition{Field: "nickname", Operator: OpEquals, Value: ""}, false},
		{"notEquals", Condition{Field: "status", Operator: OpNotEquals, Value: "closed"}, true},
		{"equals numeric string vs number", Condition{Field: "monthlyIncome", Operator: OpEquals, Value: "5000"}, true},
		{"greaterThan true", Condition{Field: "monthlyIncome", Operator: OpGreaterThan, Value: float64(4000)}, true},
		{"greaterThan false on equal", Condition{Field: "monthlyIncome", Operator: OpGreaterThan, Value: float64(5000)}, false},
		{"greaterThanOrEqual on equal", Condition{Field: "monthlyIncome", Operator: OpGreaterThanOrEqual, Value: float64(5000)}, true},
		{"lessThan", Condition{Field: "monthlyIncome", Operator: OpLessThan, Value: float64(6000)}, true},
		{"lessThanOrEqual false", Condition{Field: "monthlyIncome", Operator: OpLessThanOrEqual, Value: float64(4000)}, false},
		{"numeric compare on non-number is false", Condition{Field: "name", Operator: OpGreaterThan, Value: float64(1)}, false},
		{"contains case-insensitive", Condition{Field: "name", Operator: OpContains, Value: "BORROWER"}, true},
		{"startsWith", Condition{Field: "email", Operator: OpStartsWith, Value: "jane@"}, true},
		{"endsWith", Condition{Field: "email", Operator: OpEndsWith, Value: ".com"}, true},
		{"isValidEmail true", Condition{Field: "email", Operator: OpIsValidEmail}, true},
		{"isValidEmail false", Condition{Field: "name", Operator: OpIsValidEmail}, false},
		{"isValidPhone true", Condition{Field: "phone", Operator: OpIsValidPhone}, true},
		{"isValidPhone false", Condition{Field: "email", Operator: OpIsValidPhone}, false},
		{"matchesPattern", Condition{Field: "email", Operator: OpMatchesPattern, Value: `@example\.com$`}, true},
		{"matchesPattern invalid regex is false", Condition{Field: "email", Operator: OpMatchesPattern, Value: `([`}, false},
		{"dot path into nested map", Condition{Field: "employer.name", Operator: OpEquals, Value: "acme co"}, true},
		{"dot path through non-map is missing", Condition{Field: "name.first", Operator: OpIsEmpty}, true},
		{"unknown operator is false", Condition{Field: "name", Operator: "between"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluator.Evaluate(&tt.cond, data, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditionEvaluator_ComputedFields(t *testing.T) {
	evaluator := NewConditionEvaluator()

	t.Run("debt to income ratio", func(t *testing.T) {
		// 30000 / (5000 * 12) = 0.5
		data := sampleLeadData()
		cond := &Condition{Field: FieldDebtToIncomeRatio, Operator: OpLessThanOrEqual, Value: 0.4}
		assert.False(t, evaluator.Evaluate(cond, data, nil))

		cond.Value = 0.5
		assert.True(t, evaluator.Evaluate(cond, data, nil))
	})

	t.Run("collateral ratio", func(t *testing.T) {
		// 250000 / 200000 = 1.25
		data := sampleLeadData()
		cond := &Condition{Field: FieldCollateralRatio, Operator: OpGreaterThanOrEqual, Value: float64(1)}
		assert.True(t, evaluator.Evaluate(cond, data, nil))
	})

	t.Run("zero income fails the condition regardless of operator", func(t *testing.T) {
		data := sampleLeadData()
		data["monthlyIncome"] = float64(0)

		for _, op := range []string{OpLessThan, OpGreaterThan, OpIsNotEmpty, OpIsEmpty} {
			cond := &Condition{Field: FieldDebtToIncomeRatio, Operator: op, Value: float64(1)}
			assert.False(t, evaluator.Evaluate(cond, data, nil), "operator %s", op)
		}
	})

	t.Run("zero requested amount fails collateral ratio", func(t *testing.T) {
		data := sampleLeadData()
		data["requestedAmount"] = float64(0)
		cond := &Condition{Field: FieldCollateralRatio, Operator: OpGreaterThan, Value: float64(0)}
		assert.False(t, evaluator.Evaluate(cond, data, nil))
	})

	t.Run("documents field counts attachments", func(t *testing.T) {
		docs := []models.LeadDocument{{Type: "id_card"}, {Type: "payslip"}}
		cond := &Condition{Field: FieldDocuments, Operator: OpGreaterThanOrEqual, Value: float64(2)}
		assert.True(t, evaluator.Evaluate(cond, sampleLeadData(), docs))
	})
}

func TestConditionEvaluator_DocumentOperators(t *testing.T) {
	evaluator := NewConditionEvaluator()
	data := sampleLeadData()

	docs := []models.LeadDocument{
		{Type: "id_card", Category: "identity", Status: models.DocStatusVerified},
		{Type: "payslip", Category: "income", Status: models.DocStatusSubmitted},
		{Type: "bank_statement", Category: "income", Status: models.DocStatusVerified},
	}

	tests := []struct {
		name string
		cond Condition
		docs []models.LeadDocument
		want bool
	}{
		{"hasMinimumCount met", Condition{Field: FieldDocuments, Operator: OpHasMinimumCount, Value: float64(3)}, docs, true},
		{"hasMinimumCount not met", Condition{Field: FieldDocuments, Operator: OpHasMinimumCount, Value: float64(4)}, docs, false},
		{"hasMaximumCount", Condition{Field: FieldDocuments, Operator: OpHasMaximumCount, Value: float64(3)}, docs, true},
		{"hasExactCount", Condition{Field: FieldDocuments, Operator: OpHasExactCount, Value: float64(3)}, docs, true},
		{"hasVerifiedDocuments", Condition{Field: FieldDocuments, Operator: OpHasVerifiedDocuments}, docs, true},
		{"hasVerifiedDocuments none", Condition{Field: FieldDocuments, Operator: OpHasVerifiedDocuments}, nil, false},
		{"allDocumentsVerified with pending doc", Condition{Field: FieldDocuments, Operator: OpAllDocumentsVerified}, docs, false},
		{"allDocumentsVerified empty list is false", Condition{Field: FieldDocuments, Operator: OpAllDocumentsVerified}, nil, false},
		{"hasDocumentType by type", Condition{Field: FieldDocuments, Operator: OpHasDocumentType, Value: "id_card"}, docs, true},
		{"hasDocumentType by category", Condition{Field: FieldDocuments, Operator: OpHasDocumentType, Value: "income"}, docs, true},
		{"hasDocumentType missing", Condition{Field: FieldDocuments, Operator: OpHasDocumentType, Value: "appraisal"}, docs, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluator.Evaluate(&tt.cond, data, tt.docs)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("allDocumentsVerified when every doc verified", func(t *testing.T) {
		verified := []models.LeadDocument{
			{Type: "id_card", Status: models.DocStatusVerified},
			{Type: "payslip", Status: models.DocStatusVerified},
		}
		cond := &Condition{Field: FieldDocuments, Operator: OpAllDocumentsVerified}
		assert.True(t, evaluator.Evaluate(cond, data, verified))
	})
}

func TestConditionEvaluator_CompositeTrees(t *testing.T) {
	evaluator := NewConditionEvaluator()
	data := sampleLeadData()

	t.Run("and requires every child", func(t *testing.T) {
		cond := &Condition{
			Operator: OpAnd,
			Conditions: []Condition{
				{Field: "name", Operator: OpIsNotEmpty},
				{Field: "email", Operator: OpIsValidEmail},
			},
		}
		assert.True(t, evaluator.Evaluate(cond, data, nil))

		cond.Conditions = append(cond.Conditions, Condition{Field: "nickname", Operator: OpIsNotEmpty})
		assert.False(t, evaluator.Evaluate(cond, data, nil))
	})

	t.Run("or needs one child", func(t *testing.T) {
		cond := &Condition{
			Operator: OpOr,
			Conditions: []Condition{
				{Field: "nickname", Operator: OpIsNotEmpty},
				{Field: "email", Operator: OpIsValidEmail},
			},
		}
		assert.True(t, evaluator.Evaluate(cond, data, nil))
	})

	t.Run("nested groups", func(t *testing.T) {
		cond := &Condition{
			Operator: OpAnd,
			Conditions: []Condition{
				{Field: "status", Operator: OpEquals, Value: "active"},
				{
					Operator: OpOr,
					Conditions: []Condition{
						{Field: "monthlyIncome", Operator: OpGreaterThan, Value: float64(100000)},
						{Field: FieldCollateralRatio, Operator: OpGreaterThanOrEqual, Value: float64(1)},
					},
				},
			},
		}
		assert.True(t, evaluator.Evaluate(cond, data, nil))
	})
}

func TestParseCondition(t *testing.T) {
	t.Run("valid leaf", func(t *testing.T) {
		cond, err := ParseCondition(`{"field":"email","operator":"isValidEmail"}`)
		require.NoError(t, err)
		assert.False(t, cond.IsComposite())
		assert.Equal(t, "email", cond.Field)
	})

	t.Run("valid composite", func(t *testing.T) {
		cond, err := ParseCondition(`{
			"operator": "and",
			"conditions": [
				{"field": "name", "operator": "isNotEmpty"},
				{"field": "monthlyIncome", "operator": "greaterThan", "value": 0}
			]
		}`)
		require.NoError(t, err)
		assert.True(t, cond.IsComposite())
		assert.Len(t, cond.Conditions, 2)
	})

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"unknown operator", `{"field":"name","operator":"between","value":1}`},
		{"leaf without field", `{"operator":"equals","value":"x"}`},
		{"value-requiring operator without value", `{"field":"name","operator":"equals"}`},
		{"empty group", `{"operator":"and","conditions":[]}`},
		{"group with field", `{"field":"name","operator":"or","conditions":[{"field":"name","operator":"isNotEmpty"}]}`},
		{"leaf with nested conditions", `{"field":"name","operator":"isNotEmpty","conditions":[{"field":"x","operator":"isEmpty"}]}`},
		{"bad child in group", `{"operator":"and","conditions":[{"field":"name","operator":"wat"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCondition(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrRuleConditionInvalid)
		})
	}
}
