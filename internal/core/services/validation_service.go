package services

import (
	"context"
	"log"
	"math"
	"sort"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/adapters/persistence/repositories"
	"leadflow/internal/core/domain"

	"gorm.io/gorm"
)

// Validation result statuses
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusWarning = "warning"
)

// ValidationResult is the per-rule evaluation outcome. Computed fresh
// on every request, never persisted or cached.
type ValidationResult struct {
	RuleID          uint   `json:"rule_id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status"`
	Severity        string `json:"severity"`
	Message         string `json:"message,omitempty"`
	SuggestedAction string `json:"suggested_action,omitempty"`
	ActionURL       string `json:"action_url,omitempty"`
}

// ValidationSummary aggregates a batch of results
type ValidationSummary struct {
	Total            int  `json:"total"`
	Passed           int  `json:"passed"`
	Warnings         int  `json:"warnings"`
	Failed           int  `json:"failed"`
	PassedPercentage int  `json:"passed_percentage"`
	CanProceed       bool `json:"can_proceed"`
}

// ValidationService evaluates validation rules against leads
type ValidationService struct {
	ruleRepo  repositories.RuleStore
	leadRepo  repositories.LeadStore
	docRepo   repositories.DocumentStore
	evaluator *ConditionEvaluator
}

// NewValidationService creates a new validation service
func NewValidationService(
	ruleRepo repositories.RuleStore,
	leadRepo repositories.LeadStore,
	docRepo repositories.DocumentStore,
	evaluator *ConditionEvaluator,
) *ValidationService {
	return &ValidationService{
		ruleRepo:  ruleRepo,
		leadRepo:  leadRepo,
		docRepo:   docRepo,
		evaluator: evaluator,
	}
}

// EvaluateRule evaluates a single rule. A panic while evaluating is
// contained to this rule: the result degrades to a warning and the rest
// of the batch proceeds.
func (s *ValidationService) EvaluateRule(rule *models.ValidationRule, leadData map[string]interface{}, documents []models.LeadDocument) (result ValidationResult) {
	result = ValidationResult{
		RuleID:      rule.ID,
		Name:        rule.Name,
		Description: rule.Description,
		Severity:    rule.Severity,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ Rule %d (%s) evaluation panicked: %v", rule.ID, rule.Name, r)
			result.Status = StatusWarning
			result.Message = "Rule could not be evaluated"
		}
	}()

	cond, err := ParseCondition(rule.Condition)
	if err != nil {
		log.Printf("⚠️ Rule %d (%s) has a malformed condition: %v", rule.ID, rule.Name, err)
		result.Status = StatusWarning
		result.Message = "Rule could not be evaluated"
		return result
	}

	if s.evaluator.Evaluate(cond, leadData, documents) {
		result.Status = StatusPassed
		result.Message = rule.OnPassMessage
		return result
	}

	if rule.Severity == models.SeverityError {
		result.Status = StatusFailed
	} else {
		result.Status = StatusWarning
	}
	result.Message = rule.OnFailMessage
	result.SuggestedAction = rule.SuggestedAction
	result.ActionURL = rule.ActionURL
	return result
}

// EvaluateAll evaluates the enabled rules in ascending rule order
func (s *ValidationService) EvaluateAll(rules []*models.ValidationRule, leadData map[string]interface{}, documents []models.LeadDocument) []ValidationResult {
	enabled := make([]*models.ValidationRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].RuleOrder < enabled[j].RuleOrder
	})

	results := make([]ValidationResult, 0, len(enabled))
	for _, rule := range enabled {
		results = append(results, s.EvaluateRule(rule, leadData, documents))
	}
	return results
}

// Summarize aggregates results. Warnings never block; only a failed
// result flips CanProceed.
func (s *ValidationService) Summarize(results []ValidationResult) ValidationSummary {
	summary := ValidationSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			summary.Passed++
		case StatusWarning:
			summary.Warnings++
		case StatusFailed:
			summary.Failed++
		}
	}
	if summary.Total > 0 {
		summary.PassedPercentage = int(math.Round(float64(summary.Passed) / float64(summary.Total) * 100))
	}
	summary.CanProceed = summary.Failed == 0
	return summary
}

// EvaluateLead loads a lead with its documents and evaluates every rule
// that applies to its current stage (global rules included)
func (s *ValidationService) EvaluateLead(ctx context.Context, tenantID, leadID uint) (*models.Lead, []ValidationResult, ValidationSummary, error) {
	lead, err := s.leadRepo.GetByID(ctx, tenantID, leadID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ValidationSummary{}, domain.ErrLeadNotFound
		}
		return nil, nil, ValidationSummary{}, err
	}

	documents, err := s.docRepo.ListByLead(ctx, lead.ID)
	if err != nil {
		return nil, nil, ValidationSummary{}, err
	}

	rules, err := s.ruleRepo.ListForStage(ctx, tenantID, lead.CurrentStageID)
	if err != nil {
		return nil, nil, ValidationSummary{}, err
	}

	results := s.EvaluateAll(rules, lead.DataMap(), documents)
	return lead, results, s.Summarize(results), nil
}
