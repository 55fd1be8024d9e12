package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/adapters/persistence/repositories"
	"leadflow/internal/core/domain"

	"gorm.io/gorm"
)

// PipelineService administers stage and rule configuration
type PipelineService struct {
	stageRepo repositories.StageStore
	ruleRepo  repositories.RuleStore
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(stageRepo repositories.StageStore, ruleRepo repositories.RuleStore) *PipelineService {
	return &PipelineService{
		stageRepo: stageRepo,
		ruleRepo:  ruleRepo,
	}
}

// ListStages returns the active stage graph in pipeline order
func (s *PipelineService) ListStages(ctx context.Context, tenantID uint) ([]*models.PipelineStage, error) {
	return s.stageRepo.ListActive(ctx, tenantID)
}

// ListAllStages returns every stage, inactive included
func (s *PipelineService) ListAllStages(ctx context.Context, tenantID uint) ([]*models.PipelineStage, error) {
	return s.stageRepo.ListAll(ctx, tenantID)
}

// GetStage gets a stage by ID
func (s *PipelineService) GetStage(ctx context.Context, tenantID, id uint) (*models.PipelineStage, error) {
	stage, err := s.stageRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStageNotFound
		}
		return nil, err
	}
	return stage, nil
}

// StageInput represents stage create/update input
type StageInput struct {
	Name               string `json:"name" validate:"required"`
	Description        string `json:"description,omitempty"`
	Color              string `json:"color,omitempty"`
	StageOrder         int    `json:"stage_order"`
	IsInitial          bool   `json:"is_initial"`
	IsFinal            bool   `json:"is_final"`
	IsActive           bool   `json:"is_active"`
	SLAHours           int    `json:"sla_hours"`
	AllowedTransitions []uint `json:"allowed_transitions"`
}

// validateStageInput enforces the stage configuration invariants.
// A final stage must not declare outgoing transitions, and every target
// on the allow-list must be a stage of the same tenant.
func (s *PipelineService) validateStageInput(ctx context.Context, tenantID uint, input *StageInput, selfID uint) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if input.IsFinal && len(input.AllowedTransitions) > 0 {
		return domain.ErrFinalStageTransitions
	}

	if len(input.AllowedTransitions) == 0 {
		return nil
	}

	stages, err := s.stageRepo.ListAll(ctx, tenantID)
	if err != nil {
		return err
	}
	known := make(map[uint]bool, len(stages))
	for _, stage := range stages {
		known[stage.ID] = true
	}
	if selfID != 0 {
		known[selfID] = true
	}
	for _, target := range input.AllowedTransitions {
		if !known[target] {
			return fmt.Errorf("%w: transition target %d is not a stage of this tenant", domain.ErrValidation, target)
		}
	}
	return nil
}

// CreateStage creates a stage
func (s *PipelineService) CreateStage(ctx context.Context, tenantID uint, input *StageInput) (*models.PipelineStage, error) {
	if err := s.validateStageInput(ctx, tenantID, input, 0); err != nil {
		return nil, err
	}

	stage := &models.PipelineStage{
		TenantID:    tenantID,
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
		StageOrder:  input.StageOrder,
		IsInitial:   input.IsInitial,
		IsFinal:     input.IsFinal,
		IsActive:    input.IsActive,
		SLAHours:    input.SLAHours,
	}
	if err := stage.SetAllowedStageIDs(input.AllowedTransitions); err != nil {
		return nil, err
	}

	if err := s.stageRepo.Create(ctx, stage); err != nil {
		return nil, err
	}
	return stage, nil
}

// UpdateStage replaces a stage's configuration
func (s *PipelineService) UpdateStage(ctx context.Context, tenantID, id uint, input *StageInput) (*models.PipelineStage, error) {
	stage, err := s.GetStage(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateStageInput(ctx, tenantID, input, id); err != nil {
		return nil, err
	}

	stage.Name = input.Name
	stage.Description = input.Description
	stage.Color = input.Color
	stage.StageOrder = input.StageOrder
	stage.IsInitial = input.IsInitial
	stage.IsFinal = input.IsFinal
	stage.IsActive = input.IsActive
	stage.SLAHours = input.SLAHours
	if err := stage.SetAllowedStageIDs(input.AllowedTransitions); err != nil {
		return nil, err
	}

	if err := s.stageRepo.Update(ctx, stage); err != nil {
		return nil, err
	}
	return stage, nil
}

// DeleteStage soft deletes a stage
func (s *PipelineService) DeleteStage(ctx context.Context, tenantID, id uint) error {
	if _, err := s.GetStage(ctx, tenantID, id); err != nil {
		return err
	}
	return s.stageRepo.Delete(ctx, tenantID, id)
}

// RuleInput represents rule create/update input
type RuleInput struct {
	PipelineStageID *uint           `json:"pipeline_stage_id,omitempty"`
	Name            string          `json:"name" validate:"required"`
	Description     string          `json:"description,omitempty"`
	Severity        string          `json:"severity"`
	Enabled         bool            `json:"enabled"`
	RuleOrder       int             `json:"rule_order"`
	Condition       json.RawMessage `json:"condition" validate:"required"`
	OnPassMessage   string          `json:"on_pass_message,omitempty"`
	OnFailMessage   string          `json:"on_fail_message,omitempty"`
	SuggestedAction string          `json:"suggested_action,omitempty"`
	ActionURL       string          `json:"action_url,omitempty"`
}

// validateRuleInput rejects malformed rules at configuration time so
// the evaluator only ever sees well-formed trees
func (s *PipelineService) validateRuleInput(ctx context.Context, tenantID uint, input *RuleInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	switch input.Severity {
	case models.SeverityInfo, models.SeverityWarning, models.SeverityError:
	default:
		return fmt.Errorf("%w: invalid severity %q", domain.ErrValidation, input.Severity)
	}
	if _, err := ParseCondition(string(input.Condition)); err != nil {
		return err
	}
	if input.PipelineStageID != nil {
		if _, err := s.GetStage(ctx, tenantID, *input.PipelineStageID); err != nil {
			return err
		}
	}
	return nil
}

// ListRules lists all rules for a tenant
func (s *PipelineService) ListRules(ctx context.Context, tenantID uint) ([]*models.ValidationRule, error) {
	return s.ruleRepo.ListAll(ctx, tenantID)
}

// GetRule gets a rule by ID
func (s *PipelineService) GetRule(ctx context.Context, tenantID, id uint) (*models.ValidationRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rule, nil
}

// CreateRule creates a rule
func (s *PipelineService) CreateRule(ctx context.Context, tenantID uint, input *RuleInput) (*models.ValidationRule, error) {
	if err := s.validateRuleInput(ctx, tenantID, input); err != nil {
		return nil, err
	}

	rule := &models.ValidationRule{
		TenantID:        tenantID,
		PipelineStageID: input.PipelineStageID,
		Name:            input.Name,
		Description:     input.Description,
		Severity:        input.Severity,
		Enabled:         input.Enabled,
		RuleOrder:       input.RuleOrder,
		Condition:       string(input.Condition),
		OnPassMessage:   input.OnPassMessage,
		OnFailMessage:   input.OnFailMessage,
		SuggestedAction: input.SuggestedAction,
		ActionURL:       input.ActionURL,
	}
	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule replaces a rule's configuration
func (s *PipelineService) UpdateRule(ctx context.Context, tenantID, id uint, input *RuleInput) (*models.ValidationRule, error) {
	rule, err := s.GetRule(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateRuleInput(ctx, tenantID, input); err != nil {
		return nil, err
	}

	rule.PipelineStageID = input.PipelineStageID
	rule.Name = input.Name
	rule.Description = input.Description
	rule.Severity = input.Severity
	rule.Enabled = input.Enabled
	rule.RuleOrder = input.RuleOrder
	rule.Condition = string(input.Condition)
	rule.OnPassMessage = input.OnPassMessage
	rule.OnFailMessage = input.OnFailMessage
	rule.SuggestedAction = input.SuggestedAction
	rule.ActionURL = input.ActionURL

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule soft deletes a rule
func (s *PipelineService) DeleteRule(ctx context.Context, tenantID, id uint) error {
	if _, err := s.GetRule(ctx, tenantID, id); err != nil {
		return err
	}
	return s.ruleRepo.Delete(ctx, tenantID, id)
}
