package repositories

import (
	"context"

	"leadflow/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// StageRepository handles pipeline stage data access
type StageRepository struct {
	db *gorm.DB
}

// NewStageRepository creates a new stage repository
func NewStageRepository(db *gorm.DB) *StageRepository {
	return &StageRepository{db: db}
}

// ListActive lists active stages for a tenant ordered by stage_order.
// Callers get the authoritative stage graph at call time; nothing is cached.
func (r *StageRepository) ListActive(ctx context.Context, tenantID uint) ([]*models.PipelineStage, error) {
	var stages []*models.PipelineStage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("stage_order ASC").
		Find(&stages).Error
	return stages, err
}

// ListAll lists all stages for a tenant including inactive
func (r *StageRepository) ListAll(ctx context.Context, tenantID uint) ([]*models.PipelineStage, error) {
	var stages []*models.PipelineStage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("stage_order ASC").
		Find(&stages).Error
	return stages, err
}

// GetByID gets a stage by ID, scoped to the tenant
func (r *StageRepository) GetByID(ctx context.Context, tenantID, id uint) (*models.PipelineStage, error) {
	var stage models.PipelineStage
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&stage, id).Error
	return &stage, err
}

// Create creates a new stage
func (r *StageRepository) Create(ctx context.Context, stage *models.PipelineStage) error {
	return r.db.WithContext(ctx).Create(stage).Error
}

// Update updates a stage
func (r *StageRepository) Update(ctx context.Context, stage *models.PipelineStage) error {
	return r.db.WithContext(ctx).Save(stage).Error
}

// Delete soft deletes a stage
func (r *StageRepository) Delete(ctx context.Context, tenantID, id uint) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.PipelineStage{}, id).Error
}

// RuleRepository handles validation rule data access
type RuleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListForStage lists enabled rules that apply to a stage: global rules
// (pipeline_stage_id IS NULL) plus the stage's own, ordered by rule_order.
func (r *RuleRepository) ListForStage(ctx context.Context, tenantID uint, stageID *uint) ([]*models.ValidationRule, error) {
	var rules []*models.ValidationRule
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true)
	if stageID != nil {
		query = query.Where("pipeline_stage_id IS NULL OR pipeline_stage_id = ?", *stageID)
	} else {
		query = query.Where("pipeline_stage_id IS NULL")
	}
	err := query.Order("rule_order ASC").Find(&rules).Error
	return rules, err
}

// ListAll lists all rules for a tenant including disabled
func (r *RuleRepository) ListAll(ctx context.Context, tenantID uint) ([]*models.ValidationRule, error) {
	var rules []*models.ValidationRule
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("rule_order ASC").
		Find(&rules).Error
	return rules, err
}

// GetByID gets a rule by ID, scoped to the tenant
func (r *RuleRepository) GetByID(ctx context.Context, tenantID, id uint) (*models.ValidationRule, error) {
	var rule models.ValidationRule
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&rule, id).Error
	return &rule, err
}

// Create creates a new rule
func (r *RuleRepository) Create(ctx context.Context, rule *models.ValidationRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// Update updates a rule
func (r *RuleRepository) Update(ctx context.Context, rule *models.ValidationRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// Delete soft deletes a rule
func (r *RuleRepository) Delete(ctx context.Context, tenantID, id uint) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.ValidationRule{}, id).Error
}
