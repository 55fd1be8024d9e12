package repositories

import (
	"context"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeadRepository handles lead data access
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create creates a new lead
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// GetByID gets a lead by ID with relations, scoped to the tenant
func (r *LeadRepository) GetByID(ctx context.Context, tenantID, id uint) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.WithContext(ctx).
		Preload("CurrentStage").
		Preload("AssignedTeam").
		Preload("Creator").
		Where("tenant_id = ?", tenantID).
		First(&lead, id).Error
	return &lead, err
}

// List lists leads for a tenant with pagination and optional filters
func (r *LeadRepository) List(ctx context.Context, tenantID uint, filter LeadFilter) ([]*models.Lead, int64, error) {
	var leads []*models.Lead
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Lead{}).Where("tenant_id = ?", tenantID)
	if filter.StageID != nil {
		query = query.Where("current_stage_id = ?", *filter.StageID)
	}
	if filter.TeamID != nil {
		query = query.Where("assigned_team_id = ?", *filter.TeamID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("CurrentStage").
		Preload("AssignedTeam").
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&leads).Error

	return leads, total, err
}

// Update updates a lead
func (r *LeadRepository) Update(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Save(lead).Error
}

// Delete soft deletes a lead
func (r *LeadRepository) Delete(ctx context.Context, tenantID, id uint) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.Lead{}, id).Error
}

// ApplyTransition performs the stage pointer update and the audit insert in
// one transaction. The lead row is locked and its current stage compared
// against the stage observed at authorization time; a mismatch aborts with
// domain.ErrStageConflict and nothing is written.
func (r *LeadRepository) ApplyTransition(ctx context.Context, tenantID uint, input ApplyTransitionInput) (*models.Lead, *models.StateTransition, error) {
	var lead models.Lead
	var transition *models.StateTransition

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ?", tenantID).
			First(&lead, input.LeadID).Error; err != nil {
			return err
		}

		if !sameStagePtr(lead.CurrentStageID, input.ExpectedStageID) {
			return domain.ErrStageConflict
		}

		toStage := input.ToStageID
		lead.CurrentStageID = &toStage
		if input.AssignTeamID != nil {
			lead.AssignedTeamID = input.AssignTeamID
		}
		if lead.Status == models.LeadStatusDraft {
			lead.Status = models.LeadStatusActive
		}
		if err := tx.Save(&lead).Error; err != nil {
			return err
		}

		transition = &models.StateTransition{
			LeadID:      lead.ID,
			FromStageID: input.ExpectedStageID,
			ToStageID:   input.ToStageID,
			Event:       input.Event,
			Context:     input.Context,
			TriggeredBy: input.TriggeredBy,
			TriggeredAt: input.TriggeredAt,
		}
		return tx.Create(transition).Error
	})

	if err != nil {
		return nil, nil, err
	}
	return &lead, transition, nil
}

func sameStagePtr(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// TransitionRepository handles transition audit data access
type TransitionRepository struct {
	db *gorm.DB
}

// NewTransitionRepository creates a new transition repository
func NewTransitionRepository(db *gorm.DB) *TransitionRepository {
	return &TransitionRepository{db: db}
}

// ListByLead gets transitions for a lead, newest first (history display)
func (r *TransitionRepository) ListByLead(ctx context.Context, leadID uint) ([]*models.StateTransition, error) {
	var transitions []*models.StateTransition
	err := r.db.WithContext(ctx).
		Preload("FromStage").
		Preload("ToStage").
		Preload("Actor").
		Where("lead_id = ?", leadID).
		Order("triggered_at DESC").
		Find(&transitions).Error
	return transitions, err
}

// ListByLeadAsc gets transitions for a lead in chronological order
func (r *TransitionRepository) ListByLeadAsc(ctx context.Context, leadID uint) ([]*models.StateTransition, error) {
	var transitions []*models.StateTransition
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("triggered_at ASC").
		Find(&transitions).Error
	return transitions, err
}

// DocumentRepository handles lead document data access
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// ListByLead lists documents attached to a lead
func (r *DocumentRepository) ListByLead(ctx context.Context, leadID uint) ([]models.LeadDocument, error) {
	var docs []models.LeadDocument
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at ASC").
		Find(&docs).Error
	return docs, err
}

// GetByID gets a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*models.LeadDocument, error) {
	var doc models.LeadDocument
	err := r.db.WithContext(ctx).First(&doc, id).Error
	return &doc, err
}

// Create creates a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *models.LeadDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// Update updates a document
func (r *DocumentRepository) Update(ctx context.Context, doc *models.LeadDocument) error {
	return r.db.WithContext(ctx).Save(doc).Error
}
