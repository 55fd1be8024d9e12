package repositories

import (
	"context"

	"leadflow/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// TeamRepository handles team data access
type TeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create creates a new team
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

// GetByID gets a team by ID with members and stages, scoped to the tenant
func (r *TeamRepository) GetByID(ctx context.Context, tenantID, id uint) (*models.Team, error) {
	var team models.Team
	err := r.db.WithContext(ctx).
		Preload("Members.User").
		Preload("Stages").
		Where("tenant_id = ?", tenantID).
		First(&team, id).Error
	return &team, err
}

// List lists teams for a tenant
func (r *TeamRepository) List(ctx context.Context, tenantID uint) ([]*models.Team, error) {
	var teams []*models.Team
	err := r.db.WithContext(ctx).
		Preload("Members.User").
		Preload("Stages").
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&teams).Error
	return teams, err
}

// Update updates a team
func (r *TeamRepository) Update(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Save(team).Error
}

// Delete soft deletes a team
func (r *TeamRepository) Delete(ctx context.Context, tenantID, id uint) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&models.Team{}, id).Error
}

// AddMember adds a user to a team
func (r *TeamRepository) AddMember(ctx context.Context, member *models.TeamMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// RemoveMember removes a user from a team
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMember{}).Error
}

// SetStages replaces the set of stages a team works on
func (r *TeamRepository) SetStages(ctx context.Context, teamID uint, stageIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", teamID).
			Delete(&models.TeamStage{}).Error; err != nil {
			return err
		}
		for _, stageID := range stageIDs {
			ts := models.TeamStage{TeamID: teamID, PipelineStageID: stageID}
			if err := tx.Create(&ts).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// StageIDsForUser returns the pipeline stage IDs the user's active teams
// are authorized to act on. Used to filter the transitions a user may fire.
func (r *TeamRepository) StageIDsForUser(ctx context.Context, tenantID, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.TeamStage{}).
		Joins("JOIN team_members ON team_members.team_id = team_stages.team_id").
		Joins("JOIN teams ON teams.id = team_stages.team_id").
		Where("team_members.user_id = ? AND teams.tenant_id = ? AND teams.is_active = ? AND teams.deleted_at IS NULL",
			userID, tenantID, true).
		Distinct().
		Pluck("team_stages.pipeline_stage_id", &ids).Error
	return ids, err
}

// FirstTeamForStage returns the first active team authorized for the stage,
// or gorm.ErrRecordNotFound when no team covers it
func (r *TeamRepository) FirstTeamForStage(ctx context.Context, tenantID, stageID uint) (*models.Team, error) {
	var team models.Team
	err := r.db.WithContext(ctx).
		Joins("JOIN team_stages ON team_stages.team_id = teams.id").
		Where("team_stages.pipeline_stage_id = ? AND teams.tenant_id = ? AND teams.is_active = ?",
			stageID, tenantID, true).
		Order("teams.id ASC").
		First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// MembersForStage returns members of active teams authorized for the stage
func (r *TeamRepository) MembersForStage(ctx context.Context, tenantID, stageID uint) ([]*models.TeamMember, error) {
	var members []*models.TeamMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN team_stages ON team_stages.team_id = team_members.team_id").
		Joins("JOIN teams ON teams.id = team_members.team_id").
		Where("team_stages.pipeline_stage_id = ? AND teams.tenant_id = ? AND teams.is_active = ? AND teams.deleted_at IS NULL",
			stageID, tenantID, true).
		Find(&members).Error
	return members, err
}
