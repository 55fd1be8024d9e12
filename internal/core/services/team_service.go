package services

import (
	"context"
	"errors"
	"fmt"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/adapters/persistence/repositories"
	"leadflow/internal/core/domain"

	"gorm.io/gorm"
)

// TeamService handles team administration
type TeamService struct {
	teamRepo  *repositories.TeamRepository
	stageRepo repositories.StageStore
	userRepo  repositories.UserRepository
}

// NewTeamService creates a new team service
func NewTeamService(
	teamRepo *repositories.TeamRepository,
	stageRepo repositories.StageStore,
	userRepo repositories.UserRepository,
) *TeamService {
	return &TeamService{
		teamRepo:  teamRepo,
		stageRepo: stageRepo,
		userRepo:  userRepo,
	}
}

// TeamInput represents team create/update input
type TeamInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	StageIDs    []uint `json:"stage_ids,omitempty"`
}

// List lists teams for a tenant
func (s *TeamService) List(ctx context.Context, tenantID uint) ([]*models.Team, error) {
	return s.teamRepo.List(ctx, tenantID)
}

// GetByID gets a team by ID
func (s *TeamService) GetByID(ctx context.Context, tenantID, id uint) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return team, nil
}

// Create creates a team and assigns its stages
func (s *TeamService) Create(ctx context.Context, tenantID uint, input *TeamInput) (*models.Team, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if err := s.checkStages(ctx, tenantID, input.StageIDs); err != nil {
		return nil, err
	}

	team := &models.Team{
		TenantID:    tenantID,
		Name:        input.Name,
		Description: input.Description,
		IsActive:    input.IsActive,
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, err
	}

	if len(input.StageIDs) > 0 {
		if err := s.teamRepo.SetStages(ctx, team.ID, input.StageIDs); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, tenantID, team.ID)
}

// Update updates a team and replaces its stage set
func (s *TeamService) Update(ctx context.Context, tenantID, id uint, input *TeamInput) (*models.Team, error) {
	team, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if err := s.checkStages(ctx, tenantID, input.StageIDs); err != nil {
		return nil, err
	}

	team.Name = input.Name
	team.Description = input.Description
	team.IsActive = input.IsActive
	if err := s.teamRepo.Update(ctx, team); err != nil {
		return nil, err
	}
	if err := s.teamRepo.SetStages(ctx, team.ID, input.StageIDs); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, tenantID, team.ID)
}

// Delete soft deletes a team
func (s *TeamService) Delete(ctx context.Context, tenantID, id uint) error {
	if _, err := s.GetByID(ctx, tenantID, id); err != nil {
		return err
	}
	return s.teamRepo.Delete(ctx, tenantID, id)
}

// AddMember adds a tenant user to a team
func (s *TeamService) AddMember(ctx context.Context, tenantID, teamID, userID uint, role string) (*models.Team, error) {
	if _, err := s.GetByID(ctx, tenantID, teamID); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}

	if role == "" {
		role = "member"
	}
	member := &models.TeamMember{
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	}
	if err := s.teamRepo.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, tenantID, teamID)
}

// RemoveMember removes a user from a team
func (s *TeamService) RemoveMember(ctx context.Context, tenantID, teamID, userID uint) error {
	if _, err := s.GetByID(ctx, tenantID, teamID); err != nil {
		return err
	}
	return s.teamRepo.RemoveMember(ctx, teamID, userID)
}

// checkStages verifies every stage belongs to the tenant
func (s *TeamService) checkStages(ctx context.Context, tenantID uint, stageIDs []uint) error {
	if len(stageIDs) == 0 {
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
	for _, id := range stageIDs {
		if !known[id] {
			return fmt.Errorf("%w: stage %d is not a stage of this tenant", domain.ErrValidation, id)
		}
	}
	return nil
}
