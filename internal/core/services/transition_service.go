package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/adapters/persistence/repositories"
	"leadflow/internal/core/domain"

	"gorm.io/gorm"
)

// TransitionService authorizes and executes pipeline stage changes
type TransitionService struct {
	leadRepo       repositories.LeadStore
	stageRepo      repositories.StageStore
	transitionRepo repositories.TransitionStore
	teamRepo       repositories.TeamStore
	notifyService  *NotificationService

	now func() time.Time
}

// NewTransitionService creates a new transition service
func NewTransitionService(
	leadRepo repositories.LeadStore,
	stageRepo repositories.StageStore,
	transitionRepo repositories.TransitionStore,
	teamRepo repositories.TeamStore,
	notifyService *NotificationService,
) *TransitionService {
	return &TransitionService{
		leadRepo:       leadRepo,
		stageRepo:      stageRepo,
		transitionRepo: transitionRepo,
		teamRepo:       teamRepo,
		notifyService:  notifyService,
		now:            time.Now,
	}
}

// AvailableTransitions returns the stage IDs the lead may move to.
//
// A lead with no current stage may enter any active stage flagged as
// initial. Otherwise only stages on the current stage's allow-list are
// reachable; there are no implicit reverse edges, and a self-transition
// must be listed explicitly. When userID is non-nil the set is further
// narrowed to stages the user's teams are authorized to act on.
func (s *TransitionService) AvailableTransitions(ctx context.Context, tenantID, leadID uint, userID *uint) ([]uint, error) {
	lead, err := s.leadRepo.GetByID(ctx, tenantID, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}

	stages, err := s.stageRepo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	targets := s.structuralTargets(lead, stages)

	if userID != nil {
		allowed, err := s.teamRepo.StageIDsForUser(ctx, tenantID, *userID)
		if err != nil {
			return nil, err
		}
		allowedSet := make(map[uint]bool, len(allowed))
		for _, id := range allowed {
			allowedSet[id] = true
		}
		filtered := targets[:0]
		for _, id := range targets {
			if allowedSet[id] {
				filtered = append(filtered, id)
			}
		}
		targets = filtered
	}

	return targets, nil
}

// structuralTargets applies the stage graph alone, ignoring teams
func (s *TransitionService) structuralTargets(lead *models.Lead, stages []*models.PipelineStage) []uint {
	targets := make([]uint, 0, len(stages))

	if lead.CurrentStageID == nil {
		// Stage-less leads start at the configured entry points
		for _, stage := range stages {
			if stage.IsInitial {
				targets = append(targets, stage.ID)
			}
		}
		return targets
	}

	activeSet := make(map[uint]bool, len(stages))
	var current *models.PipelineStage
	for _, stage := range stages {
		activeSet[stage.ID] = true
		if stage.ID == *lead.CurrentStageID {
			current = stage
		}
	}
	if current == nil {
		// Current stage was deactivated; nowhere to go until config is fixed
		return targets
	}

	for _, id := range current.AllowedStageIDs() {
		if activeSet[id] {
			targets = append(targets, id)
		}
	}
	return targets
}

// ExecuteTransitionInput carries a transition request
type ExecuteTransitionInput struct {
	LeadID        uint   `json:"-"`
	TargetStageID uint   `json:"target_stage_id" validate:"required"`
	Event         string `json:"event,omitempty"`
	Context       string `json:"context,omitempty"`
	TriggeredBy   uint   `json:"-"`
}

// ExecuteTransitionResult is the outcome of a successful transition
type ExecuteTransitionResult struct {
	Lead         *models.Lead
	Transition   *models.StateTransition
	AssignedTeam *models.Team
}

// ExecuteTransition moves a lead to the target stage.
//
// Authorization is re-derived here rather than trusted from an earlier
// read, and the stage pointer update plus audit insert happen in one
// transaction guarded by a compare-and-set on the stage observed during
// authorization. A concurrent transition loses with ErrStageConflict.
func (s *TransitionService) ExecuteTransition(ctx context.Context, tenantID uint, input ExecuteTransitionInput) (*ExecuteTransitionResult, error) {
	if input.TargetStageID == 0 {
		return nil, fmt.Errorf("%w: target_stage_id is required", domain.ErrValidation)
	}
	if input.TriggeredBy == 0 {
		return nil, fmt.Errorf("%w: triggered_by is required", domain.ErrValidation)
	}

	lead, err := s.leadRepo.GetByID(ctx, tenantID, input.LeadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}

	target, err := s.stageRepo.GetByID(ctx, tenantID, input.TargetStageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStageNotFound
		}
		return nil, err
	}

	userID := input.TriggeredBy
	targets, err := s.AvailableTransitions(ctx, tenantID, input.LeadID, &userID)
	if err != nil {
		return nil, err
	}
	authorized := false
	for _, id := range targets {
		if id == input.TargetStageID {
			authorized = true
			break
		}
	}
	if !authorized {
		return nil, domain.ErrTransitionNotAllowed
	}

	// Best-effort team assignment for the destination stage
	var assignTeamID *uint
	assignedTeam, err := s.teamRepo.FirstTeamForStage(ctx, tenantID, target.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		assignedTeam = nil
	} else {
		assignTeamID = &assignedTeam.ID
	}

	event := input.Event
	if event == "" {
		event = models.EventStageChanged
	}

	updated, transition, err := s.leadRepo.ApplyTransition(ctx, tenantID, repositories.ApplyTransitionInput{
		LeadID:          lead.ID,
		ExpectedStageID: lead.CurrentStageID,
		ToStageID:       target.ID,
		Event:           event,
		Context:         input.Context,
		TriggeredBy:     input.TriggeredBy,
		TriggeredAt:     s.now(),
		AssignTeamID:    assignTeamID,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}

	log.Printf("🔄 Lead %d moved to stage %s", updated.ID, target.Name)
	s.notifyTransition(lead, updated, target, transition)

	return &ExecuteTransitionResult{
		Lead:         updated,
		Transition:   transition,
		AssignedTeam: assignedTeam,
	}, nil
}

// notifyTransition fires the stage-change webhook without blocking the
// request
func (s *TransitionService) notifyTransition(before, after *models.Lead, target *models.PipelineStage, transition *models.StateTransition) {
	if s.notifyService == nil || !s.notifyService.Enabled() {
		return
	}

	fromName := ""
	if before.CurrentStage != nil {
		fromName = before.CurrentStage.Name
	}

	n := TransitionNotification{
		LeadID:      after.ID,
		LeadName:    after.Name,
		FromStage:   fromName,
		ToStage:     target.Name,
		Event:       transition.Event,
		TriggeredBy: transition.TriggeredBy,
		TriggeredAt: transition.TriggeredAt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.notifyService.NotifyTransition(ctx, n)
	}()
}

// History returns the lead's transition audit trail, newest first
func (s *TransitionService) History(ctx context.Context, tenantID, leadID uint) ([]*models.StateTransition, error) {
	if _, err := s.leadRepo.GetByID(ctx, tenantID, leadID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}
	return s.transitionRepo.ListByLead(ctx, leadID)
}
