package services

import (
	"context"
	"errors"
	"time"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

// Stage progress statuses
const (
	StageStatusPending    = "pending"
	StageStatusInProgress = "in_progress"
	StageStatusCompleted  = "completed"
)

// SLA statuses
const (
	SLAStatusNormal  = "normal"
	SLAStatusAtRisk  = "at_risk"
	SLAStatusOverdue = "overdue"
)

// slaAtRiskFraction is the share of the SLA window after which a stage
// is flagged at risk
const slaAtRiskFraction = 0.8

// StageTime is the per-stage dwell time line in the sidebar
type StageTime struct {
	StageID   uint   `json:"stage_id"`
	StageName string `json:"stage_name"`
	Hours     int    `json:"hours"`
	SLAHours  int    `json:"sla_hours"`
	Status    string `json:"status"`
	SLAStatus string `json:"sla_status"`
}

// StageSLA describes the current stage's SLA position
type StageSLA struct {
	SLAHours     int    `json:"sla_hours"`
	HoursElapsed int    `json:"hours_elapsed"`
	Status       string `json:"status"`
}

// Progress is the sidebar aggregate for a lead
type Progress struct {
	Lead               *models.LeadResponse   `json:"lead"`
	CurrentStage       *models.StageResponse  `json:"current_stage,omitempty"`
	TimeInCurrentStage int                    `json:"time_in_current_stage"`
	TotalTime          int                    `json:"total_time"`
	CurrentStageSLA    *StageSLA              `json:"current_stage_sla,omitempty"`
	TeamMembers        []*models.UserResponse `json:"team_members"`
	Validations        []ValidationResult     `json:"validations"`
	Summary            ValidationSummary      `json:"summary"`
	StageTimes         []StageTime            `json:"stage_times"`
}

// ProgressService assembles the read-only sidebar view. Everything is
// recomputed on each call; nothing is cached.
type ProgressService struct {
	leadRepo          repositories.LeadStore
	stageRepo         repositories.StageStore
	transitionRepo    repositories.TransitionStore
	teamRepo          repositories.TeamStore
	validationService *ValidationService

	now func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(
	leadRepo repositories.LeadStore,
	stageRepo repositories.StageStore,
	transitionRepo repositories.TransitionStore,
	teamRepo repositories.TeamStore,
	validationService *ValidationService,
) *ProgressService {
	return &ProgressService{
		leadRepo:          leadRepo,
		stageRepo:         stageRepo,
		transitionRepo:    transitionRepo,
		teamRepo:          teamRepo,
		validationService: validationService,
		now:               time.Now,
	}
}

// GetProgress builds the sidebar aggregate for a lead
func (s *ProgressService) GetProgress(ctx context.Context, tenantID, leadID uint) (*Progress, error) {
	lead, results, summary, err := s.validationService.EvaluateLead(ctx, tenantID, leadID)
	if err != nil {
		return nil, err
	}

	stages, err := s.stageRepo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	transitions, err := s.transitionRepo.ListByLeadAsc(ctx, leadID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	progress := &Progress{
		Lead:        lead.ToResponse(),
		TotalTime:   wholeHours(now.Sub(lead.CreatedAt)),
		TeamMembers: []*models.UserResponse{},
		Validations: results,
		Summary:     summary,
		StageTimes:  s.stageTimes(lead, stages, transitions, now),
	}

	// Time in current stage counts from the last transition, or from
	// creation when the lead has never moved
	enteredCurrent := lead.CreatedAt
	if len(transitions) > 0 {
		enteredCurrent = transitions[len(transitions)-1].TriggeredAt
	}
	progress.TimeInCurrentStage = wholeHours(now.Sub(enteredCurrent))

	if lead.CurrentStageID != nil {
		for _, stage := range stages {
			if stage.ID == *lead.CurrentStageID {
				progress.CurrentStage = stage.ToResponse()
				progress.CurrentStageSLA = &StageSLA{
					SLAHours:     stage.SLAHours,
					HoursElapsed: progress.TimeInCurrentStage,
					Status:       slaStatus(progress.TimeInCurrentStage, stage.SLAHours),
				}
				break
			}
		}

		members, err := s.teamRepo.MembersForStage(ctx, tenantID, *lead.CurrentStageID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		for _, m := range members {
			if m.User != nil {
				progress.TeamMembers = append(progress.TeamMembers, m.User.ToResponse())
			}
		}
	}

	return progress, nil
}

// stageTimes derives dwell time per configured stage from the transition
// history. A stage's interval runs from the transition that entered it
// to the next transition, or to now while the lead sits in it. Revisits
// accumulate.
func (s *ProgressService) stageTimes(lead *models.Lead, stages []*models.PipelineStage, transitions []*models.StateTransition, now time.Time) []StageTime {
	hoursByStage := make(map[uint]time.Duration, len(stages))
	for i, tr := range transitions {
		exit := now
		if i+1 < len(transitions) {
			exit = transitions[i+1].TriggeredAt
		}
		hoursByStage[tr.ToStageID] += exit.Sub(tr.TriggeredAt)
	}

	visited := make(map[uint]bool, len(transitions))
	for _, tr := range transitions {
		visited[tr.ToStageID] = true
	}

	times := make([]StageTime, 0, len(stages))
	for _, stage := range stages {
		st := StageTime{
			StageID:   stage.ID,
			StageName: stage.Name,
			SLAHours:  stage.SLAHours,
			Hours:     wholeHours(hoursByStage[stage.ID]),
			Status:    StageStatusPending,
			SLAStatus: SLAStatusNormal,
		}

		current := lead.CurrentStageID != nil && *lead.CurrentStageID == stage.ID
		switch {
		case current:
			st.Status = StageStatusInProgress
			st.SLAStatus = slaStatus(st.Hours, stage.SLAHours)
		case visited[stage.ID]:
			st.Status = StageStatusCompleted
			st.SLAStatus = slaStatus(st.Hours, stage.SLAHours)
		}

		times = append(times, st)
	}
	return times
}

// slaStatus applies the breach convention: overdue past the window,
// at risk past 80% of it. A zero SLA means the stage is not tracked.
func slaStatus(elapsedHours, slaHours int) string {
	if slaHours <= 0 {
		return SLAStatusNormal
	}
	switch {
	case float64(elapsedHours) > float64(slaHours):
		return SLAStatusOverdue
	case float64(elapsedHours) > slaAtRiskFraction*float64(slaHours):
		return SLAStatusAtRisk
	default:
		return SLAStatusNormal
	}
}

func wholeHours(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d.Hours())
}
