package services

import (
	"context"
	"time"

	"leadflow/internal/adapters/persistence/repositories"
)

// StageSummary is a pipeline stage with its current lead count
type StageSummary struct {
	StageID   uint   `json:"stage_id"`
	StageName string `json:"stage_name"`
	Color     string `json:"color,omitempty"`
	IsFinal   bool   `json:"is_final"`
	Count     int64  `json:"count"`
}

// DashboardSummary is the pipeline overview payload
type DashboardSummary struct {
	Stages        []StageSummary   `json:"stages"`
	StatusCounts  map[string]int64 `json:"status_counts"`
	Unstaged      int64            `json:"unstaged"`
	NewThisWeek   int64            `json:"new_this_week"`
	MovesThisWeek int64            `json:"moves_this_week"`
	TotalLeads    int64            `json:"total_leads"`
}

// DashboardService assembles pipeline overview numbers
type DashboardService struct {
	dashboardRepo *repositories.DashboardRepository
	stageRepo     repositories.StageStore

	now func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(dashboardRepo *repositories.DashboardRepository, stageRepo repositories.StageStore) *DashboardService {
	return &DashboardService{
		dashboardRepo: dashboardRepo,
		stageRepo:     stageRepo,
		now:           time.Now,
	}
}

// GetSummary builds the dashboard for a tenant
func (s *DashboardService) GetSummary(ctx context.Context, tenantID uint) (*DashboardSummary, error) {
	stages, err := s.stageRepo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stageCounts, err := s.dashboardRepo.CountLeadsByStage(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	countByStage := make(map[uint]int64, len(stageCounts))
	for _, sc := range stageCounts {
		countByStage[sc.StageID] = sc.Count
	}

	statusCounts, err := s.dashboardRepo.CountLeadsByStatus(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	weekAgo := s.now().AddDate(0, 0, -7)
	newThisWeek, err := s.dashboardRepo.CountLeadsCreatedSince(ctx, tenantID, weekAgo)
	if err != nil {
		return nil, err
	}
	movesThisWeek, err := s.dashboardRepo.CountTransitionsSince(ctx, tenantID, weekAgo)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		Stages:        make([]StageSummary, 0, len(stages)),
		StatusCounts:  statusCounts,
		NewThisWeek:   newThisWeek,
		MovesThisWeek: movesThisWeek,
	}

	var staged int64
	for _, stage := range stages {
		count := countByStage[stage.ID]
		staged += count
		summary.Stages = append(summary.Stages, StageSummary{
			StageID:   stage.ID,
			StageName: stage.Name,
			Color:     stage.Color,
			IsFinal:   stage.IsFinal,
			Count:     count,
		})
	}

	for _, count := range statusCounts {
		summary.TotalLeads += count
	}
	summary.Unstaged = summary.TotalLeads - staged
	if summary.Unstaged < 0 {
		summary.Unstaged = 0
	}

	return summary, nil
}
