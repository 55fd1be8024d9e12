package repositories

import (
	"context"
	"time"

	"leadflow/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// StageCount is a per-stage lead tally
type StageCount struct {
	StageID uint  `json:"stage_id"`
	Count   int64 `json:"count"`
}

// DashboardRepository runs the aggregate queries behind the dashboard
type DashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository creates a new dashboard repository
func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CountLeadsByStage tallies non-deleted leads per current stage
func (r *DashboardRepository) CountLeadsByStage(ctx context.Context, tenantID uint) ([]StageCount, error) {
	var counts []StageCount
	err := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Select("current_stage_id AS stage_id, COUNT(*) AS count").
		Where("tenant_id = ? AND current_stage_id IS NOT NULL", tenantID).
		Group("current_stage_id").
		Scan(&counts).Error
	return counts, err
}

// CountLeadsByStatus tallies leads per lifecycle status
func (r *DashboardRepository) CountLeadsByStatus(ctx context.Context, tenantID uint) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Select("status, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountLeadsCreatedSince counts leads created on or after the cutoff
func (r *DashboardRepository) CountLeadsCreatedSince(ctx context.Context, tenantID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Count(&count).Error
	return count, err
}

// CountTransitionsSince counts stage changes recorded on or after the
// cutoff across the tenant's leads
func (r *DashboardRepository) CountTransitionsSince(ctx context.Context, tenantID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StateTransition{}).
		Joins("JOIN leads ON leads.id = state_transitions.lead_id").
		Where("leads.tenant_id = ? AND state_transitions.triggered_at >= ?", tenantID, since).
		Count(&count).Error
	return count, err
}

// ActiveLeadsInStage returns active leads currently sitting in a stage,
// used by the SLA sweep
func (r *DashboardRepository) ActiveLeadsInStage(ctx context.Context, tenantID, stageID uint) ([]*models.Lead, error) {
	var leads []*models.Lead
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND current_stage_id = ? AND status = ?", tenantID, stageID, models.LeadStatusActive).
		Find(&leads).Error
	return leads, err
}

// ListTenants returns all active tenants, used by cross-tenant sweeps
func (r *DashboardRepository) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&tenants).Error
	return tenants, err
}
