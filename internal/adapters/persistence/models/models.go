package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Tenancy & Auth Tables
// ============================================================

// Tenant represents an isolated customer organization
type Tenant struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Slug      string         `gorm:"uniqueIndex;size:50;not null" json:"slug"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TenantID  uint           `gorm:"index;not null" json:"tenant_id"`
	Username  string         `gorm:"uniqueIndex:idx_users_tenant_username;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex:idx_users_tenant_email;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	FullName  string         `gorm:"size:100" json:"full_name"`
	Role      string         `gorm:"size:20;default:'AGENT'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// User roles
const (
	RoleAdmin = "ADMIN"
	RoleAgent = "AGENT"
)

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	TenantID  uint      `json:"tenant_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		TenantID:  u.TenantID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Team Tables
// ============================================================

// Team groups agents that work a set of pipeline stages
type Team struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TenantID    uint           `gorm:"index;not null" json:"tenant_id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Stages  []TeamStage  `gorm:"foreignKey:TeamID" json:"stages,omitempty"`
}

func (Team) TableName() string {
	return "teams"
}

// TeamMember joins users to a team
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"not null;uniqueIndex:idx_team_members_team_user" json:"team_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_team_members_team_user;index" json:"user_id"`
	Role      string    `gorm:"size:20;default:'member'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Team *Team `gorm:"foreignKey:TeamID" json:"-"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (TeamMember) TableName() string {
	return "team_members"
}

// TeamStage maps a team to a pipeline stage it is authorized to act on
type TeamStage struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TeamID          uint      `gorm:"not null;uniqueIndex:idx_team_stages_team_stage" json:"team_id"`
	PipelineStageID uint      `gorm:"not null;uniqueIndex:idx_team_stages_team_stage;index" json:"pipeline_stage_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`

	Team  *Team          `gorm:"foreignKey:TeamID" json:"-"`
	Stage *PipelineStage `gorm:"foreignKey:PipelineStageID" json:"-"`
}

func (TeamStage) TableName() string {
	return "team_stages"
}

// ============================================================
// Pipeline Configuration Tables
// ============================================================

// PipelineStage is a tenant-scoped, ordered step in the lead lifecycle.
// AllowedTransitions holds a JSON array of directly reachable stage IDs.
type PipelineStage struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	TenantID           uint           `gorm:"index;not null" json:"tenant_id"`
	Name               string         `gorm:"size:100;not null" json:"name"`
	Description        string         `gorm:"type:text" json:"description"`
	Color              string         `gorm:"size:20" json:"color"`
	StageOrder         int            `gorm:"not null" json:"stage_order"`
	IsInitial          bool           `gorm:"default:false" json:"is_initial"`
	IsFinal            bool           `gorm:"default:false" json:"is_final"`
	IsActive           bool           `gorm:"default:true" json:"is_active"`
	SLAHours           int            `gorm:"default:48" json:"sla_hours"`
	AllowedTransitions string         `gorm:"type:text" json:"-"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PipelineStage) TableName() string {
	return "pipeline_stages"
}

// AllowedStageIDs decodes the stored transition allow-list.
// An empty column means no outgoing transitions.
func (s *PipelineStage) AllowedStageIDs() []uint {
	if s.AllowedTransitions == "" {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal([]byte(s.AllowedTransitions), &ids); err != nil {
		return nil
	}
	return ids
}

// SetAllowedStageIDs encodes the transition allow-list
func (s *PipelineStage) SetAllowedStageIDs(ids []uint) error {
	if len(ids) == 0 {
		s.AllowedTransitions = ""
		return nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	s.AllowedTransitions = string(b)
	return nil
}

// StageResponse DTO
type StageResponse struct {
	ID                 uint   `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	Color              string `json:"color,omitempty"`
	StageOrder         int    `json:"stage_order"`
	IsInitial          bool   `json:"is_initial"`
	IsFinal            bool   `json:"is_final"`
	IsActive           bool   `json:"is_active"`
	SLAHours           int    `json:"sla_hours"`
	AllowedTransitions []uint `json:"allowed_transitions"`
}

func (s *PipelineStage) ToResponse() *StageResponse {
	ids := s.AllowedStageIDs()
	if ids == nil {
		ids = []uint{}
	}
	return &StageResponse{
		ID:                 s.ID,
		Name:               s.Name,
		Description:        s.Description,
		Color:              s.Color,
		StageOrder:         s.StageOrder,
		IsInitial:          s.IsInitial,
		IsFinal:            s.IsFinal,
		IsActive:           s.IsActive,
		SLAHours:           s.SLAHours,
		AllowedTransitions: ids,
	}
}

// ValidationRule is a tenant-scoped declarative check over lead data.
// Condition holds the JSON condition tree; it is validated when the rule
// is saved, not when it is evaluated.
type ValidationRule struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	TenantID        uint           `gorm:"index;not null" json:"tenant_id"`
	PipelineStageID *uint          `gorm:"index" json:"pipeline_stage_id"`
	Name            string         `gorm:"size:100;not null" json:"name"`
	Description     string         `gorm:"type:text" json:"description"`
	Severity        string         `gorm:"size:20;default:'warning'" json:"severity"`
	Enabled         bool           `gorm:"default:true" json:"enabled"`
	RuleOrder       int            `gorm:"not null;default:0" json:"rule_order"`
	Condition       string         `gorm:"type:text;not null" json:"condition"`
	OnPassMessage   string         `gorm:"size:255" json:"on_pass_message"`
	OnFailMessage   string         `gorm:"size:255" json:"on_fail_message"`
	SuggestedAction string         `gorm:"size:255" json:"suggested_action"`
	ActionURL       string         `gorm:"size:255" json:"action_url"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ValidationRule) TableName() string {
	return "validation_rules"
}

// Rule severities
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// ============================================================
// Lead Tables
// ============================================================

// Lead is a prospective borrower's in-progress application
type Lead struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	TenantID        uint           `gorm:"index;not null" json:"tenant_id"`
	Name            string         `gorm:"size:100;not null" json:"name"`
	Email           string         `gorm:"size:100" json:"email"`
	Phone           string         `gorm:"size:30" json:"phone"`
	MonthlyIncome   float64        `gorm:"type:decimal(15,2);default:0" json:"monthly_income"`
	TotalDebt       float64        `gorm:"type:decimal(15,2);default:0" json:"total_debt"`
	CollateralValue float64        `gorm:"type:decimal(15,2);default:0" json:"collateral_value"`
	RequestedAmount float64        `gorm:"type:decimal(15,2);default:0" json:"requested_amount"`
	Extra           string         `gorm:"type:text" json:"-"`
	Status          string         `gorm:"size:20;not null;default:'draft'" json:"status"`
	CurrentStageID  *uint          `gorm:"index" json:"current_stage_id"`
	AssignedTeamID  *uint          `gorm:"index" json:"assigned_team_id"`
	CreatedBy       uint           `gorm:"not null" json:"created_by"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	CurrentStage *PipelineStage `gorm:"foreignKey:CurrentStageID" json:"current_stage,omitempty"`
	AssignedTeam *Team          `gorm:"foreignKey:AssignedTeamID" json:"assigned_team,omitempty"`
	Creator      *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Documents    []LeadDocument `gorm:"foreignKey:LeadID" json:"documents,omitempty"`
}

func (Lead) TableName() string {
	return "leads"
}

// Lead statuses
const (
	LeadStatusDraft  = "draft"
	LeadStatusActive = "active"
	LeadStatusClosed = "closed"
)

// DataMap flattens the lead into the field map the rule engine evaluates.
// Typed columns win over keys in the free-form Extra payload.
func (l *Lead) DataMap() map[string]interface{} {
	data := map[string]interface{}{
		"name":            l.Name,
		"email":           l.Email,
		"phone":           l.Phone,
		"status":          l.Status,
		"monthlyIncome":   l.MonthlyIncome,
		"totalDebt":       l.TotalDebt,
		"collateralValue": l.CollateralValue,
		"requestedAmount": l.RequestedAmount,
	}
	if l.Extra != "" {
		var extra map[string]interface{}
		if err := json.Unmarshal([]byte(l.Extra), &extra); err == nil {
			for k, v := range extra {
				if _, taken := data[k]; !taken {
					data[k] = v
				}
			}
		}
	}
	return data
}

// LeadResponse DTO
type LeadResponse struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	MonthlyIncome    float64   `json:"monthly_income"`
	TotalDebt        float64   `json:"total_debt"`
	CollateralValue  float64   `json:"collateral_value"`
	RequestedAmount  float64   `json:"requested_amount"`
	Status           string    `json:"status"`
	CurrentStageID   *uint     `json:"current_stage_id"`
	CurrentStageName string    `json:"current_stage_name,omitempty"`
	AssignedTeamID   *uint     `json:"assigned_team_id"`
	AssignedTeamName string    `json:"assigned_team_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (l *Lead) ToResponse() *LeadResponse {
	resp := &LeadResponse{
		ID:              l.ID,
		Name:            l.Name,
		Email:           l.Email,
		Phone:           l.Phone,
		MonthlyIncome:   l.MonthlyIncome,
		TotalDebt:       l.TotalDebt,
		CollateralValue: l.CollateralValue,
		RequestedAmount: l.RequestedAmount,
		Status:          l.Status,
		CurrentStageID:  l.CurrentStageID,
		AssignedTeamID:  l.AssignedTeamID,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}

	if l.CurrentStage != nil {
		resp.CurrentStageName = l.CurrentStage.Name
	}
	if l.AssignedTeam != nil {
		resp.AssignedTeamName = l.AssignedTeam.Name
	}

	return resp
}

// LeadDocument is a document attached to a lead
type LeadDocument struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	LeadID     uint       `gorm:"not null;index" json:"lead_id"`
	Type       string     `gorm:"size:50;not null" json:"type"`
	Category   string     `gorm:"size:50" json:"category"`
	FileName   string     `gorm:"size:255" json:"file_name"`
	Status     string     `gorm:"size:20;not null;default:'pending'" json:"status"`
	UploadedBy uint       `gorm:"not null" json:"uploaded_by"`
	VerifiedBy *uint      `json:"verified_by"`
	VerifiedAt *time.Time `json:"verified_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Lead *Lead `gorm:"foreignKey:LeadID" json:"-"`
}

func (LeadDocument) TableName() string {
	return "lead_documents"
}

// Document statuses
const (
	DocStatusPending   = "pending"
	DocStatusSubmitted = "submitted"
	DocStatusVerified  = "verified"
	DocStatusRejected  = "rejected"
)

// StateTransition is the immutable audit record of a stage change.
// Rows are appended by the transition executor and never updated.
type StateTransition struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LeadID      uint      `gorm:"not null;index" json:"lead_id"`
	FromStageID *uint     `json:"from_stage_id"`
	ToStageID   uint      `gorm:"not null" json:"to_stage_id"`
	Event       string    `gorm:"size:50;not null" json:"event"`
	Context     string    `gorm:"type:text" json:"context,omitempty"`
	TriggeredBy uint      `gorm:"not null" json:"triggered_by"`
	TriggeredAt time.Time `gorm:"not null;index" json:"triggered_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	Lead      *Lead          `gorm:"foreignKey:LeadID" json:"-"`
	FromStage *PipelineStage `gorm:"foreignKey:FromStageID" json:"from_stage,omitempty"`
	ToStage   *PipelineStage `gorm:"foreignKey:ToStageID" json:"to_stage,omitempty"`
	Actor     *User          `gorm:"foreignKey:TriggeredBy" json:"actor,omitempty"`
}

func (StateTransition) TableName() string {
	return "state_transitions"
}

// EventStageChanged is the default transition event name
const EventStageChanged = "stage_changed"

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Tenant{},
		&User{},
		&RefreshToken{},
		&Team{},
		&TeamMember{},
		&TeamStage{},
		&PipelineStage{},
		&ValidationRule{},
		&Lead{},
		&LeadDocument{},
		&StateTransition{},
	)
}
