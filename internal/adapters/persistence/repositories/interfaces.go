package repositories

import (
	"context"
	"time"

	"leadflow/internal/adapters/persistence/models"
)

// LeadFilter narrows lead listings
type LeadFilter struct {
	StageID *uint
	TeamID  *uint
	Status  string
	Offset  int
	Limit   int
}

// ApplyTransitionInput carries everything the atomic stage change needs.
// ExpectedStageID is the stage observed when the transition was authorized;
// the store rejects the write if the lead has moved since.
type ApplyTransitionInput struct {
	LeadID          uint
	ExpectedStageID *uint
	ToStageID       uint
	Event           string
	Context         string
	TriggeredBy     uint
	TriggeredAt     time.Time
	AssignTeamID    *uint
}

// LeadStore defines lead persistence as consumed by the core services
type LeadStore interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, tenantID, id uint) (*models.Lead, error)
	List(ctx context.Context, tenantID uint, filter LeadFilter) ([]*models.Lead, int64, error)
	Update(ctx context.Context, lead *models.Lead) error
	Delete(ctx context.Context, tenantID, id uint) error
	ApplyTransition(ctx context.Context, tenantID uint, input ApplyTransitionInput) (*models.Lead, *models.StateTransition, error)
}

// StageStore defines pipeline stage persistence
type StageStore interface {
	ListActive(ctx context.Context, tenantID uint) ([]*models.PipelineStage, error)
	ListAll(ctx context.Context, tenantID uint) ([]*models.PipelineStage, error)
	GetByID(ctx context.Context, tenantID, id uint) (*models.PipelineStage, error)
	Create(ctx context.Context, stage *models.PipelineStage) error
	Update(ctx context.Context, stage *models.PipelineStage) error
	Delete(ctx context.Context, tenantID, id uint) error
}

// TransitionStore defines read access to the transition audit trail
type TransitionStore interface {
	ListByLead(ctx context.Context, leadID uint) ([]*models.StateTransition, error)
	ListByLeadAsc(ctx context.Context, leadID uint) ([]*models.StateTransition, error)
}

// RuleStore defines validation rule persistence
type RuleStore interface {
	ListForStage(ctx context.Context, tenantID uint, stageID *uint) ([]*models.ValidationRule, error)
	ListAll(ctx context.Context, tenantID uint) ([]*models.ValidationRule, error)
	GetByID(ctx context.Context, tenantID, id uint) (*models.ValidationRule, error)
	Create(ctx context.Context, rule *models.ValidationRule) error
	Update(ctx context.Context, rule *models.ValidationRule) error
	Delete(ctx context.Context, tenantID, id uint) error
}

// TeamStore defines team lookups consumed by transition authorization
type TeamStore interface {
	StageIDsForUser(ctx context.Context, tenantID, userID uint) ([]uint, error)
	FirstTeamForStage(ctx context.Context, tenantID, stageID uint) (*models.Team, error)
	MembersForStage(ctx context.Context, tenantID, stageID uint) ([]*models.TeamMember, error)
}

// DocumentStore defines lead document persistence
type DocumentStore interface {
	ListByLead(ctx context.Context, leadID uint) ([]models.LeadDocument, error)
	GetByID(ctx context.Context, id uint) (*models.LeadDocument, error)
	Create(ctx context.Context, doc *models.LeadDocument) error
	Update(ctx context.Context, doc *models.LeadDocument) error
}

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, tenantID uint, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, tenantID uint, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, tenantID uint, username string) (bool, error)
	ExistsByEmail(ctx context.Context, tenantID uint, email string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}
