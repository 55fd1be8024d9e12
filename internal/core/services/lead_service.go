package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/adapters/persistence/repositories"
	"leadflow/internal/core/domain"

	"gorm.io/gorm"
)

// LeadService handles lead intake and document business logic
type LeadService struct {
	leadRepo repositories.LeadStore
	docRepo  repositories.DocumentStore

	now func() time.Time
}

// NewLeadService creates a new lead service
func NewLeadService(leadRepo repositories.LeadStore, docRepo repositories.DocumentStore) *LeadService {
	return &LeadService{
		leadRepo: leadRepo,
		docRepo:  docRepo,
		now:      time.Now,
	}
}

// CreateLeadInput represents create lead input
type CreateLeadInput struct {
	Name            string                 `json:"name" validate:"required"`
	Email           string                 `json:"email,omitempty"`
	Phone           string                 `json:"phone,omitempty"`
	MonthlyIncome   float64                `json:"monthly_income,omitempty"`
	TotalDebt       float64                `json:"total_debt,omitempty"`
	CollateralValue float64                `json:"collateral_value,omitempty"`
	RequestedAmount float64                `json:"requested_amount,omitempty"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
}

// UpdateLeadInput represents update lead input; nil fields are untouched
type UpdateLeadInput struct {
	Name            *string                `json:"name,omitempty"`
	Email           *string                `json:"email,omitempty"`
	Phone           *string                `json:"phone,omitempty"`
	MonthlyIncome   *float64               `json:"monthly_income,omitempty"`
	TotalDebt       *float64               `json:"total_debt,omitempty"`
	CollateralValue *float64               `json:"collateral_value,omitempty"`
	RequestedAmount *float64               `json:"requested_amount,omitempty"`
	Status          *string                `json:"status,omitempty"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
}

// Create creates a new lead. Leads start stage-less as drafts; the first
// transition moves them into an initial stage.
func (s *LeadService) Create(ctx context.Context, tenantID, createdBy uint, input *CreateLeadInput) (*models.Lead, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}

	lead := &models.Lead{
		TenantID:        tenantID,
		Name:            input.Name,
		Email:           input.Email,
		Phone:           input.Phone,
		MonthlyIncome:   input.MonthlyIncome,
		TotalDebt:       input.TotalDebt,
		CollateralValue: input.CollateralValue,
		RequestedAmount: input.RequestedAmount,
		Status:          models.LeadStatusDraft,
		CreatedBy:       createdBy,
	}

	if len(input.Extra) > 0 {
		raw, err := json.Marshal(input.Extra)
		if err != nil {
			return nil, fmt.Errorf("%w: extra payload is not encodable", domain.ErrValidation)
		}
		lead.Extra = string(raw)
	}

	if err := s.leadRepo.Create(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// GetByID gets a lead by ID
func (s *LeadService) GetByID(ctx context.Context, tenantID, id uint) (*models.Lead, error) {
	lead, err := s.leadRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}
	return lead, nil
}

// List lists leads with pagination and filters
func (s *LeadService) List(ctx context.Context, tenantID uint, filter repositories.LeadFilter) ([]*models.Lead, int64, error) {
	return s.leadRepo.List(ctx, tenantID, filter)
}

// Update applies a partial update to a lead
func (s *LeadService) Update(ctx context.Context, tenantID, id uint, input *UpdateLeadInput) (*models.Lead, error) {
	lead, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		lead.Name = *input.Name
	}
	if input.Email != nil {
		lead.Email = *input.Email
	}
	if input.Phone != nil {
		lead.Phone = *input.Phone
	}
	if input.MonthlyIncome != nil {
		lead.MonthlyIncome = *input.MonthlyIncome
	}
	if input.TotalDebt != nil {
		lead.TotalDebt = *input.TotalDebt
	}
	if input.CollateralValue != nil {
		lead.CollateralValue = *input.CollateralValue
	}
	if input.RequestedAmount != nil {
		lead.RequestedAmount = *input.RequestedAmount
	}
	if input.Status != nil {
		switch *input.Status {
		case models.LeadStatusDraft, models.LeadStatusActive, models.LeadStatusClosed:
			lead.Status = *input.Status
		default:
			return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, *input.Status)
		}
	}
	if input.Extra != nil {
		raw, err := json.Marshal(input.Extra)
		if err != nil {
			return nil, fmt.Errorf("%w: extra payload is not encodable", domain.ErrValidation)
		}
		lead.Extra = string(raw)
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// Delete soft deletes a lead
func (s *LeadService) Delete(ctx context.Context, tenantID, id uint) error {
	if _, err := s.GetByID(ctx, tenantID, id); err != nil {
		return err
	}
	return s.leadRepo.Delete(ctx, tenantID, id)
}

// AddDocumentInput represents document attach input
type AddDocumentInput struct {
	Type     string `json:"type" validate:"required"`
	Category string `json:"category,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

// ListDocuments lists documents attached to a lead
func (s *LeadService) ListDocuments(ctx context.Context, tenantID, leadID uint) ([]models.LeadDocument, error) {
	if _, err := s.GetByID(ctx, tenantID, leadID); err != nil {
		return nil, err
	}
	return s.docRepo.ListByLead(ctx, leadID)
}

// AddDocument attaches a document record to a lead
func (s *LeadService) AddDocument(ctx context.Context, tenantID, leadID, uploadedBy uint, input *AddDocumentInput) (*models.LeadDocument, error) {
	if input.Type == "" {
		return nil, fmt.Errorf("%w: document type is required", domain.ErrValidation)
	}
	if _, err := s.GetByID(ctx, tenantID, leadID); err != nil {
		return nil, err
	}

	doc := &models.LeadDocument{
		LeadID:     leadID,
		Type:       input.Type,
		Category:   input.Category,
		FileName:   input.FileName,
		Status:     models.DocStatusSubmitted,
		UploadedBy: uploadedBy,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReviewDocument marks a document verified or rejected
func (s *LeadService) ReviewDocument(ctx context.Context, tenantID, leadID, docID, reviewedBy uint, approve bool) (*models.LeadDocument, error) {
	if _, err := s.GetByID(ctx, tenantID, leadID); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if doc.LeadID != leadID {
		return nil, domain.ErrNotFound
	}

	now := s.now()
	if approve {
		doc.Status = models.DocStatusVerified
	} else {
		doc.Status = models.DocStatusRejected
	}
	doc.VerifiedBy = &reviewedBy
	doc.VerifiedAt = &now

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
