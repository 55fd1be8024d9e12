package config

import (
	"log"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders. Each step is idempotent and skipped when the
// target rows already exist.
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	tenant, err := s.seedDefaultTenant()
	if err != nil {
		return err
	}

	if err := s.seedAdminUser(tenant.ID); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	stages, err := s.seedPipelineStages(tenant.ID)
	if err != nil {
		return err
	}

	if stages != nil {
		if err := s.seedValidationRules(tenant.ID, stages); err != nil {
			return err
		}
		if err := s.seedDefaultTeam(tenant.ID, stages); err != nil {
			return err
		}
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedDefaultTenant ensures the default tenant exists
func (s *Seeder) seedDefaultTenant() (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.Where("slug = ?", "default").First(&tenant).Error
	if err == nil {
		return &tenant, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	tenant = models.Tenant{
		Slug:     "default",
		Name:     "Default Organization",
		IsActive: true,
	}
	if err := s.db.Create(&tenant).Error; err != nil {
		return nil, err
	}

	log.Printf("✅ Default tenant created: %s", tenant.Slug)
	return &tenant, nil
}

// seedAdminUser seeds default admin user
// This is for development/testing only
// In production, create admin through secure process
func (s *Seeder) seedAdminUser(tenantID uint) error {
	var count int64
	s.db.Model(&models.User{}).
		Where("tenant_id = ? AND role = ?", tenantID, models.RoleAdmin).
		Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		TenantID: tenantID,
		Username: "admin",
		Email:    "admin@leadflow.app",
		Password: hashedPassword,
		FullName: "System Administrator",
		Role:     models.RoleAdmin,
		IsActive: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Username)
	return nil
}

// seedPipelineStages seeds the default stage graph:
//
//	New Lead → Qualification → Documents → Assessment → Approval → Disbursed
//	                                                  ↘ Rejected ↙
//
// Returns nil stages when the tenant already has a pipeline.
func (s *Seeder) seedPipelineStages(tenantID uint) (map[string]*models.PipelineStage, error) {
	var count int64
	s.db.Model(&models.PipelineStage{}).Where("tenant_id = ?", tenantID).Count(&count)
	if count > 0 {
		return nil, nil // Pipeline already configured
	}

	defs := []struct {
		name     string
		color    string
		slaHours int
		initial  bool
		final    bool
	}{
		{"New Lead", "#3B82F6", 24, true, false},
		{"Qualification", "#8B5CF6", 48, false, false},
		{"Documents", "#F59E0B", 72, false, false},
		{"Assessment", "#10B981", 48, false, false},
		{"Approval", "#EF4444", 24, false, false},
		{"Disbursed", "#22C55E", 0, false, true},
		{"Rejected", "#6B7280", 0, false, true},
	}

	stages := make(map[string]*models.PipelineStage, len(defs))
	for i, d := range defs {
		stage := &models.PipelineStage{
			TenantID:   tenantID,
			Name:       d.name,
			Color:      d.color,
			StageOrder: i + 1,
			IsInitial:  d.initial,
			IsFinal:    d.final,
			IsActive:   true,
			SLAHours:   d.slaHours,
		}
		if err := s.db.Create(stage).Error; err != nil {
			return nil, err
		}
		stages[d.name] = stage
	}

	// Wire the allow-lists now that every stage has an ID.
	// Final stages keep an empty list.
	edges := map[string][]string{
		"New Lead":      {"Qualification", "Rejected"},
		"Qualification": {"Documents", "Rejected"},
		"Documents":     {"Assessment", "Rejected"},
		"Assessment":    {"Approval", "Rejected"},
		"Approval":      {"Disbursed", "Rejected"},
	}
	for name, targets := range edges {
		stage := stages[name]
		ids := make([]uint, 0, len(targets))
		for _, t := range targets {
			ids = append(ids, stages[t].ID)
		}
		if err := stage.SetAllowedStageIDs(ids); err != nil {
			return nil, err
		}
		if err := s.db.Save(stage).Error; err != nil {
			return nil, err
		}
	}

	log.Printf("✅ Pipeline stages created: %d stages", len(defs))
	return stages, nil
}

// seedValidationRules seeds starter rules for the default pipeline
func (s *Seeder) seedValidationRules(tenantID uint, stages map[string]*models.PipelineStage) error {
	var count int64
	s.db.Model(&models.ValidationRule{}).Where("tenant_id = ?", tenantID).Count(&count)
	if count > 0 {
		return nil
	}

	qualID := stages["Qualification"].ID
	docsID := stages["Documents"].ID
	assessID := stages["Assessment"].ID

	rules := []models.ValidationRule{
		{
			TenantID:      tenantID,
			Name:          "Contact details present",
			Severity:      models.SeverityError,
			Enabled:       true,
			RuleOrder:     10,
			Condition:     `{"operator":"and","conditions":[{"field":"name","operator":"isNotEmpty"},{"field":"phone","operator":"isValidPhone"}]}`,
			OnPassMessage: "Contact details look good",
			OnFailMessage: "Lead needs a name and a valid phone number",
		},
		{
			TenantID:      tenantID,
			Name:          "Email address valid",
			Severity:      models.SeverityWarning,
			Enabled:       true,
			RuleOrder:     20,
			Condition:     `{"field":"email","operator":"isValidEmail"}`,
			OnPassMessage: "Email address is valid",
			OnFailMessage: "Email address is missing or malformed",
		},
		{
			TenantID:        tenantID,
			PipelineStageID: &qualID,
			Name:            "Income declared",
			Severity:        models.SeverityError,
			Enabled:         true,
			RuleOrder:       10,
			Condition:       `{"field":"monthlyIncome","operator":"greaterThan","value":0}`,
			OnPassMessage:   "Monthly income recorded",
			OnFailMessage:   "Monthly income is required before qualification",
			SuggestedAction: "Record the applicant's monthly income",
		},
		{
			TenantID:        tenantID,
			PipelineStageID: &docsID,
			Name:            "Identity document on file",
			Severity:        models.SeverityError,
			Enabled:         true,
			RuleOrder:       10,
			Condition:       `{"field":"documents","operator":"hasDocumentType","value":"identity"}`,
			OnPassMessage:   "Identity document received",
			OnFailMessage:   "An identity document must be attached",
			SuggestedAction: "Upload the applicant's identity document",
		},
		{
			TenantID:        tenantID,
			PipelineStageID: &docsID,
			Name:            "All documents verified",
			Severity:        models.SeverityWarning,
			Enabled:         true,
			RuleOrder:       20,
			Condition:       `{"field":"documents","operator":"allDocumentsVerified"}`,
			OnPassMessage:   "Every document has been verified",
			OnFailMessage:   "Some documents are still awaiting verification",
		},
		{
			TenantID:        tenantID,
			PipelineStageID: &assessID,
			Name:            "Debt-to-income within limit",
			Severity:        models.SeverityError,
			Enabled:         true,
			RuleOrder:       10,
			Condition:       `{"field":"debtToIncomeRatio","operator":"lessThanOrEqual","value":0.4}`,
			OnPassMessage:   "Debt-to-income ratio acceptable",
			OnFailMessage:   "Debt-to-income ratio exceeds 40%",
		},
		{
			TenantID:        tenantID,
			PipelineStageID: &assessID,
			Name:            "Collateral covers request",
			Severity:        models.SeverityWarning,
			Enabled:         true,
			RuleOrder:       20,
			Condition:       `{"field":"collateralRatio","operator":"greaterThanOrEqual","value":1}`,
			OnPassMessage:   "Collateral covers the requested amount",
			OnFailMessage:   "Collateral is worth less than the requested amount",
		},
	}

	for i := range rules {
		if err := s.db.Create(&rules[i]).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Validation rules created: %d rules", len(rules))
	return nil
}

// seedDefaultTeam seeds a team covering the working stages
func (s *Seeder) seedDefaultTeam(tenantID uint, stages map[string]*models.PipelineStage) error {
	var count int64
	s.db.Model(&models.Team{}).Where("tenant_id = ?", tenantID).Count(&count)
	if count > 0 {
		return nil
	}

	team := &models.Team{
		TenantID:    tenantID,
		Name:        "Origination",
		Description: "Handles new leads through assessment",
		IsActive:    true,
	}
	if err := s.db.Create(team).Error; err != nil {
		return err
	}

	for _, name := range []string{"New Lead", "Qualification", "Documents", "Assessment", "Approval"} {
		ts := models.TeamStage{TeamID: team.ID, PipelineStageID: stages[name].ID}
		if err := s.db.Create(&ts).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Default team created: %s", team.Name)
	return nil
}
