package services

import (
	"context"
	"sort"

	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/adapters/persistence/repositories"
	"leadflow/internal/core/domain"

	"gorm.io/gorm"
)

// fakeDB holds an in-memory scenario shared by the per-interface fakes.
// Tests seed it directly and wire the typed views into the services.
type fakeDB struct {
	leads       map[uint]*models.Lead
	stages      []*models.PipelineStage
	transitions []*models.StateTransition
	documents   map[uint][]models.LeadDocument
	rules       []*models.ValidationRule
	userStages  map[uint][]uint
	stageTeams  map[uint]*models.Team
	members     map[uint][]*models.TeamMember

	nextID   uint
	applyErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		leads:      make(map[uint]*models.Lead),
		documents:  make(map[uint][]models.LeadDocument),
		userStages: make(map[uint][]uint),
		stageTeams: make(map[uint]*models.Team),
		members:    make(map[uint][]*models.TeamMember),
		nextID:     1000,
	}
}

func (db *fakeDB) leadStore() repositories.LeadStore             { return &fakeLeadStore{db} }
func (db *fakeDB) stageStore() repositories.StageStore           { return &fakeStageStore{db} }
func (db *fakeDB) transitionStore() repositories.TransitionStore { return &fakeTransitionStore{db} }
func (db *fakeDB) teamStore() repositories.TeamStore             { return &fakeTeamStore{db} }
func (db *fakeDB) docStore() repositories.DocumentStore          { return &fakeDocStore{db} }
func (db *fakeDB) ruleStore() repositories.RuleStore             { return &fakeRuleStore{db} }

// ---- LeadStore ----

type fakeLeadStore struct{ db *fakeDB }

func (s *fakeLeadStore) Create(ctx context.Context, lead *models.Lead) error {
	s.db.nextID++
	lead.ID = s.db.nextID
	s.db.leads[lead.ID] = lead
	return nil
}

func (s *fakeLeadStore) GetByID(ctx context.Context, tenantID, id uint) (*models.Lead, error) {
	lead, ok := s.db.leads[id]
	if !ok || lead.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *lead
	return &copied, nil
}

func (s *fakeLeadStore) List(ctx context.Context, tenantID uint, filter repositories.LeadFilter) ([]*models.Lead, int64, error) {
	var out []*models.Lead
	for _, lead := range s.db.leads {
		if lead.TenantID == tenantID {
			out = append(out, lead)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s *fakeLeadStore) Update(ctx context.Context, lead *models.Lead) error {
	s.db.leads[lead.ID] = lead
	return nil
}

func (s *fakeLeadStore) Delete(ctx context.Context, tenantID, id uint) error {
	delete(s.db.leads, id)
	return nil
}

func (s *fakeLeadStore) ApplyTransition(ctx context.Context, tenantID uint, input repositories.ApplyTransitionInput) (*models.Lead, *models.StateTransition, error) {
	if s.db.applyErr != nil {
		return nil, nil, s.db.applyErr
	}

	lead, ok := s.db.leads[input.LeadID]
	if !ok || lead.TenantID != tenantID {
		return nil, nil, gorm.ErrRecordNotFound
	}
	if !sameStageRef(lead.CurrentStageID, input.ExpectedStageID) {
		return nil, nil, domain.ErrStageConflict
	}

	fromStageID := lead.CurrentStageID
	toStageID := input.ToStageID
	lead.CurrentStageID = &toStageID
	if lead.Status == models.LeadStatusDraft {
		lead.Status = models.LeadStatusActive
	}
	if input.AssignTeamID != nil {
		lead.AssignedTeamID = input.AssignTeamID
	}

	s.db.nextID++
	transition := &models.StateTransition{
		ID:          s.db.nextID,
		LeadID:      lead.ID,
		FromStageID: fromStageID,
		ToStageID:   input.ToStageID,
		Event:       input.Event,
		Context:     input.Context,
		TriggeredBy: input.TriggeredBy,
		TriggeredAt: input.TriggeredAt,
	}
	s.db.transitions = append(s.db.transitions, transition)

	copied := *lead
	return &copied, transition, nil
}

func sameStageRef(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ---- StageStore ----

type fakeStageStore struct{ db *fakeDB }

func (s *fakeStageStore) ListActive(ctx context.Context, tenantID uint) ([]*models.PipelineStage, error) {
	var out []*models.PipelineStage
	for _, stage := range s.db.stages {
		if stage.TenantID == tenantID && stage.IsActive {
			out = append(out, stage)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageOrder < out[j].StageOrder })
	return out, nil
}

func (s *fakeStageStore) ListAll(ctx context.Context, tenantID uint) ([]*models.PipelineStage, error) {
	var out []*models.PipelineStage
	for _, stage := range s.db.stages {
		if stage.TenantID == tenantID {
			out = append(out, stage)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageOrder < out[j].StageOrder })
	return out, nil
}

func (s *fakeStageStore) GetByID(ctx context.Context, tenantID, id uint) (*models.PipelineStage, error) {
	for _, stage := range s.db.stages {
		if stage.TenantID == tenantID && stage.ID == id {
			return stage, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeStageStore) Create(ctx context.Context, stage *models.PipelineStage) error {
	s.db.nextID++
	stage.ID = s.db.nextID
	s.db.stages = append(s.db.stages, stage)
	return nil
}

func (s *fakeStageStore) Update(ctx context.Context, stage *models.PipelineStage) error {
	for i, existing := range s.db.stages {
		if existing.ID == stage.ID {
			s.db.stages[i] = stage
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *fakeStageStore) Delete(ctx context.Context, tenantID, id uint) error {
	for i, stage := range s.db.stages {
		if stage.TenantID == tenantID && stage.ID == id {
			s.db.stages = append(s.db.stages[:i], s.db.stages[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ---- TransitionStore ----

type fakeTransitionStore struct{ db *fakeDB }

func (s *fakeTransitionStore) ListByLead(ctx context.Context, leadID uint) ([]*models.StateTransition, error) {
	asc, _ := s.ListByLeadAsc(ctx, leadID)
	out := make([]*models.StateTransition, 0, len(asc))
	for i := len(asc) - 1; i >= 0; i-- {
		out = append(out, asc[i])
	}
	return out, nil
}

func (s *fakeTransitionStore) ListByLeadAsc(ctx context.Context, leadID uint) ([]*models.StateTransition, error) {
	var out []*models.StateTransition
	for _, tr := range s.db.transitions {
		if tr.LeadID == leadID {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TriggeredAt.Before(out[j].TriggeredAt)
	})
	return out, nil
}

// ---- TeamStore ----

type fakeTeamStore struct{ db *fakeDB }

func (s *fakeTeamStore) StageIDsForUser(ctx context.Context, tenantID, userID uint) ([]uint, error) {
	return s.db.userStages[userID], nil
}

func (s *fakeTeamStore) FirstTeamForStage(ctx context.Context, tenantID, stageID uint) (*models.Team, error) {
	team, ok := s.db.stageTeams[stageID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return team, nil
}

func (s *fakeTeamStore) MembersForStage(ctx context.Context, tenantID, stageID uint) ([]*models.TeamMember, error) {
	return s.db.members[stageID], nil
}

// ---- DocumentStore ----

type fakeDocStore struct{ db *fakeDB }

func (s *fakeDocStore) ListByLead(ctx context.Context, leadID uint) ([]models.LeadDocument, error) {
	return s.db.documents[leadID], nil
}

func (s *fakeDocStore) GetByID(ctx context.Context, id uint) (*models.LeadDocument, error) {
	for _, docs := range s.db.documents {
		for i := range docs {
			if docs[i].ID == id {
				return &docs[i], nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeDocStore) Create(ctx context.Context, doc *models.LeadDocument) error {
	s.db.nextID++
	doc.ID = s.db.nextID
	s.db.documents[doc.LeadID] = append(s.db.documents[doc.LeadID], *doc)
	return nil
}

func (s *fakeDocStore) Update(ctx context.Context, doc *models.LeadDocument) error {
	docs := s.db.documents[doc.LeadID]
	for i := range docs {
		if docs[i].ID == doc.ID {
			docs[i] = *doc
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ---- RuleStore ----

type fakeRuleStore struct{ db *fakeDB }

func (s *fakeRuleStore) ListForStage(ctx context.Context, tenantID uint, stageID *uint) ([]*models.ValidationRule, error) {
	var out []*models.ValidationRule
	for _, rule := range s.db.rules {
		if rule.TenantID != tenantID || !rule.Enabled {
			continue
		}
		if rule.PipelineStageID == nil {
			out = append(out, rule)
			continue
		}
		if stageID != nil && *rule.PipelineStageID == *stageID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *fakeRuleStore) ListAll(ctx context.Context, tenantID uint) ([]*models.ValidationRule, error) {
	var out []*models.ValidationRule
	for _, rule := range s.db.rules {
		if rule.TenantID == tenantID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *fakeRuleStore) GetByID(ctx context.Context, tenantID, id uint) (*models.ValidationRule, error) {
	for _, rule := range s.db.rules {
		if rule.TenantID == tenantID && rule.ID == id {
			return rule, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeRuleStore) Create(ctx context.Context, rule *models.ValidationRule) error {
	s.db.nextID++
	rule.ID = s.db.nextID
	s.db.rules = append(s.db.rules, rule)
	return nil
}

func (s *fakeRuleStore) Update(ctx context.Context, rule *models.ValidationRule) error {
	for i, existing := range s.db.rules {
		if existing.ID == rule.ID {
			s.db.rules[i] = rule
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *fakeRuleStore) Delete(ctx context.Context, tenantID, id uint) error {
	for i, rule := range s.db.rules {
		if rule.TenantID == tenantID && rule.ID == id {
			s.db.rules = append(s.db.rules[:i], s.db.rules[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
