package services

import (
	"context"
	"log"
	"time"

	"leadflow/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// SLAService runs the scheduled sweep that flags leads which have sat
// in a stage past its SLA window. Breaches are logged and forwarded to
// the notification webhook; nothing is mutated.
type SLAService struct {
	dashboardRepo  *repositories.DashboardRepository
	stageRepo      repositories.StageStore
	transitionRepo repositories.TransitionStore
	notifyService  *NotificationService

	cron *cron.Cron
	now  func() time.Time
}

// NewSLAService creates a new SLA service
func NewSLAService(
	dashboardRepo *repositories.DashboardRepository,
	stageRepo repositories.StageStore,
	transitionRepo repositories.TransitionStore,
	notifyService *NotificationService,
) *SLAService {
	return &SLAService{
		dashboardRepo:  dashboardRepo,
		stageRepo:      stageRepo,
		transitionRepo: transitionRepo,
		notifyService:  notifyService,
		now:            time.Now,
	}
}

// Start schedules the sweep. The spec is a standard 5-field cron line.
func (s *SLAService) Start(spec string) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("⏰ SLA sweep scheduled [%s]", spec)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (s *SLAService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *SLAService) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := s.Sweep(ctx); err != nil {
		log.Printf("⚠️ SLA sweep failed: %v", err)
	}
}

// Sweep walks every tenant's active stages and reports leads that have
// dwelled past the stage SLA
func (s *SLAService) Sweep(ctx context.Context) error {
	tenants, err := s.dashboardRepo.ListTenants(ctx)
	if err != nil {
		return err
	}

	breaches := 0
	for _, tenant := range tenants {
		stages, err := s.stageRepo.ListActive(ctx, tenant.ID)
		if err != nil {
			return err
		}

		for _, stage := range stages {
			if stage.SLAHours <= 0 {
				continue
			}

			leads, err := s.dashboardRepo.ActiveLeadsInStage(ctx, tenant.ID, stage.ID)
			if err != nil {
				return err
			}

			for _, lead := range leads {
				hours, err := s.hoursInCurrentStage(ctx, lead.ID, lead.CreatedAt)
				if err != nil {
					return err
				}
				if hours <= stage.SLAHours {
					continue
				}

				breaches++
				log.Printf("⚠️ SLA breach: lead %d has been in %s for %dh (SLA %dh)",
					lead.ID, stage.Name, hours, stage.SLAHours)

				if s.notifyService != nil {
					s.notifyService.NotifySLABreach(ctx, SLANotification{
						LeadID:       lead.ID,
						LeadName:     lead.Name,
						Stage:        stage.Name,
						HoursInStage: hours,
						SLAHours:     stage.SLAHours,
					})
				}
			}
		}
	}

	log.Printf("✅ SLA sweep completed: %d breach(es)", breaches)
	return nil
}

// hoursInCurrentStage measures dwell time from the last recorded
// transition, falling back to lead creation
func (s *SLAService) hoursInCurrentStage(ctx context.Context, leadID uint, createdAt time.Time) (int, error) {
	transitions, err := s.transitionRepo.ListByLeadAsc(ctx, leadID)
	if err != nil {
		return 0, err
	}
	entered := createdAt
	if len(transitions) > 0 {
		entered = transitions[len(transitions)-1].TriggeredAt
	}
	return wholeHours(s.now().Sub(entered)), nil
}
