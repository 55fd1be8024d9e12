package routes

import (
	"time"

	"leadflow/internal/adapters/http/handlers"
	"leadflow/internal/adapters/http/middleware"
	"leadflow/internal/adapters/persistence/repositories"
	"leadflow/internal/config"
	"leadflow/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application and returns the SLA
// service so main can run its scheduler.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) *services.SLAService {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	tenantRepo := repositories.NewTenantRepository(db)
	leadRepo := repositories.NewLeadRepository(db)
	stageRepo := repositories.NewStageRepository(db)
	ruleRepo := repositories.NewRuleRepository(db)
	transitionRepo := repositories.NewTransitionRepository(db)
	documentRepo := repositories.NewDocumentRepository(db)
	teamRepo := repositories.NewTeamRepository(db)
	dashboardRepo := repositories.NewDashboardRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, tenantRepo, cfg)
	notifyService := services.NewNotificationService(
		cfg.Webhook.URL,
		time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second,
	)
	evaluator := services.NewConditionEvaluator()
	validationService := services.NewValidationService(ruleRepo, leadRepo, documentRepo, evaluator)
	transitionService := services.NewTransitionService(leadRepo, stageRepo, transitionRepo, teamRepo, notifyService)
	progressService := services.NewProgressService(leadRepo, stageRepo, transitionRepo, teamRepo, validationService)
	leadService := services.NewLeadService(leadRepo, documentRepo)
	pipelineService := services.NewPipelineService(stageRepo, ruleRepo)
	teamService := services.NewTeamService(teamRepo, stageRepo, userRepo)
	dashboardService := services.NewDashboardService(dashboardRepo, stageRepo)
	slaService := services.NewSLAService(dashboardRepo, stageRepo, transitionRepo, notifyService)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	authHandler := handlers.NewAuthHandler(authService, cfg)
	leadHandler := handlers.NewLeadHandler(leadService, transitionService, validationService, progressService, pipelineService)
	pipelineHandler := handlers.NewPipelineHandler(pipelineService)
	teamHandler := handlers.NewTeamHandler(teamService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group - every route below is tenant-scoped
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)
	apiV1.Use(middleware.TenantMiddleware(authService))

	// Auth routes
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Post("/refresh", authHandler.RefreshToken)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Post("/register",
		middleware.AuthMiddleware(cfg),
		middleware.AdminOnly(),
		authHandler.Register)
	authRoutes.Post("/logout-all", middleware.AuthMiddleware(cfg), authHandler.LogoutAll)
	authRoutes.Get("/me", middleware.AuthMiddleware(cfg), authHandler.Me)

	// Lead routes (Agent/Admin)
	leadRoutes := apiV1.Group("/leads")
	leadRoutes.Use(middleware.AuthMiddleware(cfg), middleware.AgentOrAdmin())
	leadRoutes.Post("/", leadHandler.Create)
	leadRoutes.Get("/", leadHandler.List)
	leadRoutes.Get("/:id", leadHandler.Get)
	leadRoutes.Put("/:id", leadHandler.Update)
	leadRoutes.Delete("/:id", middleware.AdminOnly(), leadHandler.Delete)

	// Pipeline views are recomputed per request; keep clients from caching
	leadRoutes.Get("/:id/stages", middleware.NoCacheHeaders(), leadHandler.Stages)
	leadRoutes.Get("/:id/transitions", middleware.NoCacheHeaders(), leadHandler.AvailableTransitions)
	leadRoutes.Post("/:id/transitions", middleware.TransitionRateLimiter(), leadHandler.ExecuteTransition)
	leadRoutes.Get("/:id/history", leadHandler.History)
	leadRoutes.Get("/:id/validations", middleware.NoCacheHeaders(), leadHandler.Validations)
	leadRoutes.Get("/:id/sidebar", middleware.NoCacheHeaders(), leadHandler.Sidebar)

	// Document routes
	leadRoutes.Get("/:id/documents", leadHandler.ListDocuments)
	leadRoutes.Post("/:id/documents", leadHandler.AddDocument)
	leadRoutes.Post("/:id/documents/:docId/review", leadHandler.ReviewDocument)

	// Pipeline administration routes (Admin only)
	pipelineRoutes := apiV1.Group("/pipeline")
	pipelineRoutes.Use(middleware.AuthMiddleware(cfg), middleware.AdminOnly())
	pipelineRoutes.Get("/stages", pipelineHandler.ListStages)
	pipelineRoutes.Post("/stages", pipelineHandler.CreateStage)
	pipelineRoutes.Put("/stages/:id", pipelineHandler.UpdateStage)
	pipelineRoutes.Delete("/stages/:id", pipelineHandler.DeleteStage)
	pipelineRoutes.Get("/rules", pipelineHandler.ListRules)
	pipelineRoutes.Post("/rules", pipelineHandler.CreateRule)
	pipelineRoutes.Put("/rules/:id", pipelineHandler.UpdateRule)
	pipelineRoutes.Delete("/rules/:id", pipelineHandler.DeleteRule)

	// Team routes
	teamRoutes := apiV1.Group("/teams")
	teamRoutes.Use(middleware.AuthMiddleware(cfg))
	teamRoutes.Get("/", teamHandler.List)
	teamRoutes.Get("/:id", teamHandler.Get)
	teamRoutes.Post("/", middleware.AdminOnly(), teamHandler.Create)
	teamRoutes.Put("/:id", middleware.AdminOnly(), teamHandler.Update)
	teamRoutes.Delete("/:id", middleware.AdminOnly(), teamHandler.Delete)
	teamRoutes.Post("/:id/members", middleware.AdminOnly(), teamHandler.AddMember)
	teamRoutes.Delete("/:id/members/:userId", middleware.AdminOnly(), teamHandler.RemoveMember)

	// Dashboard routes
	dashboardRoutes := apiV1.Group("/dashboard")
	dashboardRoutes.Use(middleware.AuthMiddleware(cfg))
	dashboardRoutes.Get("/", middleware.PrivateCacheHeaders(30*time.Second), dashboardHandler.Summary)

	return slaService
}
