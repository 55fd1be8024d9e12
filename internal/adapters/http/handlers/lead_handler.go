package handlers

import (
	"errors"
	"strconv"

	"leadflow/internal/adapters/http/middleware"
	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/adapters/persistence/repositories"
	"leadflow/internal/core/domain"
	"leadflow/internal/core/services"
	"leadflow/internal/pkg/pagination"
	"leadflow/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LeadHandler handles lead and pipeline endpoints
type LeadHandler struct {
	leadService       *services.LeadService
	transitionService *services.TransitionService
	validationService *services.ValidationService
	progressService   *services.ProgressService
	pipelineService   *services.PipelineService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(
	leadService *services.LeadService,
	transitionService *services.TransitionService,
	validationService *services.ValidationService,
	progressService *services.ProgressService,
	pipelineService *services.PipelineService,
) *LeadHandler {
	return &LeadHandler{
		leadService:       leadService,
		transitionService: transitionService,
		validationService: validationService,
		progressService:   progressService,
		pipelineService:   pipelineService,
	}
}

// paramID parses a numeric path parameter
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// Create creates a new lead
// @Summary Create lead
// @Description Create a new lead in draft state
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateLeadInput true "Lead data"
// @Success 201 {object} response.Body
// @Failure 400 {object} response.Body
// @Router /leads [post]
func (h *LeadHandler) Create(c *fiber.Ctx) error {
	var input services.CreateLeadInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	lead, err := h.leadService.Create(c.Context(), middleware.TenantID(c), middleware.UserID(c), &input)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to create lead")
	}

	return response.Created(c, "Lead created successfully", fiber.Map{
		"lead": lead.ToResponse(),
	})
}

// List lists leads
// @Summary List leads
// @Description List leads with pagination and filters
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param stage_id query int false "Filter by current stage"
// @Param team_id query int false "Filter by assigned team"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Body
// @Router /leads [get]
func (h *LeadHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	filter := repositories.LeadFilter{
		Status: c.Query("status"),
		Offset: params.Offset,
		Limit:  params.Limit,
	}
	if raw := c.Query("stage_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			stageID := uint(id)
			filter.StageID = &stageID
		}
	}
	if raw := c.Query("team_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			teamID := uint(id)
			filter.TeamID = &teamID
		}
	}

	leads, total, err := h.leadService.List(c.Context(), middleware.TenantID(c), filter)
	if err != nil {
		return response.InternalServerError(c, "Failed to list leads")
	}

	items := make([]*models.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, lead.ToResponse())
	}

	return response.Success(c, "Leads retrieved successfully", pagination.NewResponse(items, params, total))
}

// Get gets a lead by ID
// @Summary Get lead
// @Description Get a lead with its current stage and team
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id} [get]
func (h *LeadHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	lead, err := h.leadService.GetByID(c.Context(), middleware.TenantID(c), id)
	if err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) {
			return response.NotFound(c, "Lead not found")
		}
		return response.InternalServerError(c, "Failed to get lead")
	}

	return response.Success(c, "Lead retrieved successfully", fiber.Map{
		"lead": lead.ToResponse(),
	})
}

// Update updates a lead
// @Summary Update lead
// @Description Apply a partial update to a lead
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param body body services.UpdateLeadInput true "Fields to update"
// @Success 200 {object} response.Body
// @Failure 400 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id} [put]
func (h *LeadHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	var input services.UpdateLeadInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	lead, err := h.leadService.Update(c.Context(), middleware.TenantID(c), id, &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLeadNotFound):
			return response.NotFound(c, "Lead not found")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to update lead")
		}
	}

	return response.Success(c, "Lead updated successfully", fiber.Map{
		"lead": lead.ToResponse(),
	})
}

// Delete deletes a lead
// @Summary Delete lead
// @Description Soft delete a lead (Admin only)
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id} [delete]
func (h *LeadHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	if err := h.leadService.Delete(c.Context(), middleware.TenantID(c), id); err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) {
			return response.NotFound(c, "Lead not found")
		}
		return response.InternalServerError(c, "Failed to delete lead")
	}

	return response.Success(c, "Lead deleted successfully", nil)
}

// Stages returns the tenant's stage graph for a lead
// @Summary Get pipeline stages
// @Description Get the active stage graph the lead moves through
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id}/stages [get]
func (h *LeadHandler) Stages(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}
	tenantID := middleware.TenantID(c)

	if _, err := h.leadService.GetByID(c.Context(), tenantID, id); err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) {
			return response.NotFound(c, "Lead not found")
		}
		return response.InternalServerError(c, "Failed to get lead")
	}

	stages, err := h.pipelineService.ListStages(c.Context(), tenantID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list stages")
	}

	items := make([]*models.StageResponse, 0, len(stages))
	for _, stage := range stages {
		items = append(items, stage.ToResponse())
	}

	return response.Success(c, "Stages retrieved successfully", fiber.Map{
		"stages":       items,
		"total_stages": len(items),
	})
}

// AvailableTransitions returns the stages a lead may move to
// @Summary Get available transitions
// @Description Get the stage IDs the lead can transition to, optionally filtered by a user's team permissions
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param user_id query int false "Filter by acting user's team permissions"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id}/transitions [get]
func (h *LeadHandler) AvailableTransitions(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	var userID *uint
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "Invalid user_id")
		}
		u := uint(parsed)
		userID = &u
	}

	targets, err := h.transitionService.AvailableTransitions(c.Context(), middleware.TenantID(c), id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) {
			return response.NotFound(c, "Lead not found")
		}
		return response.InternalServerError(c, "Failed to compute transitions")
	}

	return response.Success(c, "Available transitions retrieved successfully", fiber.Map{
		"available_transitions": targets,
	})
}

// ExecuteTransition moves a lead to a new stage
// @Summary Execute transition
// @Description Move a lead to a target stage; authorization is re-checked at execution time
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param body body services.ExecuteTransitionInput true "Transition request"
// @Success 200 {object} response.Body
// @Failure 400 {object} response.Body
// @Failure 403 {object} response.Body
// @Failure 404 {object} response.Body
// @Failure 409 {object} response.Body
// @Router /leads/{id}/transitions [post]
func (h *LeadHandler) ExecuteTransition(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	var input services.ExecuteTransitionInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	input.LeadID = id
	input.TriggeredBy = middleware.UserID(c)

	result, err := h.transitionService.ExecuteTransition(c.Context(), middleware.TenantID(c), input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrTransitionNotAllowed):
			return response.Forbidden(c, "Transition not allowed from the current stage")
		case errors.Is(err, domain.ErrLeadNotFound):
			return response.NotFound(c, "Lead not found")
		case errors.Is(err, domain.ErrStageNotFound):
			return response.NotFound(c, "Target stage not found")
		case errors.Is(err, domain.ErrStageConflict):
			return response.Conflict(c, "Lead was moved by someone else, please reload and retry")
		default:
			return response.InternalServerError(c, "Failed to execute transition")
		}
	}

	data := fiber.Map{
		"lead":       result.Lead.ToResponse(),
		"transition": result.Transition,
	}
	if result.AssignedTeam != nil {
		data["assigned_team"] = result.AssignedTeam
	}

	return response.Success(c, "Lead moved successfully", data)
}

// History returns the lead's transition audit trail
// @Summary Get transition history
// @Description Get the lead's recorded stage changes, newest first
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id}/history [get]
func (h *LeadHandler) History(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	transitions, err := h.transitionService.History(c.Context(), middleware.TenantID(c), id)
	if err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) {
			return response.NotFound(c, "Lead not found")
		}
		return response.InternalServerError(c, "Failed to get history")
	}

	return response.Success(c, "History retrieved successfully", fiber.Map{
		"transitions": transitions,
	})
}

// Validations evaluates the lead against its applicable rules
// @Summary Get validation results
// @Description Evaluate every enabled rule for the lead's current stage; results are computed fresh on each call
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id}/validations [get]
func (h *LeadHandler) Validations(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	lead, results, summary, err := h.validationService.EvaluateLead(c.Context(), middleware.TenantID(c), id)
	if err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) {
			return response.NotFound(c, "Lead not found")
		}
		return response.InternalServerError(c, "Failed to evaluate rules")
	}

	return response.Success(c, "Validations evaluated successfully", fiber.Map{
		"validations": results,
		"summary":     summary,
		"lead_info":   lead.ToResponse(),
	})
}

// Sidebar returns the progress aggregate for a lead
// @Summary Get lead sidebar
// @Description Get dwell times, SLA status, team members and validation summary for a lead
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id}/sidebar [get]
func (h *LeadHandler) Sidebar(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	progress, err := h.progressService.GetProgress(c.Context(), middleware.TenantID(c), id)
	if err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) {
			return response.NotFound(c, "Lead not found")
		}
		return response.InternalServerError(c, "Failed to build sidebar")
	}

	return response.Success(c, "Sidebar retrieved successfully", progress)
}

// ListDocuments lists a lead's documents
// @Summary List lead documents
// @Description List documents attached to a lead
// @Tags Documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id}/documents [get]
func (h *LeadHandler) ListDocuments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	docs, err := h.leadService.ListDocuments(c.Context(), middleware.TenantID(c), id)
	if err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) {
			return response.NotFound(c, "Lead not found")
		}
		return response.InternalServerError(c, "Failed to list documents")
	}

	return response.Success(c, "Documents retrieved successfully", fiber.Map{
		"documents": docs,
	})
}

// AddDocument attaches a document record to a lead
// @Summary Add lead document
// @Description Record a submitted document for a lead
// @Tags Documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param body body services.AddDocumentInput true "Document data"
// @Success 201 {object} response.Body
// @Failure 400 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id}/documents [post]
func (h *LeadHandler) AddDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}

	var input services.AddDocumentInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	doc, err := h.leadService.AddDocument(c.Context(), middleware.TenantID(c), id, middleware.UserID(c), &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLeadNotFound):
			return response.NotFound(c, "Lead not found")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to add document")
		}
	}

	return response.Created(c, "Document added successfully", fiber.Map{
		"document": doc,
	})
}

// ReviewDocumentRequest represents document review request body
type ReviewDocumentRequest struct {
	Approve bool `json:"approve"`
}

// ReviewDocument marks a document verified or rejected
// @Summary Review lead document
// @Description Mark a lead document as verified or rejected
// @Tags Documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Lead ID"
// @Param docId path int true "Document ID"
// @Param body body ReviewDocumentRequest true "Review decision"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /leads/{id}/documents/{docId}/review [post]
func (h *LeadHandler) ReviewDocument(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lead ID")
	}
	docID, err := paramID(c, "docId")
	if err != nil {
		return response.BadRequest(c, "Invalid document ID")
	}

	var req ReviewDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	doc, err := h.leadService.ReviewDocument(c.Context(), middleware.TenantID(c), id, docID, middleware.UserID(c), req.Approve)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLeadNotFound):
			return response.NotFound(c, "Lead not found")
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "Document not found")
		default:
			return response.InternalServerError(c, "Failed to review document")
		}
	}

	return response.Success(c, "Document reviewed successfully", fiber.Map{
		"document": doc,
	})
}
