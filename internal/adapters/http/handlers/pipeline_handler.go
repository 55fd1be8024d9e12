package handlers

import (
	"errors"

	"leadflow/internal/adapters/http/middleware"
	"leadflow/internal/adapters/persistence/models"
	"leadflow/internal/core/domain"
	"leadflow/internal/core/services"
	"leadflow/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PipelineHandler handles stage and rule administration endpoints
type PipelineHandler struct {
	pipelineService *services.PipelineService
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(pipelineService *services.PipelineService) *PipelineHandler {
	return &PipelineHandler{
		pipelineService: pipelineService,
	}
}

// ListStages lists pipeline stages
// @Summary List stages
// @Description List every pipeline stage of the tenant, inactive included
// @Tags Pipeline Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Body
// @Router /pipeline/stages [get]
func (h *PipelineHandler) ListStages(c *fiber.Ctx) error {
	stages, err := h.pipelineService.ListAllStages(c.Context(), middleware.TenantID(c))
	if err != nil {
		return response.InternalServerError(c, "Failed to list stages")
	}

	items := make([]*models.StageResponse, 0, len(stages))
	for _, stage := range stages {
		items = append(items, stage.ToResponse())
	}

	return response.Success(c, "Stages retrieved successfully", fiber.Map{
		"stages": items,
	})
}

// CreateStage creates a pipeline stage
// @Summary Create stage
// @Description Create a pipeline stage (Admin only); a final stage must not declare outgoing transitions
// @Tags Pipeline Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.StageInput true "Stage data"
// @Success 201 {object} response.Body
// @Failure 400 {object} response.Body
// @Router /pipeline/stages [post]
func (h *PipelineHandler) CreateStage(c *fiber.Ctx) error {
	var input services.StageInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	stage, err := h.pipelineService.CreateStage(c.Context(), middleware.TenantID(c), &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrFinalStageTransitions):
			return response.BadRequest(c, "A final stage must not declare outgoing transitions")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to create stage")
		}
	}

	return response.Created(c, "Stage created successfully", fiber.Map{
		"stage": stage.ToResponse(),
	})
}

// UpdateStage updates a pipeline stage
// @Summary Update stage
// @Description Replace a stage's configuration (Admin only)
// @Tags Pipeline Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Stage ID"
// @Param body body services.StageInput true "Stage data"
// @Success 200 {object} response.Body
// @Failure 400 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /pipeline/stages/{id} [put]
func (h *PipelineHandler) UpdateStage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid stage ID")
	}

	var input services.StageInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	stage, err := h.pipelineService.UpdateStage(c.Context(), middleware.TenantID(c), id, &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStageNotFound):
			return response.NotFound(c, "Stage not found")
		case errors.Is(err, domain.ErrFinalStageTransitions):
			return response.BadRequest(c, "A final stage must not declare outgoing transitions")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to update stage")
		}
	}

	return response.Success(c, "Stage updated successfully", fiber.Map{
		"stage": stage.ToResponse(),
	})
}

// DeleteStage deletes a pipeline stage
// @Summary Delete stage
// @Description Soft delete a pipeline stage (Admin only)
// @Tags Pipeline Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Stage ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /pipeline/stages/{id} [delete]
func (h *PipelineHandler) DeleteStage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid stage ID")
	}

	if err := h.pipelineService.DeleteStage(c.Context(), middleware.TenantID(c), id); err != nil {
		if errors.Is(err, domain.ErrStageNotFound) {
			return response.NotFound(c, "Stage not found")
		}
		return response.InternalServerError(c, "Failed to delete stage")
	}

	return response.Success(c, "Stage deleted successfully", nil)
}

// ListRules lists validation rules
// @Summary List rules
// @Description List every validation rule of the tenant, disabled included
// @Tags Pipeline Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Body
// @Router /pipeline/rules [get]
func (h *PipelineHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.pipelineService.ListRules(c.Context(), middleware.TenantID(c))
	if err != nil {
		return response.InternalServerError(c, "Failed to list rules")
	}

	return response.Success(c, "Rules retrieved successfully", fiber.Map{
		"rules": rules,
	})
}

// CreateRule creates a validation rule
// @Summary Create rule
// @Description Create a validation rule (Admin only); the condition tree is validated before the rule is stored
// @Tags Pipeline Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.RuleInput true "Rule data"
// @Success 201 {object} response.Body
// @Failure 400 {object} response.Body
// @Router /pipeline/rules [post]
func (h *PipelineHandler) CreateRule(c *fiber.Ctx) error {
	var input services.RuleInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	rule, err := h.pipelineService.CreateRule(c.Context(), middleware.TenantID(c), &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRuleConditionInvalid):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrStageNotFound):
			return response.NotFound(c, "Stage not found")
		default:
			return response.InternalServerError(c, "Failed to create rule")
		}
	}

	return response.Created(c, "Rule created successfully", fiber.Map{
		"rule": rule,
	})
}

// UpdateRule updates a validation rule
// @Summary Update rule
// @Description Replace a rule's configuration (Admin only)
// @Tags Pipeline Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Rule ID"
// @Param body body services.RuleInput true "Rule data"
// @Success 200 {object} response.Body
// @Failure 400 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /pipeline/rules/{id} [put]
func (h *PipelineHandler) UpdateRule(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid rule ID")
	}

	var input services.RuleInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	rule, err := h.pipelineService.UpdateRule(c.Context(), middleware.TenantID(c), id, &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "Rule not found")
		case errors.Is(err, domain.ErrRuleConditionInvalid):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrStageNotFound):
			return response.NotFound(c, "Stage not found")
		default:
			return response.InternalServerError(c, "Failed to update rule")
		}
	}

	return response.Success(c, "Rule updated successfully", fiber.Map{
		"rule": rule,
	})
}

// DeleteRule deletes a validation rule
// @Summary Delete rule
// @Description Soft delete a validation rule (Admin only)
// @Tags Pipeline Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Rule ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /pipeline/rules/{id} [delete]
func (h *PipelineHandler) DeleteRule(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid rule ID")
	}

	if err := h.pipelineService.DeleteRule(c.Context(), middleware.TenantID(c), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "Rule not found")
		}
		return response.InternalServerError(c, "Failed to delete rule")
	}

	return response.Success(c, "Rule deleted successfully", nil)
}
