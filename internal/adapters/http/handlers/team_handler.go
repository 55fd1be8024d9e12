package handlers

import (
	"errors"

	"leadflow/internal/adapters/http/middleware"
	"leadflow/internal/core/domain"
	"leadflow/internal/core/services"
	"leadflow/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TeamHandler handles team administration endpoints
type TeamHandler struct {
	teamService *services.TeamService
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// List lists teams
// @Summary List teams
// @Description List the tenant's teams with members and stages
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Body
// @Router /teams [get]
func (h *TeamHandler) List(c *fiber.Ctx) error {
	teams, err := h.teamService.List(c.Context(), middleware.TenantID(c))
	if err != nil {
		return response.InternalServerError(c, "Failed to list teams")
	}

	return response.Success(c, "Teams retrieved successfully", fiber.Map{
		"teams": teams,
	})
}

// Get gets a team by ID
// @Summary Get team
// @Description Get a team with its members and stages
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /teams/{id} [get]
func (h *TeamHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid team ID")
	}

	team, err := h.teamService.GetByID(c.Context(), middleware.TenantID(c), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "Team not found")
		}
		return response.InternalServerError(c, "Failed to get team")
	}

	return response.Success(c, "Team retrieved successfully", fiber.Map{
		"team": team,
	})
}

// Create creates a team
// @Summary Create team
// @Description Create a team and assign its stages (Admin only)
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.TeamInput true "Team data"
// @Success 201 {object} response.Body
// @Failure 400 {object} response.Body
// @Router /teams [post]
func (h *TeamHandler) Create(c *fiber.Ctx) error {
	var input services.TeamInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	team, err := h.teamService.Create(c.Context(), middleware.TenantID(c), &input)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to create team")
	}

	return response.Created(c, "Team created successfully", fiber.Map{
		"team": team,
	})
}

// Update updates a team
// @Summary Update team
// @Description Update a team and replace its stage set (Admin only)
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param body body services.TeamInput true "Team data"
// @Success 200 {object} response.Body
// @Failure 400 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /teams/{id} [put]
func (h *TeamHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid team ID")
	}

	var input services.TeamInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	team, err := h.teamService.Update(c.Context(), middleware.TenantID(c), id, &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "Team not found")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to update team")
		}
	}

	return response.Success(c, "Team updated successfully", fiber.Map{
		"team": team,
	})
}

// Delete deletes a team
// @Summary Delete team
// @Description Soft delete a team (Admin only)
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /teams/{id} [delete]
func (h *TeamHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid team ID")
	}

	if err := h.teamService.Delete(c.Context(), middleware.TenantID(c), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "Team not found")
		}
		return response.InternalServerError(c, "Failed to delete team")
	}

	return response.Success(c, "Team deleted successfully", nil)
}

// AddMemberRequest represents add member request body
type AddMemberRequest struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

// AddMember adds a user to a team
// @Summary Add team member
// @Description Add a tenant user to a team (Admin only)
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param body body AddMemberRequest true "Member data"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /teams/{id}/members [post]
func (h *TeamHandler) AddMember(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid team ID")
	}

	var req AddMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.UserID == 0 {
		return response.BadRequest(c, "User ID is required")
	}

	team, err := h.teamService.AddMember(c.Context(), middleware.TenantID(c), id, req.UserID, req.Role)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "Team or user not found")
		}
		return response.InternalServerError(c, "Failed to add member")
	}

	return response.Success(c, "Member added successfully", fiber.Map{
		"team": team,
	})
}

// RemoveMember removes a user from a team
// @Summary Remove team member
// @Description Remove a user from a team (Admin only)
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param userId path int true "User ID"
// @Success 200 {object} response.Body
// @Failure 404 {object} response.Body
// @Router /teams/{id}/members/{userId} [delete]
func (h *TeamHandler) RemoveMember(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid team ID")
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.teamService.RemoveMember(c.Context(), middleware.TenantID(c), id, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "Team not found")
		}
		return response.InternalServerError(c, "Failed to remove member")
	}

	return response.Success(c, "Member removed successfully", nil)
}
