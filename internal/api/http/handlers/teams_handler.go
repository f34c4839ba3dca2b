package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devlab/internal/api/dto"
	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/service"
)

// TeamsHandler serves teams and their membership.
type TeamsHandler struct {
	directory *service.DirectoryService
}

// NewTeamsHandler constructs handler.
func NewTeamsHandler(directory *service.DirectoryService) *TeamsHandler {
	return &TeamsHandler{directory: directory}
}

// List handles GET /teams?q=.
func (h *TeamsHandler) List(c *fiber.Ctx) error {
	teams, err := h.directory.ListTeams(c.UserContext(), auth.SessionFromContext(c), c.Query("q"))
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewTeamList(teams))
}

// Get handles GET /teams/:id.
func (h *TeamsHandler) Get(c *fiber.Ctx) error {
	view, err := h.directory.GetTeam(c.UserContext(), auth.SessionFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewTeamViewResponse(view))
}

// Create handles POST /teams.
func (h *TeamsHandler) Create(c *fiber.Ctx) error {
	var req dto.TeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := h.directory.CreateTeam(c.UserContext(), auth.SessionFromContext(c), req.ToInput())
	if err != nil {
		return err
	}
	return data(c, fiber.StatusCreated, dto.NewTeamResponse(team))
}

// Update handles PUT /teams/:id.
func (h *TeamsHandler) Update(c *fiber.Ctx) error {
	var req dto.TeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := h.directory.UpdateTeam(c.UserContext(), auth.SessionFromContext(c), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewTeamResponse(team))
}

// Delete handles DELETE /teams/:id.
func (h *TeamsHandler) Delete(c *fiber.Ctx) error {
	if err := h.directory.DeleteTeam(c.UserContext(), auth.SessionFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddMember handles POST /teams/:id/members.
func (h *TeamsHandler) AddMember(c *fiber.Ctx) error {
	var req dto.MemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.directory.AddMember(c.UserContext(), auth.SessionFromContext(c), c.Params("id"), req.UserID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveMember handles DELETE /teams/:id/members/:userID.
func (h *TeamsHandler) RemoveMember(c *fiber.Ctx) error {
	if err := h.directory.RemoveMember(c.UserContext(), auth.SessionFromContext(c), c.Params("id"), c.Params("userID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
