package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devlab/internal/api/dto"
	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/service"
)

// ProjectsHandler serves the project directory.
type ProjectsHandler struct {
	directory *service.DirectoryService
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(directory *service.DirectoryService) *ProjectsHandler {
	return &ProjectsHandler{directory: directory}
}

// List handles GET /projects?q=.
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	projects, err := h.directory.ListProjects(c.UserContext(), auth.SessionFromContext(c), c.Query("q"))
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewProjectList(projects))
}

// Get handles GET /projects/:id.
func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	view, err := h.directory.GetProject(c.UserContext(), auth.SessionFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewProjectViewResponse(view))
}

// Participants handles GET /projects/:id/participants.
func (h *ProjectsHandler) Participants(c *fiber.Ctx) error {
	users, err := h.directory.ProjectParticipants(c.UserContext(), auth.SessionFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewUserList(users))
}

// Create handles POST /projects.
func (h *ProjectsHandler) Create(c *fiber.Ctx) error {
	var req dto.ProjectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := req.ToInput()
	if err != nil {
		return err
	}
	project, err := h.directory.CreateProject(c.UserContext(), auth.SessionFromContext(c), in)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusCreated, dto.NewProjectResponse(project))
}

// Update handles PUT /projects/:id.
func (h *ProjectsHandler) Update(c *fiber.Ctx) error {
	var req dto.ProjectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := req.ToInput()
	if err != nil {
		return err
	}
	project, err := h.directory.UpdateProject(c.UserContext(), auth.SessionFromContext(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewProjectResponse(project))
}

// Delete handles DELETE /projects/:id.
func (h *ProjectsHandler) Delete(c *fiber.Ctx) error {
	if err := h.directory.DeleteProject(c.UserContext(), auth.SessionFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
