package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devlab/internal/api/dto"
	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/service"
)

// DashboardHandler serves landing views.
type DashboardHandler struct {
	dashboards *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboards *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// Dashboard handles GET /dashboard.
func (h *DashboardHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.dashboards.ForSession(c.UserContext(), auth.SessionFromContext(c))
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewDashboardResponse(d))
}

// Public handles GET /public/overview.
func (h *DashboardHandler) Public(c *fiber.Ctx) error {
	o, err := h.dashboards.Public(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewPublicOverviewResponse(o))
}
