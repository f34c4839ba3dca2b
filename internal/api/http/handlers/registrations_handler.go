package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devlab/internal/api/dto"
	"github.com/spec-kit/devlab/internal/auth"
	"github.com/spec-kit/devlab/internal/service"
)

// RegistrationsHandler serves the signup queue.
type RegistrationsHandler struct {
	registrations *service.RegistrationService
}

// NewRegistrationsHandler constructs handler.
func NewRegistrationsHandler(registrations *service.RegistrationService) *RegistrationsHandler {
	return &RegistrationsHandler{registrations: registrations}
}

// Submit handles the public POST /registrations.
func (h *RegistrationsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitRegistrationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	birth, err := time.Parse(dto.DateLayout, req.BirthDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid birth_date")
	}
	created, err := h.registrations.Submit(c.UserContext(), service.SubmitInput{
		FullName:        req.FullName,
		Email:           req.Email,
		BirthDate:       birth,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}
	return data(c, fiber.StatusCreated, dto.NewRegistrationResponse(created))
}

// List handles GET /registrations?status=&q=.
func (h *RegistrationsHandler) List(c *fiber.Ctx) error {
	list, err := h.registrations.List(c.UserContext(), auth.SessionFromContext(c), service.RegistrationListInput{
		Status: c.Query("status"),
		Query:  c.Query("q"),
	})
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewRegistrationListResponse(list))
}

// Get handles GET /registrations/:id.
func (h *RegistrationsHandler) Get(c *fiber.Ctx) error {
	req, err := h.registrations.Get(c.UserContext(), auth.SessionFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewRegistrationResponse(req))
}

// Approve handles POST /registrations/:id/approve.
func (h *RegistrationsHandler) Approve(c *fiber.Ctx) error {
	result, err := h.registrations.Approve(c.UserContext(), auth.SessionFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewApprovalResponse(result))
}

// Reject handles POST /registrations/:id/reject.
func (h *RegistrationsHandler) Reject(c *fiber.Ctx) error {
	var req dto.RejectRegistrationRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	rejected, err := h.registrations.Reject(c.UserContext(), auth.SessionFromContext(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewRegistrationResponse(rejected))
}
