package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devlab/internal/api/dto"
)

// parseBody decodes the JSON body into req and checks its validation tags.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	return dto.Validate(req)
}

func data(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"data": payload})
}
