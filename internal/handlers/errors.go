package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"devlinks/internal/services"
)

// statusOf maps a service error kind to its HTTP status.
func statusOf(kind error) int {
	switch kind {
	case services.ErrValidation:
		return fiber.StatusBadRequest
	case services.ErrUnauthorized:
		return fiber.StatusUnauthorized
	case services.ErrConflict:
		return fiber.StatusConflict
	case services.ErrNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as {"error": kind, "message": text}. Errors that
// are not service errors become a generic 500.
func writeError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   services.ErrStorage.Error(),
			"message": "internal error",
		})
	}

	body := fiber.Map{
		"error":   svcErr.Kind.Error(),
		"message": svcErr.Message,
	}
	if len(svcErr.Fields) > 0 {
		body["errors"] = svcErr.Fields
	}
	return c.Status(statusOf(svcErr.Kind)).JSON(body)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   services.ErrValidation.Error(),
		"message": message,
	})
}
