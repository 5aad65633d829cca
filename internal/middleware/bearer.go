package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenKey is the fiber.Ctx locals key holding the bearer token.
const TokenKey = "token"

// BearerToken is a Fiber middleware that requires an
// "Authorization: Bearer <token>" header and stores the token in the
// request locals. Resolving the token is left to the services.
func BearerToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "missing token")
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			return unauthorized(c, "authorization header format must be 'Bearer <token>'")
		}

		c.Locals(TokenKey, strings.TrimSpace(parts[1]))
		return c.Next()
	}
}

// Token returns the bearer token stored by BearerToken, or "".
func Token(c *fiber.Ctx) string {
	token, _ := c.Locals(TokenKey).(string)
	return token
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": message,
	})
}
