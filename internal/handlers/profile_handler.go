package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"devlinks/internal/services"
)

// ProfileHandler serves public profiles by handle. It needs no session.
type ProfileHandler struct {
	resolver *services.ProfileResolver
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(resolver *services.ProfileResolver) *ProfileHandler {
	return &ProfileHandler{resolver: resolver}
}

// RegisterRoutes registers the public profile route.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/u/:handle", h.HandleGetProfile)
}

// HandleGetProfile returns {user} without email or credential.
func (h *ProfileHandler) HandleGetProfile(c *fiber.Ctx) error {
	handle, err := url.PathUnescape(c.Params("handle"))
	if err != nil {
		return badRequest(c, "malformed handle")
	}

	profile, err := h.resolver.ResolveByHandle(c.UserContext(), handle)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"user": profile})
}
