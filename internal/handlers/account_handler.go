package handlers

import (
	"github.com/gofiber/fiber/v2"

	"devlinks/internal/logging"
	"devlinks/internal/middleware"
	"devlinks/internal/models"
	"devlinks/internal/services"
)

// AccountHandler handles HTTP requests for registration, login and the
// owner's profile.
type AccountHandler struct {
	service *services.AccountService
	logger  logging.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(service *services.AccountService, logger logging.Logger) *AccountHandler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AccountHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the account routes with the Fiber app.
func (h *AccountHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)

	me := router.Group("/me", middleware.BearerToken())
	me.Get("/", h.HandleGetMe)
	me.Put("/", h.HandlePatchMe)
	me.Patch("/", h.HandlePatchMe)

	router.Post("/upload/avatar", middleware.BearerToken(), h.HandleUploadAvatar)
}

// HandleRegister creates an account and returns {token, user}.
func (h *AccountHandler) HandleRegister(c *fiber.Ctx) error {
	var creds services.Credentials
	if err := c.BodyParser(&creds); err != nil {
		h.logger.Debug(c.UserContext(), "invalid register body", "error", err)
		return badRequest(c, "invalid request body")
	}

	result, err := h.service.Register(c.UserContext(), creds)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}

// HandleLogin checks credentials and returns {token, user}.
func (h *AccountHandler) HandleLogin(c *fiber.Ctx) error {
	var creds services.Credentials
	if err := c.BodyParser(&creds); err != nil {
		h.logger.Debug(c.UserContext(), "invalid login body", "error", err)
		return badRequest(c, "invalid request body")
	}

	result, err := h.service.Login(c.UserContext(), creds)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}

// HandleGetMe returns the caller's own account.
func (h *AccountHandler) HandleGetMe(c *fiber.Ctx) error {
	account, err := h.service.GetProfile(c.UserContext(), middleware.Token(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"user": account})
}

// HandlePatchMe merges handle, theme, socials and links into the caller's
// account. Other fields in the body are ignored.
func (h *AccountHandler) HandlePatchMe(c *fiber.Ctx) error {
	var patch models.ProfilePatch
	if err := c.BodyParser(&patch); err != nil {
		h.logger.Debug(c.UserContext(), "invalid profile body", "error", err)
		return badRequest(c, "invalid request body")
	}

	account, err := h.service.PatchProfile(c.UserContext(), middleware.Token(c), patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"user": account})
}

// HandleUploadAvatar stores the multipart "file" field as the caller's
// avatar. The "variant" query parameter picks the slot (dark by default).
// A missing file is reported only after the token has been checked.
func (h *AccountHandler) HandleUploadAvatar(c *fiber.Ctx) error {
	variant := c.Query("variant", services.AvatarVariantDark)

	var upload services.AvatarUpload
	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			h.logger.Error(c.UserContext(), "failed to open uploaded file", "error", err)
			return badRequest(c, "could not read uploaded file")
		}
		defer file.Close()

		upload = services.AvatarUpload{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
			Size:        fileHeader.Size,
			Body:        file,
		}
	}

	result, err := h.service.UploadAvatar(c.UserContext(), middleware.Token(c), variant, upload)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}
