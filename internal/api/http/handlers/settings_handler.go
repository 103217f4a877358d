package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/history-diff-service/internal/api/dto"
	"github.com/spec-kit/history-diff-service/internal/auth"
	"github.com/spec-kit/history-diff-service/internal/domain"
	"github.com/spec-kit/history-diff-service/internal/service"
)

// SettingsHandler exposes per-user panel settings.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get handles GET /settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	cfg, err := h.settings.Load(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SettingsResponse{Settings: cfg}})
}

// Put handles PUT /settings.
func (h *SettingsHandler) Put(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	var req dto.SettingsUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.NumContextLines < 0 {
		return fiber.NewError(http.StatusBadRequest, "numContextLines must not be negative")
	}

	saved, err := h.settings.Save(c.UserContext(), principal.User.ID, domain.UserConfig{
		FieldFilters:         req.FieldFilters,
		FieldFiltersDisabled: req.FieldFiltersDisabled,
		ShowUnchangedLines:   req.ShowUnchangedLines,
		NumContextLines:      req.NumContextLines,
		LimitMaxTileWidth:    req.LimitMaxTileWidth,
		MaxTileWidth:         req.MaxTileWidth,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SettingsResponse{Settings: saved}})
}
