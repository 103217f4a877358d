package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/history-diff-service/internal/api/dto"
	"github.com/spec-kit/history-diff-service/internal/auth"
	"github.com/spec-kit/history-diff-service/internal/service"
)

// HistoryHandler exposes the history pipeline and the interactive cutout
// operations on its render sessions.
type HistoryHandler struct {
	history  *service.HistoryService
	settings *service.SettingsService
}

// NewHistoryHandler constructs handler.
func NewHistoryHandler(history *service.HistoryService, settings *service.SettingsService) *HistoryHandler {
	return &HistoryHandler{history: history, settings: settings}
}

// Load handles GET /projects/:project/items/:id/history.
func (h *HistoryHandler) Load(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	project := c.Params("project")
	itemID, err := c.ParamsInt("id")
	if err != nil || itemID <= 0 {
		return fiber.NewError(http.StatusBadRequest, "invalid item id")
	}

	cfg, err := h.settings.Load(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}

	vp := service.Viewport{
		WidthPx:      queryFloat(c, "viewport_width_px"),
		LineHeightPx: queryFloat(c, "line_height_px"),
	}

	result, err := h.history.Load(c.UserContext(), principal.User.ID, project, itemID, cfg, vp)
	if err != nil {
		if errors.Is(err, service.ErrStale) {
			// A newer reload superseded this one; the client's newer
			// request carries the answer.
			return c.Status(http.StatusConflict).JSON(fiber.Map{
				"error": fiber.Map{"code": "SUPERSEDED", "message": "a newer reload is in flight"},
			})
		}
		return err
	}

	return c.JSON(fiber.Map{"data": dto.HistoryResponse{
		SessionID:  result.SessionID,
		Generation: result.Generation,
		Blocks:     result.Blocks,
		RowLabels:  result.RowLabels,
	}})
}

// Recompute handles POST /projects/:project/items/:id/history/recompute.
func (h *HistoryHandler) Recompute(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return fiber.NewError(http.StatusBadRequest, "session_id required")
	}

	var req dto.RecomputeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.history.Recompute(c.UserContext(), sessionID,
		service.Viewport{WidthPx: req.ViewportWidthPx, LineHeightPx: req.LineHeightPx},
		req.ScrollOffset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.RecomputeResponse{
		Superseded:   result.Superseded,
		Blocks:       result.Blocks,
		ScrollOffset: result.ScrollOffset,
	}})
}

// Expand handles POST /sessions/:session/cells/:cell/expand.
func (h *HistoryHandler) Expand(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	var req dto.ExpandRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	view, err := h.history.ExpandCell(c.Params("session"), c.Params("cell"), req.BorderIndex)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"view": view}})
}

// ShowAll handles POST /sessions/:session/show-all.
func (h *HistoryHandler) ShowAll(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	blocks, err := h.history.ShowAll(c.Params("session"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BlocksResponse{Blocks: blocks}})
}

// Restore handles POST /sessions/:session/restore.
func (h *HistoryHandler) Restore(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}
	blocks, err := h.history.RestoreAll(c.Params("session"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BlocksResponse{Blocks: blocks}})
}

func queryFloat(c *fiber.Ctx, key string) float64 {
	val := c.Query(key)
	if val == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return parsed
}
