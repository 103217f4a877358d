package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/history-diff-service/internal/api/dto"
	"github.com/spec-kit/history-diff-service/internal/auth"
	"github.com/spec-kit/history-diff-service/internal/events"
	"github.com/spec-kit/history-diff-service/internal/service"
)

var knownEventTypes = map[events.EventType]struct{}{
	events.EventItemLoaded:        {},
	events.EventItemUnloaded:      {},
	events.EventItemSaved:         {},
	events.EventItemReset:         {},
	events.EventItemRefreshed:     {},
	events.EventThemeChanged:      {},
	events.EventVisibilityChanged: {},
}

// EventsHandler accepts host lifecycle events from the panel.
type EventsHandler struct {
	events *service.EventService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(eventService *service.EventService) *EventsHandler {
	return &EventsHandler{events: eventService}
}

// Publish handles POST /events.
func (h *EventsHandler) Publish(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not authenticated")
	}

	var req dto.EventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	eventType := events.EventType(req.Type)
	if _, known := knownEventTypes[eventType]; !known {
		return fiber.NewError(http.StatusBadRequest, "unknown event type")
	}

	var payload interface{}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid event payload")
		}
	}

	event, err := h.events.Publish(c.UserContext(), principal.User.ID, eventType, payload)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.EventResponse{EventID: event.ID}})
}
