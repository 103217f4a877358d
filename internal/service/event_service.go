package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/history-diff-service/internal/events"
)

// EventService accepts host lifecycle events from the panel and publishes
// them on the dispatcher. Session invalidation happens in the subscribed
// worker, not here.
type EventService struct {
	dispatcher events.Dispatcher
}

// NewEventService builds the service.
func NewEventService(dispatcher events.Dispatcher) *EventService {
	return &EventService{dispatcher: dispatcher}
}

// Publish stamps and dispatches one event.
func (s *EventService) Publish(ctx context.Context, userID string, eventType events.EventType, payload interface{}) (events.Event, error) {
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	return event, s.dispatcher.Publish(ctx, event)
}
