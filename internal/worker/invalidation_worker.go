package worker

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/history-diff-service/internal/events"
	"github.com/spec-kit/history-diff-service/internal/service"
)

// StartInvalidationWorker subscribes session invalidation to host
// lifecycle events. A save, reset or refresh of an item makes every open
// render session for it stale; unloading the item drops them too.
func StartInvalidationWorker(dispatcher events.Dispatcher, sessions *service.SessionManager, logger *zap.Logger) {
	if dispatcher == nil || sessions == nil {
		return
	}

	invalidate := func(ctx context.Context, event events.Event) error {
		item, ok := itemPayload(event)
		if !ok {
			logger.Warn("lifecycle event without item payload",
				zap.String("type", string(event.Type)))
			return nil
		}
		sessions.Invalidate(item.Project, item.ItemID)
		logger.Info("sessions invalidated",
			zap.String("type", string(event.Type)),
			zap.String("project", item.Project),
			zap.Int("item_id", item.ItemID))
		return nil
	}

	dispatcher.Subscribe(events.EventItemSaved, invalidate)
	dispatcher.Subscribe(events.EventItemReset, invalidate)
	dispatcher.Subscribe(events.EventItemRefreshed, invalidate)
	dispatcher.Subscribe(events.EventItemUnloaded, invalidate)
}

// itemPayload extracts the item reference from the event payload, which
// arrives either typed (internal publish) or as decoded JSON (HTTP).
func itemPayload(event events.Event) (events.ItemPayload, bool) {
	switch p := event.Payload.(type) {
	case events.ItemPayload:
		return p, true
	case *events.ItemPayload:
		if p != nil {
			return *p, true
		}
	case map[string]interface{}:
		raw, err := json.Marshal(p)
		if err != nil {
			return events.ItemPayload{}, false
		}
		var item events.ItemPayload
		if err := json.Unmarshal(raw, &item); err != nil {
			return events.ItemPayload{}, false
		}
		return item, item.Project != "" && item.ItemID != 0
	}
	return events.ItemPayload{}, false
}
