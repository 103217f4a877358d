package events

import "time"

// EventType enumerates host lifecycle event identifiers.
type EventType string

const (
	EventItemLoaded        EventType = "item_loaded"
	EventItemUnloaded      EventType = "item_unloaded"
	EventItemSaved         EventType = "item_saved"
	EventItemReset         EventType = "item_reset"
	EventItemRefreshed     EventType = "item_refreshed"
	EventThemeChanged      EventType = "theme_changed"
	EventVisibilityChanged EventType = "visibility_changed"
)

// Event represents a host lifecycle event forwarded by the panel.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ItemPayload identifies the work item an item_* event refers to.
type ItemPayload struct {
	Project string `json:"project"`
	ItemID  int    `json:"item_id"`
}

// ThemeChangedPayload payload.
type ThemeChangedPayload struct {
	Dark bool `json:"dark"`
}

// VisibilityChangedPayload payload.
type VisibilityChangedPayload struct {
	Visible bool `json:"visible"`
}
