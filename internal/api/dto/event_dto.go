package dto

import "encoding/json"

// EventRequest is a host lifecycle event forwarded by the panel.
type EventRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EventResponse acknowledges a dispatched event.
type EventResponse struct {
	EventID string `json:"event_id"`
}
