package hub

import (
	"encoding/json"
	"time"
)

// EventType tags an event for presentation by the transports.
type EventType string

const (
	EventTypeConnected EventType = "connected"
	EventTypeMessage   EventType = "message"
)

// Event is the payload the application broadcasts. The hub itself treats
// payloads opaquely; any JSON-serializable value may be broadcast.
type Event struct {
	Type      EventType `json:"type"`
	UserID    int64     `json:"user_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// ConnectedEvent is the first event a transport sends to a new subscriber.
func ConnectedEvent(userID int64) Event {
	return Event{
		Type:      EventTypeConnected,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// MessageEvent carries a text message posted by userID.
func MessageEvent(userID int64, text string) Event {
	return Event{
		Type:      EventTypeMessage,
		UserID:    userID,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}
}

// TypeOf extracts the top-level "type" of a serialized event, or
// EventTypeMessage when it has none.
func TypeOf(payload []byte) EventType {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil || head.Type == "" {
		return EventTypeMessage
	}
	return EventType(head.Type)
}
