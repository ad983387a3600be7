// Package hooks implements the server's client lifecycle event system:
// pluggable shell/stdio/webhook sinks fired on join, leave, and
// authentication outcomes.
package hooks

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of client lifecycle event that occurred.
type EventType string

const (
	EventClientJoin      EventType = "client_join"
	EventClientLeave     EventType = "client_leave"
	EventHandshakeFailed EventType = "handshake_failed"
	EventAuthFailed      EventType = "auth_failed"
	EventStreamStart     EventType = "stream_start"
	EventStreamStop      EventType = "stream_stop"
)

// Event represents a single lifecycle event that can trigger hooks.
type Event struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	Timestamp  int64                  `json:"timestamp"`
	ClientID   uint32                 `json:"client_id,omitempty"`
	RemoteAddr string                 `json:"remote_addr,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates a new event stamped with the current time and a unique
// id, so a webhook sink can dedupe retried deliveries.
func NewEvent(eventType EventType) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      make(map[string]interface{}),
	}
}

// WithClientID sets the event's client id.
func (e *Event) WithClientID(id uint32) *Event {
	e.ClientID = id
	return e
}

// WithRemoteAddr sets the event's remote address.
func (e *Event) WithRemoteAddr(addr string) *Event {
	e.RemoteAddr = addr
	return e
}

// WithData attaches an additional data field to the event.
func (e *Event) WithData(key string, value interface{}) *Event {
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
	e.Data[key] = value
	return e
}

// String returns a human-readable representation of the event.
func (e *Event) String() string {
	if e.ClientID != 0 {
		return string(e.Type) + ":client" + strconv.FormatUint(uint64(e.ClientID), 10)
	}
	return string(e.Type)
}
