package server

// Thin bridge from registry/client lifecycle transitions to the pluggable
// hook system, keyed on client id/remote addr rather than stream key.

import (
	"context"

	"github.com/asciichat/asciichat/internal/server/hooks"
)

func (r *Registry) fireEvent(eventType hooks.EventType, c *Client, data map[string]interface{}) {
	if r.Hooks == nil {
		return
	}
	event := hooks.NewEvent(eventType).WithClientID(c.ID).WithRemoteAddr(c.RemoteAddr)
	for k, v := range data {
		event.WithData(k, v)
	}
	r.Hooks.TriggerEvent(context.Background(), *event)
}

func (r *Registry) fireClientJoin(c *Client) {
	r.fireEvent(hooks.EventClientJoin, c, nil)
}

func (r *Registry) fireClientLeave(c *Client) {
	r.fireEvent(hooks.EventClientLeave, c, nil)
}

func (r *Registry) fireHandshakeFailed(c *Client, cause error) {
	r.fireEvent(hooks.EventHandshakeFailed, c, map[string]interface{}{"error": cause.Error()})
}

func (r *Registry) fireAuthFailed(c *Client, reason string) {
	r.fireEvent(hooks.EventAuthFailed, c, map[string]interface{}{"reason": reason})
}

func (r *Registry) fireStreamStart(c *Client) {
	r.fireEvent(hooks.EventStreamStart, c, nil)
}

func (r *Registry) fireStreamStop(c *Client) {
	r.fireEvent(hooks.EventStreamStop, c, nil)
}
