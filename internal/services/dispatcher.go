package services

import (
	"instagram-backend/internal/session"

	"github.com/rs/zerolog/log"
)

// Dispatcher forwards controller state to the session's client.
// A connected websocket gets every snapshot and consumes notifications.
// Without one, notifications go to the registered device through APNs, if any.
// Otherwise they wait in the mailbox for the next poll.
type Dispatcher struct {
	hub  *WSHub
	push *PushService
}

// NewDispatcher creates a dispatcher. push may be nil.
func NewDispatcher(hub *WSHub, push *PushService) *Dispatcher {
	return &Dispatcher{hub: hub, push: push}
}

// Attach subscribes to c's state changes on behalf of sessionID
func (d *Dispatcher) Attach(sessionID string, c *session.Controller) {
	c.OnChange(func(state session.State) {
		d.deliver(sessionID, c, state)
	})
}

// Detach drops the session's websocket and device token
func (d *Dispatcher) Detach(sessionID string) {
	d.hub.Unregister(sessionID, nil)
	if d.push != nil {
		d.push.Forget(sessionID)
	}
}

// RegisterDevice stores a device token if push is enabled
func (d *Dispatcher) RegisterDevice(sessionID, deviceToken string) bool {
	if d.push == nil {
		return false
	}
	d.push.RegisterDevice(sessionID, deviceToken)
	return true
}

func (d *Dispatcher) deliver(sessionID string, c *session.Controller, state session.State) {
	if d.hub.IsOnline(sessionID) {
		if err := d.hub.SendState(sessionID, state); err != nil {
			log.Debug().Err(err).Str("session_id", sessionID).Msg("Failed to push state")
			return
		}
		if !state.HasNotification {
			return
		}
		if msg, ok := c.TakeNotification(); ok {
			if err := d.hub.SendNotification(sessionID, msg); err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to deliver notification")
			}
		}
		return
	}

	if d.push == nil || !state.HasNotification || !d.push.HasDevice(sessionID) {
		return
	}
	msg, ok := c.TakeNotification()
	if !ok {
		return
	}
	go func() {
		if err := d.push.Send(sessionID, msg); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to push notification")
		}
	}()
}
