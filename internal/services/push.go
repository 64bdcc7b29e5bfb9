package services

import (
	"fmt"
	"sync"

	appconfig "instagram-backend/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

type apnsPusher interface {
	Push(n *apns2.Notification) (*apns2.Response, error)
}

// PushService delivers notifications to iOS devices through APNs
type PushService struct {
	client apnsPusher
	topic  string

	mu      sync.RWMutex
	devices map[string]string // session id -> device token
}

// NewPushService creates an APNs client using token-based authentication
func NewPushService(cfg appconfig.APNsConfig) (*PushService, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return newPushService(client, cfg.Topic), nil
}

func newPushService(client apnsPusher, topic string) *PushService {
	return &PushService{
		client:  client,
		topic:   topic,
		devices: make(map[string]string),
	}
}

// RegisterDevice binds a device token to a session
func (s *PushService) RegisterDevice(sessionID, deviceToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[sessionID] = deviceToken
}

// Forget removes the session's device token
func (s *PushService) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, sessionID)
}

// HasDevice reports whether the session registered a device token
func (s *PushService) HasDevice(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.devices[sessionID]
	return ok
}

// Send pushes message as an alert to the session's device
func (s *PushService) Send(sessionID, message string) error {
	s.mu.RLock()
	deviceToken, ok := s.devices[sessionID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %s has no device token", sessionID)
	}

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload:     payload.NewPayload().Alert(message).Sound("default"),
	}

	res, err := s.client.Push(notification)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		if res.Reason == apns2.ReasonBadDeviceToken || res.Reason == apns2.ReasonUnregistered {
			s.Forget(sessionID)
		}
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}

	log.Debug().Str("session_id", sessionID).Str("apns_id", res.ApnsID).Msg("Push notification sent")
	return nil
}
