package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"instagram-backend/internal/middleware"
	"instagram-backend/internal/services"
	"instagram-backend/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ControllerFactory builds the controller of a new session
type ControllerFactory func(ctx context.Context, sessionID string) *session.Controller

// TokenIssuer signs session tokens
type TokenIssuer interface {
	GenerateJWT(sessionID string) (string, error)
}

// SessionHandler handles session lifecycle HTTP requests
type SessionHandler struct {
	registry      *session.Registry
	tokens        TokenIssuer
	newController ControllerFactory
	dispatcher    *services.Dispatcher
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	registry *session.Registry,
	tokens TokenIssuer,
	newController ControllerFactory,
	dispatcher *services.Dispatcher,
) *SessionHandler {
	return &SessionHandler{
		registry:      registry,
		tokens:        tokens,
		newController: newController,
		dispatcher:    dispatcher,
	}
}

// CreateSessionResponse is returned when a client opens a session
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	StateResponse
}

// CreateSession handles POST /api/v1/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.New().String()

	token, err := h.tokens.GenerateJWT(sessionID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue session token")
		respondError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	controller := h.newController(context.WithoutCancel(r.Context()), sessionID)
	h.registry.Add(sessionID, controller)
	h.dispatcher.Attach(sessionID, controller)

	log.Info().Str("session_id", sessionID).Msg("Session created")

	respondJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID:     sessionID,
		Token:         token,
		StateResponse: snapshot(controller),
	})
}

// DeleteSession handles DELETE /api/v1/sessions
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	h.dispatcher.Detach(sessionID)
	h.registry.Remove(sessionID)

	log.Info().Str("session_id", sessionID).Msg("Session closed")
	w.WriteHeader(http.StatusNoContent)
}

// GetState handles GET /api/v1/state
func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, snapshot(middleware.GetController(r.Context())))
}

// NotificationResponse carries a consumed notification
type NotificationResponse struct {
	Notification string `json:"notification"`
}

// GetNotification handles GET /api/v1/notification
func (h *SessionHandler) GetNotification(w http.ResponseWriter, r *http.Request) {
	msg, ok := middleware.GetController(r.Context()).TakeNotification()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, NotificationResponse{Notification: msg})
}

// PushTokenRequest represents the request body for registering a device
type PushTokenRequest struct {
	DeviceToken string `json:"device_token"`
}

// RegisterPushToken handles PUT /api/v1/push-token
func (h *SessionHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	var req PushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.DeviceToken == "" {
		respondError(w, "device_token is required", http.StatusBadRequest)
		return
	}

	if !h.dispatcher.RegisterDevice(sessionID, req.DeviceToken) {
		respondError(w, "push notifications are not enabled", http.StatusNotImplemented)
		return
	}

	log.Info().Str("session_id", sessionID).Msg("Push token registered")
	w.WriteHeader(http.StatusNoContent)
}
