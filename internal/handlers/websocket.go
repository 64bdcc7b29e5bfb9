package handlers

import (
	"encoding/json"
	"net/http"

	"instagram-backend/internal/middleware"
	"instagram-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams session state to connected clients
type WebSocketHandler struct {
	hub      *services.WSHub
	tokens   middleware.TokenValidator
	sessions middleware.SessionLookup
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	tokens middleware.TokenValidator,
	sessions middleware.SessionLookup,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		tokens:   tokens,
		sessions: sessions,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, controller, err := middleware.ResolveSession(r.URL.Query().Get("token"), h.tokens, h.sessions)
	if err != nil {
		respondError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(sessionID, conn)
	defer h.hub.Unregister(sessionID, conn)

	log.Info().Str("session_id", sessionID).Msg("WebSocket connection established")

	// Catch the client up: current state, then anything that queued while it was away.
	if err := h.hub.SendState(sessionID, controller.State()); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send initial state")
		return
	}
	if msg, ok := controller.TakeNotification(); ok {
		if err := h.hub.SendNotification(sessionID, msg); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send pending notification")
		}
	}

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("session_id", sessionID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.sendError(sessionID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case services.MessageState:
			if err := h.hub.SendState(sessionID, controller.State()); err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send state")
			}
		default:
			h.sendError(sessionID, "Unknown message type")
		}
	}
}

// sendError sends an error message to the session's connection
func (h *WebSocketHandler) sendError(sessionID, message string) {
	err := h.hub.Send(sessionID, services.WSMessage{Type: services.MessageError, Message: message})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send error message")
	}
}
