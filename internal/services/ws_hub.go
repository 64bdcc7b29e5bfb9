package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"instagram-backend/internal/session"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// WebSocket message types
const (
	MessageState        = "state"
	MessageNotification = "notification"
	MessageError        = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp,omitempty"`
	State     *session.State `json:"state,omitempty"`
	Message   string         `json:"message,omitempty"`
}

type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages one WebSocket connection per session
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsConn
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*wsConn),
	}
}

// Register registers a new WebSocket connection for a session
func (h *WSHub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close existing connection if any
	if existing, exists := h.connections[sessionID]; exists {
		existing.conn.Close()
	}

	h.connections[sessionID] = &wsConn{conn: conn}

	log.Info().Str("session_id", sessionID).Msg("WebSocket connection registered")
}

// Unregister removes the session's connection if it is still conn.
// A nil conn removes whatever connection is registered.
func (h *WSHub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	existing, exists := h.connections[sessionID]
	if !exists || (conn != nil && existing.conn != conn) {
		return
	}
	existing.conn.Close()
	delete(h.connections, sessionID)
	log.Info().Str("session_id", sessionID).Msg("WebSocket connection unregistered")
}

// IsOnline checks if a session has a live connection
func (h *WSHub) IsOnline(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[sessionID]
	return exists
}

// Send sends a message to a session
func (h *WSHub) Send(sessionID string, message WSMessage) error {
	h.mu.RLock()
	conn, exists := h.connections[sessionID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("session %s is not connected", sessionID)
	}

	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := conn.write(data); err != nil {
		h.Unregister(sessionID, conn.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// SendState pushes a state snapshot
func (h *WSHub) SendState(sessionID string, state session.State) error {
	return h.Send(sessionID, WSMessage{Type: MessageState, State: &state})
}

// SendNotification pushes a one-shot notification
func (h *WSHub) SendNotification(sessionID, message string) error {
	return h.Send(sessionID, WSMessage{Type: MessageNotification, Message: message})
}
