package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"instagram-backend/internal/session"
)

type contextKey string

const (
	sessionIDKey  contextKey = "session_id"
	controllerKey contextKey = "controller"
)

// TokenValidator turns a bearer token into a session ID
type TokenValidator interface {
	ValidateJWT(token string) (string, error)
}

// SessionLookup finds the live controller of a session
type SessionLookup interface {
	Get(id string) (*session.Controller, bool)
}

// SessionMiddleware authenticates the bearer token and attaches the session's controller
func SessionMiddleware(tokens TokenValidator, sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			sessionID, controller, err := ResolveSession(parts[1], tokens, sessions)
			if err != nil {
				respondError(w, err.Error(), http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sessionID, controller)))
		})
	}
}

// ResolveSession validates token and returns its session and controller
func ResolveSession(token string, tokens TokenValidator, sessions SessionLookup) (string, *session.Controller, error) {
	if token == "" {
		return "", nil, fmt.Errorf("token required")
	}
	sessionID, err := tokens.ValidateJWT(token)
	if err != nil {
		return "", nil, fmt.Errorf("invalid token")
	}
	controller, ok := sessions.Get(sessionID)
	if !ok {
		return "", nil, fmt.Errorf("session expired")
	}
	return sessionID, controller, nil
}

// GetSessionID extracts the session ID from context
func GetSessionID(ctx context.Context) string {
	sessionID, ok := ctx.Value(sessionIDKey).(string)
	if !ok {
		return ""
	}
	return sessionID
}

// GetController extracts the session's controller from context
func GetController(ctx context.Context) *session.Controller {
	controller, _ := ctx.Value(controllerKey).(*session.Controller)
	return controller
}

// WithSession returns ctx carrying the session, as SessionMiddleware does
func WithSession(ctx context.Context, sessionID string, controller *session.Controller) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return context.WithValue(ctx, controllerKey, controller)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
