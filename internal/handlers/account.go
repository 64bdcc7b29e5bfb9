package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"instagram-backend/internal/middleware"
)

// AccountHandler handles signup, login and logout
type AccountHandler struct{}

// NewAccountHandler creates a new account handler
func NewAccountHandler() *AccountHandler {
	return &AccountHandler{}
}

// SignUpRequest represents the request body for signing up
type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LogInRequest represents the request body for logging in
type LogInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp handles POST /api/v1/signup
func (h *AccountHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	controller := middleware.GetController(r.Context())
	controller.SignUp(context.WithoutCancel(r.Context()), req.Username, req.Email, req.Password)

	respondJSON(w, http.StatusOK, snapshot(controller))
}

// LogIn handles POST /api/v1/login
func (h *AccountHandler) LogIn(w http.ResponseWriter, r *http.Request) {
	var req LogInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	controller := middleware.GetController(r.Context())
	controller.LogIn(context.WithoutCancel(r.Context()), req.Email, req.Password)

	respondJSON(w, http.StatusOK, snapshot(controller))
}

// LogOut handles POST /api/v1/logout
func (h *AccountHandler) LogOut(w http.ResponseWriter, r *http.Request) {
	controller := middleware.GetController(r.Context())
	controller.LogOut()

	respondJSON(w, http.StatusOK, snapshot(controller))
}
