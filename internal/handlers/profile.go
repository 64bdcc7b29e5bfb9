package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"instagram-backend/internal/middleware"
	"instagram-backend/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ProfileHandler handles profile HTTP requests
type ProfileHandler struct {
	maxUploadBytes int64
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{maxUploadBytes: maxUploadBytes}
}

// UpdateProfileRequest represents the request body for a profile update.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	UserName *string `json:"userName"`
	Bio      *string `json:"bio"`
	ImageURL *string `json:"imageUrl"`
}

// UpdateProfile handles PUT /api/v1/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	controller := middleware.GetController(r.Context())
	controller.UpsertProfile(context.WithoutCancel(r.Context()), session.ProfileUpdate{
		Name:     req.Name,
		Username: req.UserName,
		Bio:      req.Bio,
		ImageURL: req.ImageURL,
	})

	respondJSON(w, http.StatusOK, snapshot(controller))
}

// UploadProfileImage handles POST /api/v1/profile/image
func (h *ProfileHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(w, r, h.maxUploadBytes)
	if err != nil {
		respondImageError(w, r, err)
		return
	}
	defer img.Close()

	controller := middleware.GetController(r.Context())
	controller.UploadProfileImage(context.WithoutCancel(r.Context()), img.Image)

	respondJSON(w, http.StatusOK, snapshot(controller))
}

// FetchProfile handles GET /api/v1/profile
func (h *ProfileHandler) FetchProfile(w http.ResponseWriter, r *http.Request) {
	controller := middleware.GetController(r.Context())
	controller.RefreshProfile(context.WithoutCancel(r.Context()))

	respondJSON(w, http.StatusOK, snapshot(controller))
}

// GetUserProfile handles GET /api/v1/users/{user_id}. The session's own profile is left untouched.
func (h *ProfileHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		respondError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	profile, err := middleware.GetController(r.Context()).LookupProfile(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to look up profile")
		respondError(w, "Cannot retrieve user data", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		respondError(w, "User not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func respondImageError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		respondError(w, "Image too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, errNotAnImage):
		respondError(w, err.Error(), http.StatusUnsupportedMediaType)
	default:
		log.Debug().Err(err).Str("session_id", middleware.GetSessionID(r.Context())).Msg("Rejected upload")
		respondError(w, err.Error(), http.StatusBadRequest)
	}
}
