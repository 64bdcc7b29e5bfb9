package handlers

import (
	"context"
	"net/http"

	"instagram-backend/internal/middleware"
	"instagram-backend/internal/models"
)

// PostHandler handles post HTTP requests
type PostHandler struct {
	maxUploadBytes int64
}

// NewPostHandler creates a new post handler
func NewPostHandler(maxUploadBytes int64) *PostHandler {
	return &PostHandler{maxUploadBytes: maxUploadBytes}
}

// CreatePostResponse carries the stored post along with the session state
type CreatePostResponse struct {
	Post *models.Post `json:"post,omitempty"`
	StateResponse
}

// PostsResponse represents the response for listing posts
type PostsResponse struct {
	Posts []models.Post `json:"posts"`
	StateResponse
}

// CreatePost handles POST /api/v1/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(w, r, h.maxUploadBytes)
	if err != nil {
		respondImageError(w, r, err)
		return
	}
	defer img.Close()

	description := r.FormValue("description")

	var created *models.Post
	controller := middleware.GetController(r.Context())
	controller.CreatePost(context.WithoutCancel(r.Context()), img.Image, description, func(p models.Post) {
		created = &p
	})

	status := http.StatusOK
	if created != nil {
		status = http.StatusCreated
	}
	respondJSON(w, status, CreatePostResponse{Post: created, StateResponse: snapshot(controller)})
}

// GetPosts handles GET /api/v1/posts
func (h *PostHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	controller := middleware.GetController(r.Context())
	posts := controller.Posts(context.WithoutCancel(r.Context()))
	if posts == nil {
		posts = []models.Post{}
	}

	respondJSON(w, http.StatusOK, PostsResponse{Posts: posts, StateResponse: snapshot(controller)})
}
