package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"instagram-backend/internal/session"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StateResponse is the session snapshot returned by every action.
// Notification is the pending message, consumed by this response.
type StateResponse struct {
	session.State
	Notification *string `json:"notification,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends v as a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// snapshot reads the controller state and consumes its notification
func snapshot(c *session.Controller) StateResponse {
	resp := StateResponse{State: c.State()}
	if msg, ok := c.TakeNotification(); ok {
		resp.Notification = &msg
		resp.HasNotification = false
	}
	return resp
}

var errNotAnImage = errors.New("image must have an image/* content type")

// uploadedImage is an image read from a multipart request
type uploadedImage struct {
	session.Image
	file multipart.File
}

func (u *uploadedImage) Close() error {
	return u.file.Close()
}

// readImage extracts the "image" part of a multipart request
func readImage(w http.ResponseWriter, r *http.Request, maxBytes int64) (*uploadedImage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("image is required: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		sniff := make([]byte, 512)
		n, err := io.ReadFull(file, sniff)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			file.Close()
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		contentType = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
	}

	if !strings.HasPrefix(contentType, "image/") {
		file.Close()
		return nil, errNotAnImage
	}

	return &uploadedImage{
		Image: session.Image{Body: file, ContentType: contentType},
		file:  file,
	}, nil
}
