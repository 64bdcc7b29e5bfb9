package session

import (
	"context"
	"io"

	"instagram-backend/internal/repository"
)

// Auth is the per-session view of the authentication backend
type Auth interface {
	CreateAccount(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut()
	CurrentUserID() (string, bool)
}

// DocumentStore is the document database used for profiles and posts
type DocumentStore interface {
	QueryByField(ctx context.Context, collection, field, value string) ([]repository.Document, error)
	Get(ctx context.Context, collection, id string) (*repository.Document, error)
	Set(ctx context.Context, collection, id string, record any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

// BlobStore holds uploaded images
type BlobStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	DownloadURL(ctx context.Context, key string) (string, error)
}

// Image is a local image handed over by the client
type Image struct {
	Body        io.Reader
	ContentType string
}
