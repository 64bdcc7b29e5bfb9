package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrDocumentNotFound is returned by Update when the target document is absent
var ErrDocumentNotFound = errors.New("document not found")

// Document is a stored JSON document
type Document struct {
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the document body into v
func (d *Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

// DocumentRepository stores schemaless JSON documents grouped by collection
type DocumentRepository struct {
	db DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// QueryByField returns every document in the collection whose top-level field equals value
func (r *DocumentRepository) QueryByField(ctx context.Context, collection, field, value string) ([]Document, error) {
	query := `
		SELECT id, data
		FROM documents
		WHERE collection = $1 AND data->>$2 = $3
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, collection, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, Document{ID: id, Data: data})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// Get retrieves a document by id. A missing document yields (nil, nil).
func (r *DocumentRepository) Get(ctx context.Context, collection, id string) (*Document, error) {
	query := `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	var data []byte
	err := r.db.QueryRow(ctx, query, collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &Document{ID: id, Data: data}, nil
}

// Set writes the full document, replacing any previous body
func (r *DocumentRepository) Set(ctx context.Context, collection, id string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`
	if _, err := r.db.Exec(ctx, query, collection, id, string(data)); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

// Update merges the given top-level fields into an existing document
func (r *DocumentRepository) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	query := `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
	`
	result, err := r.db.Exec(ctx, query, collection, id, string(data))
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
