package resume

import (
	"context"
	"fmt"
	"time"
)

// Summary is a listing row for a stored document.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Name      string    `json:"name"`
	Saves     int       `json:"saves"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository is the durable store for documents.
type Repository interface {
	// Save inserts or replaces the document keyed by its ID.
	Save(ctx context.Context, doc Document) error
	// FindByID returns NotFoundError when the document does not exist or
	// has been deleted.
	FindByID(ctx context.Context, id string) (Document, error)
	// List returns live documents, most recently updated first.
	List(ctx context.Context) ([]Summary, error)
	// Delete soft-deletes the document.
	Delete(ctx context.Context, id string) error
}

// NotFoundError is returned when a document ID has no live row.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.ID)
}
