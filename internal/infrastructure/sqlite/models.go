package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zjrosen/vitae/internal/resume"
)

// DocumentModel represents a row of the documents table. The document body
// is stored in its canonical JSON form; title and name are denormalized for
// listing.
type DocumentModel struct {
	ID        string
	Title     string
	Name      string
	Body      string
	SaveCount int
	CreatedAt int64  // Unix milliseconds
	UpdatedAt int64  // Unix milliseconds
	DeletedAt *int64 // Unix milliseconds, nullable
}

func toDocumentModel(doc resume.Document, now time.Time) *DocumentModel {
	return &DocumentModel{
		ID:        doc.ID,
		Title:     doc.Title,
		Name:      doc.Contact.Name,
		Body:      string(doc.Canonical()),
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
}

func (m *DocumentModel) toDomain() (resume.Document, error) {
	var doc resume.Document
	if err := json.Unmarshal([]byte(m.Body), &doc); err != nil {
		return resume.Document{}, fmt.Errorf("decode document %s: %w", m.ID, err)
	}
	return doc, nil
}

func (m *DocumentModel) toSummary() resume.Summary {
	return resume.Summary{
		ID:        m.ID,
		Title:     m.Title,
		Name:      m.Name,
		Saves:     m.SaveCount,
		CreatedAt: time.UnixMilli(m.CreatedAt),
		UpdatedAt: time.UnixMilli(m.UpdatedAt),
	}
}
