package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/vitae/internal/autosave"
	"github.com/zjrosen/vitae/internal/log"
	"github.com/zjrosen/vitae/internal/resume"
)

const documentColumns = `id, title, name, body, save_count, created_at, updated_at, deleted_at`

// DocumentRepository implements resume.Repository using SQLite. It also
// serves as the autosave persister.
type DocumentRepository struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ resume.Repository  = (*DocumentRepository)(nil)
	_ autosave.Persister = (*DocumentRepository)(nil)
)

func newDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db, now: time.Now}
}

func scanDocument(scanner interface{ Scan(...any) error }) (*DocumentModel, error) {
	var m DocumentModel
	err := scanner.Scan(&m.ID, &m.Title, &m.Name, &m.Body, &m.SaveCount,
		&m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
	return &m, err
}

// Save inserts the document or replaces the stored body. Saving a
// soft-deleted document restores it.
func (r *DocumentRepository) Save(ctx context.Context, doc resume.Document) error {
	if doc.ID == "" {
		return errors.New("save document: empty id")
	}
	m := toDocumentModel(doc, r.now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, name, body, save_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			name = excluded.name,
			body = excluded.body,
			updated_at = excluded.updated_at,
			save_count = documents.save_count + 1,
			deleted_at = NULL`,
		m.ID, m.Title, m.Name, m.Body, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	log.Debug(log.CatDB, "Saved document", "id", doc.ID, "bytes", len(m.Body))
	return nil
}

// Persist implements autosave.Persister.
func (r *DocumentRepository) Persist(ctx context.Context, doc resume.Document) error {
	return r.Save(ctx, doc)
}

// FindByID returns the live document with the given ID.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (resume.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ? AND deleted_at IS NULL`, id)
	m, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return resume.Document{}, &resume.NotFoundError{ID: id}
	}
	if err != nil {
		return resume.Document{}, fmt.Errorf("failed to find document: %w", err)
	}
	return m.toDomain()
}

// List returns live documents, most recently updated first.
func (r *DocumentRepository) List(ctx context.Context) ([]resume.Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE deleted_at IS NULL
		ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []resume.Summary{}
	for rows.Next() {
		m, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		summaries = append(summaries, m.toSummary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return summaries, nil
}

// Delete soft-deletes the document. Deleting a missing or already deleted
// document returns NotFoundError.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		r.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n == 0 {
		return &resume.NotFoundError{ID: id}
	}
	log.Info(log.CatDB, "Deleted document", "id", id)
	return nil
}
