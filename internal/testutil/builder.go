package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vitae/internal/resume"
)

// Builder accumulates documents and saves them in insertion order.
type Builder struct {
	t       *testing.T
	repo    resume.Repository
	docs    []resume.Document
	deleted []string
}

// NewBuilder creates a builder that saves into repo.
func NewBuilder(t *testing.T, repo resume.Repository) *Builder {
	t.Helper()
	return &Builder{t: t, repo: repo}
}

// WithDocument adds a document with optional configuration.
func (b *Builder) WithDocument(id string, opts ...DocumentOption) *Builder {
	doc := resume.Document{ID: id, Title: id}
	for _, opt := range opts {
		opt(&doc)
	}
	b.docs = append(b.docs, doc)
	return b
}

// WithDeleted soft-deletes a previously added document after saving.
func (b *Builder) WithDeleted(id string) *Builder {
	b.deleted = append(b.deleted, id)
	return b
}

// Build saves all accumulated documents and returns them.
func (b *Builder) Build() []resume.Document {
	b.t.Helper()
	ctx := context.Background()
	for _, doc := range b.docs {
		require.NoError(b.t, b.repo.Save(ctx, doc), "save %s", doc.ID)
	}
	for _, id := range b.deleted {
		require.NoError(b.t, b.repo.Delete(ctx, id), "delete %s", id)
	}
	return b.docs
}
