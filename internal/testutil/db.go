// Package testutil provides fixtures and storage helpers for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vitae/internal/infrastructure/sqlite"
)

// NewTestDB opens a migrated SQLite database in a temp directory. It is
// closed when the test ends.
func NewTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "vitae.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewTestRepository returns a document repository over a fresh database.
func NewTestRepository(t *testing.T) *sqlite.DocumentRepository {
	t.Helper()
	return NewTestDB(t).DocumentRepository()
}
