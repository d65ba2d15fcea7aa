package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithStandardDocuments(t *testing.T) {
	repo := NewTestRepository(t)
	docs := NewBuilder(t, repo).WithStandardDocuments().Build()
	require.Len(t, docs, 3)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2, "deleted document is not listed")

	doc, err := repo.FindByID(context.Background(), "doc-research")
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", doc.Contact.Name)
	require.Len(t, doc.Experience, 1)
	require.Equal(t, "1835", doc.Education[0].Year)
}
