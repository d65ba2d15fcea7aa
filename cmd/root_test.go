package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vitae/internal/autosave"
	"github.com/zjrosen/vitae/internal/config"
	"github.com/zjrosen/vitae/internal/resume"
	"github.com/zjrosen/vitae/internal/session"
	"github.com/zjrosen/vitae/internal/testutil"
)

func TestLoadDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("by id", func(t *testing.T) {
		repo := testutil.NewTestRepository(t)
		testutil.NewBuilder(t, repo).WithDocument("cv-1", testutil.Title("Backend")).Build()

		doc, err := loadDocument(ctx, repo, "cv-1", "")
		require.NoError(t, err)
		require.Equal(t, "Backend", doc.Title)
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := testutil.NewTestRepository(t)

		_, err := loadDocument(ctx, repo, "missing", "")
		var notFound *resume.NotFoundError
		require.ErrorAs(t, err, &notFound)
		require.Equal(t, "missing", notFound.ID)
	})

	t.Run("title creates a new document", func(t *testing.T) {
		repo := testutil.NewTestRepository(t)
		testutil.NewBuilder(t, repo).WithDocument("cv-1").Build()

		doc, err := loadDocument(ctx, repo, "", "Data engineer")
		require.NoError(t, err)
		require.NotEqual(t, "cv-1", doc.ID)

		stored, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		require.Equal(t, "Data engineer", stored.Title)
	})

	t.Run("empty store creates untitled", func(t *testing.T) {
		repo := testutil.NewTestRepository(t)

		doc, err := loadDocument(ctx, repo, "", "")
		require.NoError(t, err)
		require.Equal(t, untitledTitle, doc.Title)
	})

	t.Run("defaults to most recent", func(t *testing.T) {
		repo := testutil.NewTestRepository(t)
		testutil.NewBuilder(t, repo).
			WithDocument("old", testutil.Title("Old")).
			WithDocument("new", testutil.Title("New")).
			Build()

		doc, err := loadDocument(ctx, repo, "", "")
		require.NoError(t, err)
		require.Equal(t, "new", doc.ID)
	})
}

func TestListDocuments(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	var out bytes.Buffer

	require.NoError(t, listDocuments(context.Background(), repo, &out))
	require.JSONEq(t, "[]", out.String())

	testutil.NewBuilder(t, repo).WithDocument("cv-1", testutil.Title("Backend"), testutil.Name("Ada")).Build()
	out.Reset()
	require.NoError(t, listDocuments(context.Background(), repo, &out))

	var rows []resume.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "cv-1", rows[0].ID)
	require.Equal(t, "Backend", rows[0].Title)
	require.Equal(t, "Ada", rows[0].Name)
}

func TestExportDocument(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTestRepository(t)
	testutil.NewBuilder(t, repo).WithDocument("cv-1", testutil.Title("Staff Engineer"), testutil.Name("Ada")).Build()
	want, err := repo.FindByID(ctx, "cv-1")
	require.NoError(t, err)

	t.Run("explicit output", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "nested", "cv.md")

		path, err := exportDocument(ctx, repo, "cv-1", out, "")
		require.NoError(t, err)
		require.Equal(t, out, path)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		require.Equal(t, resume.Markdown(want), string(data))
	})

	t.Run("export dir", func(t *testing.T) {
		dir := t.TempDir()

		path, err := exportDocument(ctx, repo, "cv-1", "", dir)
		require.NoError(t, err)
		require.Equal(t, filepath.Join(dir, "staff-engineer.md"), path)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := exportDocument(ctx, repo, "missing", "", t.TempDir())
		require.Error(t, err)
	})
}

func TestCloseSession_WarnsWithPendingChanges(t *testing.T) {
	p := &testutil.RecordingPersister{}
	p.SetErr(errors.New("disk full"))
	sess := session.New(session.Config{
		Document:  testutil.SampleDocument(),
		Persister: p,
		Debounce:  time.Hour,
		Interval:  time.Hour,
	})
	sess.Edit(func(d *resume.Document) { d.Contact.Name = "Ada King" })

	var stderr bytes.Buffer
	err := closeSession(sess, 100*time.Millisecond, &stderr)

	require.ErrorIs(t, err, autosave.ErrUnsavedChanges)
	require.Contains(t, stderr.String(), "warning: changes were not saved")
	require.Contains(t, stderr.String(), "+ # Ada King")
	require.Contains(t, stderr.String(), "- # Ada Lovelace")
}

func TestCloseSession_CleanExit(t *testing.T) {
	p := &testutil.RecordingPersister{}
	sess := session.New(session.Config{
		Document:  testutil.SampleDocument(),
		Persister: p,
		Debounce:  time.Hour,
		Interval:  time.Hour,
	})
	sess.Edit(func(d *resume.Document) { d.Summary = "Ships engines." })

	var stderr bytes.Buffer
	require.NoError(t, closeSession(sess, time.Second, &stderr))
	require.Empty(t, stderr.String())

	last, ok := p.Last()
	require.True(t, ok)
	require.Equal(t, "Ships engines.", last.Summary)
}

func TestInitConfig_ReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/vitae-test
history:
  max_entries: 20
autosave:
  debounce: 500ms
  interval: 1m
flags:
  assist: true
`), 0o600))

	viper.Reset()
	prevFile, prevCfg := cfgFile, cfg
	t.Cleanup(func() {
		viper.Reset()
		cfgFile, cfg = prevFile, prevCfg
	})
	cfgFile = path
	cfg = config.Config{}

	initConfig()

	require.Equal(t, "/tmp/vitae-test", cfg.DataDir)
	require.Equal(t, 20, cfg.History.MaxEntries)
	require.Equal(t, 500*time.Millisecond, cfg.Autosave.Debounce)
	require.Equal(t, time.Minute, cfg.Autosave.Interval)
	require.Equal(t, config.Defaults().Autosave.ExitTimeout, cfg.Autosave.ExitTimeout)
	require.Equal(t, config.Defaults().Assist.Model, cfg.Assist.Model)
	require.True(t, cfg.Flags["assist"])
	require.NoError(t, config.Validate(cfg))
}
