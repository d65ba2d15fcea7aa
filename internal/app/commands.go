package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/vitae/internal/config"
	"github.com/zjrosen/vitae/internal/log"
	"github.com/zjrosen/vitae/internal/resume"
)

const assistTimeout = 30 * time.Second

type exportedMsg struct {
	path string
	err  error
}

type enhancedMsg struct {
	key      string
	original string
	text     string
	err      error
}

// exportCmd writes the markdown rendering of doc into dir.
func exportCmd(dir string, doc resume.Document) tea.Cmd {
	return func() tea.Msg {
		path, err := ExportMarkdown(dir, doc)
		return exportedMsg{path: path, err: err}
	}
}

// ExportMarkdown writes doc as markdown to dir and returns the file path.
func ExportMarkdown(dir string, doc resume.Document) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, ExportFileName(doc))
	if err := os.WriteFile(path, []byte(resume.Markdown(doc)), 0o600); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	log.Info(log.CatUI, "Exported markdown", "path", path)
	return path, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ExportFileName derives a file name from the title, falling back to the
// contact name and then the document ID.
func ExportFileName(doc resume.Document) string {
	for _, candidate := range []string{doc.Title, doc.Contact.Name, doc.ID} {
		slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(candidate), "-"), "-")
		if slug != "" {
			return slug + ".md"
		}
	}
	return "resume.md"
}

// savePreferenceCmd stores a UI preference without blocking the update loop.
func savePreferenceCmd(configPath, key string, value any) tea.Cmd {
	if configPath == "" {
		return nil
	}
	return func() tea.Msg {
		if err := config.SaveValue(configPath, key, value); err != nil {
			log.Warn(log.CatConfig, "Failed to save preference", "key", key, "error", err)
		}
		return nil
	}
}

// enhanceFocused asks the assist service to rewrite the focused field.
// Highlights are rewritten for the entry's role; other fields are enhanced
// with their label as context.
func (m Model) enhanceFocused() (tea.Model, tea.Cmd) {
	if m.assist == nil || !m.keys.Enhance.Enabled() {
		return m, nil
	}
	field := m.focusedField()
	doc := m.sess.Document()
	original := field.Get(doc)
	if strings.TrimSpace(original) == "" {
		m.notice = "Nothing to enhance in " + field.Label
		return m, nil
	}

	client := m.assist
	role := ""
	if idx, ok := experienceIndex(field.Key); ok && strings.HasSuffix(field.Key, ".highlights") {
		role = doc.Experience[idx].Role
	}
	m.notice = "Enhancing " + field.Label + "…"

	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), assistTimeout)
		defer cancel()

		var (
			text string
			err  error
		)
		if role != "" {
			text, err = client.Transform(ctx, original, role)
		} else {
			text, err = client.Enhance(ctx, original, field.Group+" / "+field.Label)
		}
		return enhancedMsg{key: field.Key, original: original, text: text, err: err}
	}
}

// handleEnhanced applies an enhancement unless the field was edited while
// the request was running.
func (m Model) handleEnhanced(msg enhancedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.notice = msg.err.Error()
		return m, nil
	}
	doc := m.sess.Document()
	field, ok := resume.FieldByKey(doc, msg.key)
	if !ok || field.Get(doc) != msg.original {
		m.notice = "Field changed while enhancing; suggestion discarded"
		return m, nil
	}
	m.sess.Replace(field.Set(doc, msg.text))
	m.notice = "Enhanced " + field.Label + " (ctrl+z to revert)"
	m = m.syncFields().syncInput()
	return m.refreshPreview()
}

// experienceIndex extracts i from an "experience.<i>.<name>" field key.
func experienceIndex(fieldKey string) (int, bool) {
	rest, ok := strings.CutPrefix(fieldKey, "experience.")
	if !ok {
		return 0, false
	}
	num, _, ok := strings.Cut(rest, ".")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	return i, true
}

func experienceKey(i int, name string) string {
	return "experience." + strconv.Itoa(i) + "." + name
}

func fieldZoneID(i int) string {
	return "field-" + strconv.Itoa(i)
}

type configReloadedMsg struct {
	ui  config.UIConfig
	err error
}

// waitForConfigChange blocks until the config file changes, then re-reads
// the UI preferences.
func (m Model) waitForConfigChange() tea.Cmd {
	if m.configChanges == nil || m.configPath == "" {
		return nil
	}
	ch, ctx, path := m.configChanges, m.listenCtx, m.configPath
	return func() tea.Msg {
		select {
		case _, ok := <-ch:
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
		ui, err := config.LoadUI(path)
		return configReloadedMsg{ui: ui, err: err}
	}
}

func (m Model) handleConfigReloaded(msg configReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		log.Warn(log.CatConfig, "Ignoring config change", "error", msg.err)
		return m, m.waitForConfigChange()
	}
	changed := msg.ui.MarkdownStyle != m.markdownStyle || msg.ui.ShowPreview != m.showPreview
	m.markdownStyle = msg.ui.MarkdownStyle
	m.showPreview = msg.ui.ShowPreview
	if !changed {
		return m, m.waitForConfigChange()
	}
	log.Info(log.CatConfig, "Reloaded UI preferences", "markdown_style", m.markdownStyle, "show_preview", m.showPreview)
	m = m.layout()
	var cmd tea.Cmd
	m, cmd = m.refreshPreviewModel()
	return m, tea.Batch(cmd, m.waitForConfigChange())
}
