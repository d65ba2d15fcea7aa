package app

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/zjrosen/vitae/internal/assist"
	"github.com/zjrosen/vitae/internal/flags"
	"github.com/zjrosen/vitae/internal/log"
	"github.com/zjrosen/vitae/internal/resume"
)

// noMarginStyle is a JSON style that removes document margins.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// previewRenderer keeps one glamour renderer per width and style. Building
// a renderer parses the style sheet, so it is not done per keystroke.
type previewRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	style    string
}

// Render returns styled markdown, or the raw markdown if glamour fails.
func (r *previewRenderer) Render(md string, width int, style string) string {
	if style == "" {
		style = "dark"
	}
	if r.renderer == nil || r.width != width || r.style != style {
		// WithStylePath instead of WithAutoStyle: auto detection queries the
		// terminal and the reply leaks into the input stream.
		tr, err := glamour.NewTermRenderer(
			glamour.WithStylePath(style),
			glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Warn(log.CatUI, "Markdown renderer unavailable", "style", style, "error", err)
			return md
		}
		r.renderer, r.width, r.style = tr, width, style
	}
	out, err := r.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

type salaryState struct {
	// key is role+location the current estimate belongs to.
	key      string
	pending  bool
	estimate *assist.SalaryEstimate
	err      error
}

type salaryMsg struct {
	key      string
	estimate assist.SalaryEstimate
	err      error
}

// refreshPreviewModel re-renders the preview. Outside of editing it also
// requests a salary estimate when the role or location changed.
func (m Model) refreshPreviewModel() (Model, tea.Cmd) {
	if !m.showPreview || m.preview.Width <= 0 {
		return m, nil
	}
	var cmd tea.Cmd
	if !m.editing {
		m, cmd = m.requestSalary()
	}
	md := resume.Markdown(m.sess.Document()) + m.salarySection()
	m.preview.SetContent(m.renderer.Render(md, m.preview.Width, m.markdownStyle))
	return m, cmd
}

func (m Model) refreshPreview() (tea.Model, tea.Cmd) {
	return m.refreshPreviewModel()
}

func (m Model) salaryEnabled() bool {
	return m.assist != nil && m.flags.Enabled(flags.FlagSalaryEstimate)
}

func salaryInputs(doc resume.Document) (role, location string) {
	if len(doc.Experience) > 0 {
		role = strings.TrimSpace(doc.Experience[0].Role)
	}
	return role, strings.TrimSpace(doc.Contact.Location)
}

func (m Model) requestSalary() (Model, tea.Cmd) {
	if !m.salaryEnabled() {
		return m, nil
	}
	role, location := salaryInputs(m.sess.Document())
	if role == "" {
		m.salary = salaryState{}
		return m, nil
	}
	k := role + "\x00" + location
	if k == m.salary.key {
		return m, nil
	}
	m.salary = salaryState{key: k, pending: true}

	client := m.assist
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), assistTimeout)
		defer cancel()
		est, err := client.EstimateSalary(ctx, role, location)
		return salaryMsg{key: k, estimate: est, err: err}
	}
}

// handleSalary stores an estimate unless the role or location moved on
// while it was being fetched.
func (m Model) handleSalary(msg salaryMsg) (tea.Model, tea.Cmd) {
	if msg.key != m.salary.key {
		return m, nil
	}
	m.salary.pending = false
	if msg.err != nil {
		log.Warn(log.CatAssist, "Salary estimate failed", "error", msg.err)
		m.salary.err = msg.err
	} else {
		est := msg.estimate
		m.salary.estimate = &est
	}
	return m.refreshPreview()
}

func (m Model) salarySection() string {
	if !m.salaryEnabled() || m.salary.key == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n---\n\n**Estimated salary:** ")
	switch {
	case m.salary.pending:
		sb.WriteString("estimating…")
	case m.salary.err != nil:
		sb.WriteString("unavailable")
	case m.salary.estimate != nil:
		sb.WriteString(m.salary.estimate.String())
		if m.salary.estimate.Note != "" {
			sb.WriteString("\n\n_" + m.salary.estimate.Note + "_")
		}
	}
	sb.WriteString("\n")
	return sb.String()
}
