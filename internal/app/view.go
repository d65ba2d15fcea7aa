package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/vitae/internal/autosave"
)

const (
	minPreviewWidth = 30
	statusHeight    = 1
)

var (
	groupStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#3C3C3C"))
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C5C5C")).Italic(true)
	previewStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5C5C5C")).
			PaddingLeft(1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
	debugStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C5C5C"))

	statusColors = map[autosave.Kind]lipgloss.Color{
		autosave.KindIdle:    "#8A8A8A",
		autosave.KindUnsaved: "#FFB86C",
		autosave.KindSaving:  "#8BE9FD",
		autosave.KindSaved:   "#50FA7B",
	}
)

// layout sizes the form and preview panes from the window dimensions.
func (m Model) layout() Model {
	bodyHeight := max(m.height-statusHeight-m.helpHeight()-m.debugHeight(), 1)
	if m.showPreview && m.width >= 2*minPreviewWidth {
		// Border takes two columns and two rows, padding one column.
		m.preview.Width = max(m.width/2-3, 1)
		m.preview.Height = max(bodyHeight-2, 1)
	} else {
		m.preview.Width = 0
		m.preview.Height = 0
	}
	m.input.Width = max(m.formWidth()-m.labelWidth()-3, 10)
	return m
}

func (m Model) helpHeight() int {
	if m.showHelp {
		return lipgloss.Height(m.help.View(m.keys))
	}
	return 1
}

func (m Model) debugHeight() int {
	if m.debugMode {
		return 1
	}
	return 0
}

func (m Model) formWidth() int {
	if m.preview.Width > 0 {
		return m.width - m.preview.Width - 3
	}
	return m.width
}

func (m Model) labelWidth() int {
	w := 0
	for _, f := range m.fields {
		w = max(w, runewidth.StringWidth(f.Label))
	}
	return w
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading…"
	}

	body := m.formView()
	if m.preview.Width > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, previewStyle.Render(m.preview.View()))
	}

	sections := []string{body, m.statusView()}
	if m.debugMode {
		sections = append(sections, debugStyle.Render(ansi.Truncate(m.logLine, m.width, "…")))
	}
	sections = append(sections, m.help.View(m.keys))
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) formView() string {
	width := m.formWidth()
	bodyHeight := max(m.height-statusHeight-m.helpHeight()-m.debugHeight(), 1)
	labelW := m.labelWidth()
	valueW := max(width-labelW-3, 10)
	doc := m.sess.Document()

	var (
		lines      []string
		focusStart int
		focusEnd   int
		group      string
	)
	for i, f := range m.fields {
		if f.Group != group {
			group = f.Group
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, groupStyle.Render(group))
		}

		label := labelStyle.Render(f.Label + strings.Repeat(" ", labelW-runewidth.StringWidth(f.Label)))
		var value string
		switch {
		case i == m.focus && m.editing:
			value = m.input.View()
		case f.Get(doc) == "":
			value = emptyStyle.Render("—")
		case f.Multiline:
			value = wordwrap.String(f.Get(doc), valueW)
		default:
			value = ansi.Truncate(f.Get(doc), valueW, "…")
		}

		marker := "  "
		if i == m.focus {
			marker = "▸ "
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top, marker, label, " ", value)
		if i == m.focus && !m.editing {
			row = focusStyle.Render(row)
		}
		row = zone.Mark(fieldZoneID(i), row)

		if i == m.focus {
			focusStart = len(lines)
		}
		lines = append(lines, strings.Split(row, "\n")...)
		if i == m.focus {
			focusEnd = len(lines)
		}
	}

	// Scroll so the focused row is visible.
	start := 0
	if focusEnd > bodyHeight {
		start = focusEnd - bodyHeight
	}
	if focusStart < start {
		start = focusStart
	}
	end := min(start+bodyHeight, len(lines))
	visible := lines[start:end]
	for len(visible) < bodyHeight {
		visible = append(visible, "")
	}

	return lipgloss.NewStyle().Width(width).MaxWidth(width).Render(strings.Join(visible, "\n"))
}

func (m Model) statusView() string {
	color, ok := statusColors[m.status.Kind]
	if !ok {
		color = statusColors[autosave.KindIdle]
	}
	parts := []string{lipgloss.NewStyle().Foreground(color).Bold(true).Render(m.status.String())}

	cursor, length := m.sess.HistoryPosition()
	parts = append(parts, statusStyle.Render(fmt.Sprintf("history %d/%d", cursor+1, length)))
	if m.sess.CanUndo() {
		parts = append(parts, statusStyle.Render("undo"))
	}
	if m.sess.CanRedo() {
		parts = append(parts, statusStyle.Render("redo"))
	}
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	return ansi.Truncate(strings.Join(parts, statusStyle.Render(" · ")), m.width, "…")
}
