// Package app contains the root application model.
package app

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/zjrosen/vitae/internal/assist"
	"github.com/zjrosen/vitae/internal/autosave"
	"github.com/zjrosen/vitae/internal/flags"
	"github.com/zjrosen/vitae/internal/keys"
	"github.com/zjrosen/vitae/internal/log"
	"github.com/zjrosen/vitae/internal/pubsub"
	"github.com/zjrosen/vitae/internal/resume"
	"github.com/zjrosen/vitae/internal/session"
	"github.com/zjrosen/vitae/internal/shortcut"
)

// Config holds the dependencies of the editor model.
type Config struct {
	Session *session.Session
	// Assist may be nil, which disables ctrl+g and the salary estimate.
	Assist *assist.Client
	Flags  *flags.Registry
	// ExportDir receives markdown exports.
	ExportDir string
	// ConfigPath is where UI preferences are saved. Empty disables saving.
	ConfigPath    string
	MarkdownStyle string
	ShowPreview   bool
	// DebugMode shows the latest log line under the status bar.
	DebugMode bool
	// ConfigChanges signals that ConfigPath changed on disk. May be nil.
	ConfigChanges <-chan struct{}
}

// Model is the root application state.
type Model struct {
	sess       *session.Session
	assist     *assist.Client
	flags      *flags.Registry
	keys       keys.KeyMap
	dispatcher *shortcut.Dispatcher

	// Form state
	fields  []resume.Field
	focus   int
	editing bool
	input   textinput.Model

	// Preview state
	preview       viewport.Model
	showPreview   bool
	markdownStyle string
	renderer      *previewRenderer
	salary        salaryState

	help     help.Model
	showHelp bool

	status   autosave.Status
	notice   string
	logLine  string
	width    int
	height   int
	quitting bool

	exportDir     string
	configPath    string
	configChanges <-chan struct{}
	debugMode     bool

	listenCtx      context.Context
	listenCancel   context.CancelFunc
	statusListener *pubsub.ContinuousListener[autosave.Status]
	logListener    *pubsub.ContinuousListener[string]
}

// New creates the editor model.
func New(cfg Config) Model {
	km := keys.DefaultKeyMap()
	km.SetAssistEnabled(cfg.Assist != nil && cfg.Flags.Enabled(flags.FlagAssist))

	input := textinput.New()
	input.Prompt = ""

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		sess:           cfg.Session,
		assist:         cfg.Assist,
		flags:          cfg.Flags,
		keys:           km,
		dispatcher:     shortcut.NewDispatcher(shortcut.DefaultBindings()),
		input:          input,
		preview:        viewport.New(0, 0),
		showPreview:    cfg.ShowPreview,
		markdownStyle:  cfg.MarkdownStyle,
		renderer:       &previewRenderer{},
		help:           help.New(),
		status:         cfg.Session.Status(),
		exportDir:      cfg.ExportDir,
		configPath:     cfg.ConfigPath,
		configChanges:  cfg.ConfigChanges,
		debugMode:      cfg.DebugMode,
		listenCtx:      ctx,
		listenCancel:   cancel,
		statusListener: pubsub.NewContinuousListener(ctx, cfg.Session.StatusEvents()),
	}
	if cfg.DebugMode {
		m.logListener = pubsub.NewChannelListener(ctx, log.Subscribe(ctx))
	}
	m.fields = resume.Fields(m.sess.Document())
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.statusListener.Listen()}
	if m.logListener != nil {
		cmds = append(cmds, m.logListener.Listen())
	}
	cmds = append(cmds, m.waitForConfigChange())
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m = m.layout()
		return m.refreshPreview()

	case pubsub.Event[autosave.Status]:
		m.status = msg.Payload
		return m, m.statusListener.Listen()

	case pubsub.Event[string]:
		m.logLine = msg.Payload
		return m, m.logListener.Listen()

	case exportedMsg:
		if msg.err != nil {
			m.notice = "Export failed: " + msg.err.Error()
		} else {
			m.notice = "Exported " + msg.path
		}
		return m, nil

	case enhancedMsg:
		return m.handleEnhanced(msg)

	case configReloadedMsg:
		return m.handleConfigReloaded(msg)

	case salaryMsg:
		return m.handleSalary(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	target := shortcut.TargetNone
	if m.editing {
		target = shortcut.TargetTextInput
	}
	if b, ok := m.dispatcher.Match(shortcut.FromKeyMsg(msg, target)); ok {
		log.Debug(log.CatKeys, "Shortcut", "combo", b.String(), "action", b.Action)
		return m.runAction(b.Action)
	}

	if m.editing {
		return m.handleEditingKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m.layout(), nil
	case key.Matches(msg, m.keys.Up, m.keys.PrevItem):
		m.focus = max(m.focus-1, 0)
		return m, nil
	case key.Matches(msg, m.keys.Down, m.keys.NextItem):
		m.focus = min(m.focus+1, len(m.fields)-1)
		return m, nil
	case key.Matches(msg, m.keys.Edit):
		return m.startEditing()
	case key.Matches(msg, m.keys.AddExperience):
		m.sess.Replace(m.sess.Document().AddExperience())
		m = m.syncFields()
		m.focus = m.firstFieldOfLastExperience()
		return m.refreshPreview()
	case key.Matches(msg, m.keys.RemoveExperience):
		idx, ok := experienceIndex(m.focusedField().Key)
		if !ok {
			m.notice = "Focus an experience entry to remove it"
			return m, nil
		}
		m.sess.Replace(m.sess.Document().RemoveExperience(idx))
		m = m.syncFields()
		return m.refreshPreview()
	case key.Matches(msg, m.keys.Enhance):
		return m.enhanceFocused()
	case key.Matches(msg, m.keys.ScrollUp):
		m.preview.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.ScrollDown):
		m.preview.HalfViewDown()
		return m, nil
	}
	return m, nil
}

func (m Model) handleEditingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Leave):
		m.editing = false
		m.input.Blur()
		return m.refreshPreview()
	case msg.Type == tea.KeyEnter, msg.Type == tea.KeyTab:
		// Commit and move on, the way a form advances between inputs.
		m.editing = false
		m.input.Blur()
		m.focus = min(m.focus+1, len(m.fields)-1)
		return m.refreshPreview()
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}

	field := m.focusedField()
	m.sess.Replace(field.Set(m.sess.Document(), m.input.Value()))
	m = m.syncFields()
	m, previewCmd := m.refreshPreviewModel()
	return m, tea.Batch(cmd, previewCmd)
}

// runAction executes a dispatcher action. Save, undo and redo work the same
// inside and outside a text field.
func (m Model) runAction(action shortcut.Action) (tea.Model, tea.Cmd) {
	switch action {
	case shortcut.ActionSave:
		m.sess.SaveNow()
		m.notice = ""
		return m, nil
	case shortcut.ActionUndo:
		if !m.sess.Undo() {
			m.notice = "Nothing to undo"
			return m, nil
		}
		m.notice = ""
		m = m.syncFields().syncInput()
		return m.refreshPreview()
	case shortcut.ActionRedo:
		if !m.sess.Redo() {
			m.notice = "Nothing to redo"
			return m, nil
		}
		m.notice = ""
		m = m.syncFields().syncInput()
		return m.refreshPreview()
	case shortcut.ActionExport:
		return m, exportCmd(m.exportDir, m.sess.Document())
	case shortcut.ActionTogglePreview:
		m.showPreview = !m.showPreview
		m = m.layout()
		var cmd tea.Cmd
		m, cmd = m.refreshPreviewModel()
		return m, tea.Batch(cmd, savePreferenceCmd(m.configPath, "ui.show_preview", m.showPreview))
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.showPreview {
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
			return m, cmd
		}
	}
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	for i := range m.fields {
		if z := zone.Get(fieldZoneID(i)); z != nil && z.InBounds(msg) {
			if m.editing && i != m.focus {
				m.editing = false
				m.input.Blur()
			}
			m.focus = i
			return m, nil
		}
	}
	return m, nil
}

func (m Model) startEditing() (tea.Model, tea.Cmd) {
	if len(m.fields) == 0 {
		return m, nil
	}
	m.editing = true
	m.notice = ""
	m.input.SetValue(m.focusedField().Get(m.sess.Document()))
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) focusedField() resume.Field {
	if m.focus < 0 || m.focus >= len(m.fields) {
		return resume.Field{}
	}
	return m.fields[m.focus]
}

// syncFields rebuilds the field list from the current document, keeping
// focus on the same key when it still exists.
func (m Model) syncFields() Model {
	focused := m.focusedField().Key
	m.fields = resume.Fields(m.sess.Document())
	for i, f := range m.fields {
		if f.Key == focused {
			m.focus = i
			return m
		}
	}
	m.focus = max(min(m.focus, len(m.fields)-1), 0)
	if m.editing {
		m.editing = false
		m.input.Blur()
	}
	return m
}

// syncInput reloads the text input after the document changed underneath
// it, e.g. on undo.
func (m Model) syncInput() Model {
	if !m.editing {
		return m
	}
	v := m.focusedField().Get(m.sess.Document())
	if v != m.input.Value() {
		m.input.SetValue(v)
		m.input.CursorEnd()
	}
	return m
}

func (m Model) firstFieldOfLastExperience() int {
	n := len(m.sess.Document().Experience)
	want := experienceKey(n-1, "company")
	for i, f := range m.fields {
		if f.Key == want {
			return i
		}
	}
	return m.focus
}

// Close stops event listeners. The session is closed by the caller.
func (m *Model) Close() {
	if m.listenCancel != nil {
		m.listenCancel()
	}
}
