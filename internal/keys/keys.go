// Package keys contains keybinding definitions.
//
// Editor commands that must also work while a field is being edited (save,
// undo, redo, export, preview) are owned by the shortcut package. The
// bindings here cover navigation between fields and other commands that
// only apply when no field is being edited.
package keys

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/zjrosen/vitae/internal/shortcut"
)

// KeyMap defines the keybindings for the editor.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	NextItem key.Binding
	PrevItem key.Binding

	// Editing
	Edit             key.Binding
	Leave            key.Binding
	AddExperience    key.Binding
	RemoveExperience key.Binding
	Enhance          key.Binding

	// Preview
	ScrollUp   key.Binding
	ScrollDown key.Binding

	// General
	Help key.Binding
	Quit key.Binding

	// Shortcuts mirrors the dispatcher table for help rendering.
	Shortcuts []key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Navigation
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous field"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next field"),
		),
		NextItem: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevItem: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous field"),
		),

		// Editing
		Edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit field"),
		),
		Leave: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop editing"),
		),
		AddExperience: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "add experience"),
		),
		RemoveExperience: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "remove experience"),
		),
		Enhance: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "enhance field"),
			key.WithDisabled(),
		),

		// Preview
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll preview up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll preview down"),
		),

		// General
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),

		Shortcuts: FromShortcuts(shortcut.DefaultBindings()),
	}
}

// FromShortcuts converts dispatcher bindings into help entries. Bindings for
// the same action are merged into one entry, e.g. "ctrl+shift+z/ctrl+y redo".
func FromShortcuts(bindings []shortcut.Binding) []key.Binding {
	var (
		order  []shortcut.Action
		combos = map[shortcut.Action][]string{}
		descs  = map[shortcut.Action]string{}
	)
	for _, b := range bindings {
		if _, seen := combos[b.Action]; !seen {
			order = append(order, b.Action)
			descs[b.Action] = b.Description
		}
		combos[b.Action] = append(combos[b.Action], b.String())
	}

	out := make([]key.Binding, 0, len(order))
	for _, action := range order {
		keys := combos[action]
		help := keys[0]
		for _, k := range keys[1:] {
			help += "/" + k
		}
		out = append(out, key.NewBinding(
			key.WithKeys(keys...),
			key.WithHelp(help, descs[action]),
		))
	}
	return out
}

// SetAssistEnabled toggles the enhance binding, which is gated by a feature
// flag.
func (k *KeyMap) SetAssistEnabled(enabled bool) {
	k.Enhance.SetEnabled(enabled)
}

// ShortHelp returns keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	short := []key.Binding{k.Edit, k.NextItem}
	if len(k.Shortcuts) > 0 {
		short = append(short, k.Shortcuts[0])
	}
	return append(short, k.Help, k.Quit)
}

// FullHelp returns keybindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextItem, k.PrevItem},
		{k.Edit, k.Leave, k.AddExperience, k.RemoveExperience, k.Enhance},
		k.Shortcuts,
		{k.ScrollUp, k.ScrollDown, k.Help, k.Quit},
	}
}
