// Package shortcut maps keyboard events to editing actions.
//
// Bindings are matched in order and the first binding whose key and modifier
// set both match exactly wins. Modifiers are compared strictly: a binding
// without Shift does not match an event with Shift held. When the event
// originates in a free-text input only the actions in the text-input
// allow-list (save, undo, redo) are dispatched; everything else is left to
// the input so typing is never hijacked.
package shortcut

import (
	"strings"

	"github.com/zjrosen/vitae/internal/log"
)

// Action is a logical editing command.
type Action string

const (
	ActionSave          Action = "save"
	ActionUndo          Action = "undo"
	ActionRedo          Action = "redo"
	ActionExport        Action = "export"
	ActionTogglePreview Action = "toggle-preview"
)

// textInputAllowed lists the actions that still fire inside text inputs.
var textInputAllowed = map[Action]bool{
	ActionSave: true,
	ActionUndo: true,
	ActionRedo: true,
}

// Modifiers is the exact modifier set of a binding or event.
type Modifiers struct {
	Ctrl  bool
	Shift bool
	Alt   bool
}

// String renders the modifiers as a "ctrl+shift+" style prefix.
func (m Modifiers) String() string {
	var b strings.Builder
	if m.Ctrl {
		b.WriteString("ctrl+")
	}
	if m.Alt {
		b.WriteString("alt+")
	}
	if m.Shift {
		b.WriteString("shift+")
	}
	return b.String()
}

// Binding ties a key combination to an action.
type Binding struct {
	Key         string
	Modifiers   Modifiers
	Action      Action
	Description string
}

// String renders the combination, e.g. "ctrl+shift+z".
func (b Binding) String() string {
	return b.Modifiers.String() + strings.ToLower(b.Key)
}

// Target identifies what had focus when the key was pressed.
type Target int

const (
	// TargetNone is anything that is not a text input.
	TargetNone Target = iota
	// TargetTextInput is a focused free-text field.
	TargetTextInput
)

// Event is a single key press.
type Event struct {
	Key    string
	Ctrl   bool
	Meta   bool // Cmd on macOS, treated as Ctrl
	Shift  bool
	Alt    bool
	Target Target
}

func (e Event) modifiers() Modifiers {
	return Modifiers{Ctrl: e.Ctrl || e.Meta, Shift: e.Shift, Alt: e.Alt}
}

func (b Binding) matches(e Event) bool {
	return strings.EqualFold(b.Key, e.Key) && b.Modifiers == e.modifiers()
}

// DefaultBindings returns the editor's bindings. ctrl+shift+z is listed
// ahead of ctrl+z so redo stays reachable if matching is ever relaxed.
func DefaultBindings() []Binding {
	return []Binding{
		{Key: "s", Modifiers: Modifiers{Ctrl: true}, Action: ActionSave, Description: "save"},
		{Key: "z", Modifiers: Modifiers{Ctrl: true, Shift: true}, Action: ActionRedo, Description: "redo"},
		{Key: "z", Modifiers: Modifiers{Ctrl: true}, Action: ActionUndo, Description: "undo"},
		{Key: "y", Modifiers: Modifiers{Ctrl: true}, Action: ActionRedo, Description: "redo"},
		{Key: "e", Modifiers: Modifiers{Ctrl: true}, Action: ActionExport, Description: "export"},
		{Key: "p", Modifiers: Modifiers{Ctrl: true}, Action: ActionTogglePreview, Description: "preview"},
	}
}

// Dispatcher resolves events against an ordered binding list.
type Dispatcher struct {
	bindings []Binding
	handlers map[Action]func()
}

// NewDispatcher creates a dispatcher over bindings, in priority order.
func NewDispatcher(bindings []Binding) *Dispatcher {
	return &Dispatcher{
		bindings: append([]Binding(nil), bindings...),
		handlers: make(map[Action]func()),
	}
}

// On registers the handler run when action is dispatched.
func (d *Dispatcher) On(action Action, fn func()) *Dispatcher {
	d.handlers[action] = fn
	return d
}

// Bindings returns a copy of the binding list.
func (d *Dispatcher) Bindings() []Binding {
	return append([]Binding(nil), d.bindings...)
}

// Match returns the binding the event resolves to. ok is false for
// unbound combinations and for non-allow-listed actions in text inputs.
func (d *Dispatcher) Match(e Event) (Binding, bool) {
	for _, b := range d.bindings {
		if !b.matches(e) {
			continue
		}
		if e.Target == TargetTextInput && !textInputAllowed[b.Action] {
			log.Debug(log.CatKeys, "Shortcut suppressed in text input", "combo", b.String())
			return Binding{}, false
		}
		return b, true
	}
	return Binding{}, false
}

// Dispatch runs the handler for the matched action. It returns true when
// the event was consumed and the key's default behaviour should be
// suppressed. A matched action without a handler is still consumed.
func (d *Dispatcher) Dispatch(e Event) bool {
	b, ok := d.Match(e)
	if !ok {
		return false
	}
	log.Debug(log.CatKeys, "Shortcut", "combo", b.String(), "action", b.Action)
	if fn := d.handlers[b.Action]; fn != nil {
		fn()
	}
	return true
}
