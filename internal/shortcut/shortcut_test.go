package shortcut

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func ctrl(key string) Event { return Event{Key: key, Ctrl: true} }

func TestMatch_DefaultBindings(t *testing.T) {
	d := NewDispatcher(DefaultBindings())

	tests := []struct {
		name   string
		event  Event
		action Action
		ok     bool
	}{
		{"ctrl+s saves", ctrl("s"), ActionSave, true},
		{"ctrl+z undoes", ctrl("z"), ActionUndo, true},
		{"ctrl+shift+z redoes", Event{Key: "z", Ctrl: true, Shift: true}, ActionRedo, true},
		{"ctrl+y redoes", ctrl("y"), ActionRedo, true},
		{"ctrl+e exports", ctrl("e"), ActionExport, true},
		{"ctrl+p toggles preview", ctrl("p"), ActionTogglePreview, true},
		{"key is case-insensitive", Event{Key: "S", Ctrl: true}, ActionSave, true},
		{"meta counts as ctrl", Event{Key: "s", Meta: true}, ActionSave, true},
		{"plain s is unbound", Event{Key: "s"}, "", false},
		{"extra alt does not match", Event{Key: "s", Ctrl: true, Alt: true}, "", false},
		{"extra shift does not match save", Event{Key: "s", Ctrl: true, Shift: true}, "", false},
		{"ctrl+shift+y is unbound", Event{Key: "y", Ctrl: true, Shift: true}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := d.Match(tt.event)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.action, b.Action)
		})
	}
}

func TestMatch_TextInputAllowList(t *testing.T) {
	d := NewDispatcher(DefaultBindings())
	in := func(e Event) Event {
		e.Target = TargetTextInput
		return e
	}

	b, ok := d.Match(in(ctrl("s")))
	require.True(t, ok)
	require.Equal(t, ActionSave, b.Action)

	_, ok = d.Match(in(ctrl("z")))
	require.True(t, ok)
	_, ok = d.Match(in(ctrl("y")))
	require.True(t, ok)

	_, ok = d.Match(in(Event{Key: "s"}))
	require.False(t, ok, "plain typing must not trigger shortcuts")

	_, ok = d.Match(in(ctrl("e")))
	require.False(t, ok, "export is not allowed inside text inputs")
	_, ok = d.Match(in(ctrl("p")))
	require.False(t, ok)
}

func TestMatch_FirstMatchWins(t *testing.T) {
	d := NewDispatcher([]Binding{
		{Key: "k", Modifiers: Modifiers{Ctrl: true}, Action: ActionSave},
		{Key: "k", Modifiers: Modifiers{Ctrl: true}, Action: ActionExport},
	})
	b, ok := d.Match(ctrl("k"))
	require.True(t, ok)
	require.Equal(t, ActionSave, b.Action)
}

func TestDispatch_RedoAliasesFireOnce(t *testing.T) {
	var redo, undo int
	d := NewDispatcher(DefaultBindings()).
		On(ActionRedo, func() { redo++ }).
		On(ActionUndo, func() { undo++ })

	require.True(t, d.Dispatch(Event{Key: "z", Ctrl: true, Shift: true}))
	require.Equal(t, 1, redo)
	require.True(t, d.Dispatch(ctrl("y")))
	require.Equal(t, 2, redo)
	require.Zero(t, undo)
}

func TestDispatch_UnmatchedIsIgnored(t *testing.T) {
	called := false
	d := NewDispatcher(DefaultBindings()).On(ActionSave, func() { called = true })

	require.False(t, d.Dispatch(Event{Key: "s", Target: TargetTextInput}))
	require.False(t, d.Dispatch(Event{Key: "q", Ctrl: true}))
	require.False(t, called)

	require.True(t, d.Dispatch(Event{Key: "s", Ctrl: true, Target: TargetTextInput}))
	require.True(t, called)
}

func TestDispatch_NoHandlerStillConsumes(t *testing.T) {
	d := NewDispatcher(DefaultBindings())
	require.True(t, d.Dispatch(ctrl("e")))
}

func TestBindings_ReturnsCopy(t *testing.T) {
	d := NewDispatcher(DefaultBindings())
	bs := d.Bindings()
	bs[0].Action = ActionExport
	require.Equal(t, ActionSave, d.Bindings()[0].Action)
}

func TestBinding_String(t *testing.T) {
	b := Binding{Key: "Z", Modifiers: Modifiers{Ctrl: true, Shift: true}}
	require.Equal(t, "ctrl+shift+z", b.String())
}

func TestParseCombo(t *testing.T) {
	tests := []struct {
		in   string
		key  string
		mods Modifiers
	}{
		{"s", "s", Modifiers{}},
		{"S", "s", Modifiers{Shift: true}},
		{"ctrl+s", "s", Modifiers{Ctrl: true}},
		{"ctrl+shift+z", "z", Modifiers{Ctrl: true, Shift: true}},
		{"cmd+z", "z", Modifiers{Ctrl: true}},
		{"alt+Z", "z", Modifiers{Alt: true, Shift: true}},
		{"shift+tab", "tab", Modifiers{Shift: true}},
		{"ctrl++", "+", Modifiers{Ctrl: true}},
		{"+", "+", Modifiers{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			key, mods := ParseCombo(tt.in)
			require.Equal(t, tt.key, key)
			require.Equal(t, tt.mods, mods)
		})
	}
}

func TestFromKeyMsg(t *testing.T) {
	d := NewDispatcher(DefaultBindings())

	ev := FromKeyMsg(tea.KeyMsg{Type: tea.KeyCtrlS}, TargetTextInput)
	require.Equal(t, Event{Key: "s", Ctrl: true, Target: TargetTextInput}, ev)
	b, ok := d.Match(ev)
	require.True(t, ok)
	require.Equal(t, ActionSave, b.Action)

	ev = FromKeyMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}}, TargetTextInput)
	_, ok = d.Match(ev)
	require.False(t, ok)

	ev = FromKeyMsg(tea.KeyMsg{Type: tea.KeyCtrlY}, TargetNone)
	b, ok = d.Match(ev)
	require.True(t, ok)
	require.Equal(t, ActionRedo, b.Action)

	ev = FromKeyMsg(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ctrl+s"), Paste: true}, TargetTextInput)
	_, ok = d.Match(ev)
	require.False(t, ok, "pasted text is never a shortcut")
}
