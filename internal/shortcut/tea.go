package shortcut

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// ParseCombo splits a "ctrl+shift+z" style string into its key and
// modifiers. "cmd" and "meta" count as ctrl. A single uppercase letter
// implies shift.
func ParseCombo(combo string) (string, Modifiers) {
	var key, prefix string
	switch {
	case combo == "+":
		return "+", Modifiers{}
	case strings.HasSuffix(combo, "++"):
		key, prefix = "+", strings.TrimSuffix(combo, "++")
	default:
		idx := strings.LastIndex(combo, "+")
		key, prefix = combo[idx+1:], combo[:max(idx, 0)]
	}

	var mods Modifiers
	for _, tok := range strings.Split(prefix, "+") {
		switch strings.ToLower(tok) {
		case "ctrl", "cmd", "meta":
			mods.Ctrl = true
		case "shift":
			mods.Shift = true
		case "alt", "option":
			mods.Alt = true
		}
	}

	if r, size := utf8.DecodeRuneInString(key); size == len(key) && unicode.IsUpper(r) {
		mods.Shift = true
		key = string(unicode.ToLower(r))
	}
	return strings.ToLower(key), mods
}

// FromKeyMsg converts a bubbletea key press into an Event.
func FromKeyMsg(msg tea.KeyMsg, target Target) Event {
	if msg.Paste {
		return Event{Target: target}
	}
	key, mods := ParseCombo(msg.String())
	return Event{
		Key:    key,
		Ctrl:   mods.Ctrl,
		Shift:  mods.Shift,
		Alt:    mods.Alt,
		Target: target,
	}
}
