package session

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/vitae/internal/resume"
)

// ChangeType marks a line as added or removed since the last save.
type ChangeType int

const (
	LineRemoved ChangeType = iota
	LineAdded
)

// LineChange is one changed line of the rendered document.
type LineChange struct {
	Type ChangeType
	Text string
}

// String renders the change with a diff-style prefix.
func (c LineChange) String() string {
	if c.Type == LineAdded {
		return "+ " + c.Text
	}
	return "- " + c.Text
}

// PendingChanges returns the line diff between the last persisted document
// and the current one, both rendered as markdown. Empty when clean.
func (s *Session) PendingChanges() []LineChange {
	return diffLines(s.getBaseline(), resume.Markdown(s.Document()))
}

// FormatChanges renders changes one per line.
func FormatChanges(changes []LineChange) string {
	var b strings.Builder
	for _, c := range changes {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func diffLines(before, after string) []LineChange {
	if before == after {
		return nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var changes []LineChange
	for _, d := range diffs {
		var typ ChangeType
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = LineAdded
		case diffmatchpatch.DiffDelete:
			typ = LineRemoved
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			changes = append(changes, LineChange{Type: typ, Text: line})
		}
	}
	return changes
}
