package autosave

import (
	"fmt"
	"time"
)

// Kind is the save state of a session.
type Kind int

const (
	// KindIdle means nothing has changed since the document was loaded.
	KindIdle Kind = iota
	// KindUnsaved means the document differs from the last persisted value.
	KindUnsaved
	// KindSaving means a persist call is in flight.
	KindSaving
	// KindSaved means the last persist succeeded and nothing changed since.
	KindSaved
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindUnsaved:
		return "unsaved-changes"
	case KindSaving:
		return "saving"
	case KindSaved:
		return "saved"
	default:
		return "unknown"
	}
}

// Status is the value published on every save state transition.
type Status struct {
	Kind Kind
	// At is the completion time of the last successful save. Set for
	// KindSaved, and kept on later states so the UI can show "last saved".
	At time.Time
	// Err is the most recent persist failure, cleared by the next success.
	Err error
}

// Dirty reports whether the status represents pending changes.
func (s Status) Dirty() bool {
	return s.Kind == KindUnsaved
}

// String renders the status for a status bar.
func (s Status) String() string {
	switch s.Kind {
	case KindIdle:
		return "No changes"
	case KindUnsaved:
		if s.Err != nil {
			return fmt.Sprintf("Unsaved changes (save failed: %v)", s.Err)
		}
		return "Unsaved changes"
	case KindSaving:
		return "Saving…"
	case KindSaved:
		return "Saved " + s.At.Format("15:04:05")
	default:
		return s.Kind.String()
	}
}
