// Package history keeps a bounded, linear undo/redo buffer of whole
// snapshots.
//
// The buffer always holds at least one snapshot and a cursor to the current
// one. Committing while the cursor is behind the tail discards the redo
// branch; committing past the capacity evicts the oldest snapshot. Undo and
// Redo only move the cursor.
//
// Applying an undo/redo result to the document usually produces a change
// notification that would otherwise be recorded as a new commit. After every
// successful Undo or Redo the buffer enters ModeApplyingMove, and the next
// Commit is consumed as that echo instead of being recorded:
//
//	snap, ok := h.Undo()
//	if ok {
//		doc = snap
//		h.Commit(doc) // consumed, returns false
//	}
package history

import (
	"sync"

	"github.com/zjrosen/vitae/internal/log"
)

// DefaultMaxEntries is used when a capacity below 1 is requested.
const DefaultMaxEntries = 50

// Mode discriminates ordinary commits from the echo of a history move.
type Mode int

const (
	// ModeNormal records structurally different commits.
	ModeNormal Mode = iota
	// ModeApplyingMove swallows exactly one Commit following Undo or Redo.
	ModeApplyingMove
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeApplyingMove:
		return "applying-history-move"
	default:
		return "unknown"
	}
}

// History is a bounded snapshot buffer with a cursor. Safe for concurrent use.
type History[T any] struct {
	mu         sync.Mutex
	entries    []T
	cursor     int
	maxEntries int
	mode       Mode
	equal      func(a, b T) bool
}

// New seeds a history with initial. equal decides whether a commit is a
// material change.
func New[T any](initial T, maxEntries int, equal func(a, b T) bool) *History[T] {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	return &History[T]{
		entries:    []T{initial},
		maxEntries: maxEntries,
		equal:      equal,
	}
}

// Commit records next as the new current snapshot and reports whether it
// was recorded. Equal snapshots and the echo of an undo/redo are not.
func (h *History[T]) Commit(next T) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mode == ModeApplyingMove {
		h.mode = ModeNormal
		log.Debug(log.CatHistory, "Commit consumed by history move", "cursor", h.cursor)
		return false
	}

	if h.equal(h.entries[h.cursor], next) {
		return false
	}

	h.entries = append(h.entries[:h.cursor+1], next)
	if len(h.entries) > h.maxEntries {
		// Zero the evicted slot so the snapshot can be collected.
		var zero T
		h.entries[0] = zero
		h.entries = h.entries[1:]
	}
	h.cursor = len(h.entries) - 1

	log.Debug(log.CatHistory, "Committed snapshot", "len", len(h.entries), "cursor", h.cursor)
	return true
}

// Undo moves the cursor back one snapshot and returns it. ok is false (and
// nothing changes) when already at the oldest snapshot.
func (h *History[T]) Undo() (snapshot T, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor == 0 {
		return h.entries[h.cursor], false
	}
	h.cursor--
	h.mode = ModeApplyingMove
	return h.entries[h.cursor], true
}

// Redo moves the cursor forward one snapshot and returns it. ok is false
// (and nothing changes) when already at the newest snapshot.
func (h *History[T]) Redo() (snapshot T, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor == len(h.entries)-1 {
		return h.entries[h.cursor], false
	}
	h.cursor++
	h.mode = ModeApplyingMove
	return h.entries[h.cursor], true
}

// Clear drops every snapshot except the current one.
func (h *History[T]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	current := h.entries[h.cursor]
	h.entries = []T{current}
	h.cursor = 0
	h.mode = ModeNormal
}

// Reset replaces the buffer with a single snapshot. Used when a different
// document is loaded into the session.
func (h *History[T]) Reset(snapshot T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = []T{snapshot}
	h.cursor = 0
	h.mode = ModeNormal
}

// Current returns the snapshot under the cursor.
func (h *History[T]) Current() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.cursor]
}

// CanUndo reports whether Undo would move the cursor.
func (h *History[T]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor > 0
}

// CanRedo reports whether Redo would move the cursor.
func (h *History[T]) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor < len(h.entries)-1
}

// Len returns the number of buffered snapshots.
func (h *History[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Cursor returns the index of the current snapshot.
func (h *History[T]) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// Mode returns the pending commit mode.
func (h *History[T]) Mode() Mode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

// MaxEntries returns the buffer capacity.
func (h *History[T]) MaxEntries() int {
	return h.maxEntries
}
