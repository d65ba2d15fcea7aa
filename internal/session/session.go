// Package session owns the state of one editing session: the current
// document, its undo/redo history and the save scheduler that persists it.
//
// Every mutation produces a new document value, commits it to history and
// notifies the scheduler. Reads go through Document, which is also the
// accessor the scheduler calls at fire time.
package session

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/vitae/internal/autosave"
	"github.com/zjrosen/vitae/internal/history"
	"github.com/zjrosen/vitae/internal/log"
	"github.com/zjrosen/vitae/internal/pubsub"
	"github.com/zjrosen/vitae/internal/resume"
)

// Config holds configuration for creating a Session.
type Config struct {
	// Document is the loaded (or blank) document the session starts from.
	// It is treated as already persisted.
	Document resume.Document
	// Persister stores documents. Required.
	Persister autosave.Persister
	// MaxHistory defaults to history.DefaultMaxEntries if zero.
	MaxHistory int
	// Debounce and Interval default to the autosave defaults if zero.
	Debounce time.Duration
	Interval time.Duration
	// Clock defaults to the real clock if nil.
	Clock autosave.Clock
	// Tracer defaults to a no-op tracer if nil.
	Tracer trace.Tracer
}

// Session is a single document editing session. Safe for concurrent use.
type Session struct {
	// editMu serializes mutations so history sees them in order.
	editMu sync.Mutex

	mu  sync.RWMutex
	doc resume.Document

	baselineMu sync.Mutex
	baseline   string

	history *history.History[resume.Document]
	saver   *autosave.Scheduler
	status  *pubsub.Broker[autosave.Status]
}

// New creates a session and starts its save scheduler.
func New(cfg Config) *Session {
	doc := cfg.Document.Clone()
	s := &Session{
		doc:      doc,
		baseline: resume.Markdown(doc),
		history:  history.New(doc, cfg.MaxHistory, resume.Equal),
		status:   pubsub.NewBroker[autosave.Status](pubsub.WithRetainLast()),
	}
	s.saver = autosave.New(autosave.Config{
		Debounce:  cfg.Debounce,
		Interval:  cfg.Interval,
		Source:    s.Document,
		Persister: &trackingPersister{session: s, next: cfg.Persister},
		Clock:     cfg.Clock,
		Broker:    s.status,
		Tracer:    cfg.Tracer,
	})
	s.saver.Start()

	log.Debug(log.CatSave, "Session started", "id", doc.ID, "max_history", s.history.MaxEntries())
	return s
}

// Document returns the current document. The returned value shares slices
// with the session's copy and must not be modified in place; use Edit.
func (s *Session) Document() resume.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Edit applies fn to a deep copy of the current document and makes the
// result current. It reports whether the edit was recorded in history.
func (s *Session) Edit(fn func(doc *resume.Document)) bool {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	next := s.Document().Clone()
	fn(&next)
	return s.apply(next)
}

// Replace makes doc the current document, recording it in history.
func (s *Session) Replace(doc resume.Document) bool {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	return s.apply(doc.Clone())
}

// Undo restores the previous snapshot. It returns false when there is
// nothing to undo.
func (s *Session) Undo() bool {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	snap, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.apply(snap)
	return true
}

// Redo reapplies the next snapshot. It returns false when there is nothing
// to redo.
func (s *Session) Redo() bool {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	snap, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.apply(snap)
	return true
}

// apply makes doc current, commits it and notifies the scheduler. After an
// undo or redo the commit is the history move's echo and is not recorded.
func (s *Session) apply(doc resume.Document) bool {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	recorded := s.history.Commit(doc)
	s.saver.Notify()
	return recorded
}

// CanUndo reports whether Undo would change the document.
func (s *Session) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether Redo would change the document.
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// HistoryPosition returns the cursor and the number of buffered snapshots.
func (s *Session) HistoryPosition() (cursor, length int) {
	return s.history.Cursor(), s.history.Len()
}

// Load switches the session to a different document. The loaded document
// is treated as persisted and history restarts from it, so it cannot be
// undone back to the previous document.
func (s *Session) Load(doc resume.Document) {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	doc = doc.Clone()
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.history.Reset(doc)
	s.saver.Rebase()
	s.setBaseline(doc)
	log.Info(log.CatSave, "Loaded document", "id", doc.ID)
}

// SaveNow starts a save without waiting for the debounce window.
func (s *Session) SaveNow() {
	s.saver.SaveNow()
}

// Flush saves and waits for the outcome.
func (s *Session) Flush(ctx context.Context) error {
	return s.saver.Flush(ctx)
}

// Status returns the current save status.
func (s *Session) Status() autosave.Status {
	return s.saver.Status()
}

// StatusEvents returns the broker that publishes every save status
// transition. The latest status is replayed to new subscribers.
func (s *Session) StatusEvents() *pubsub.Broker[autosave.Status] {
	return s.status
}

// HasUnsavedChanges reports whether the current document is not yet stored.
func (s *Session) HasUnsavedChanges() bool {
	return s.saver.HasUnsavedChanges()
}

// Close stops autosave and flushes pending changes. The error wraps
// autosave.ErrUnsavedChanges when the final save did not complete.
func (s *Session) Close(ctx context.Context) error {
	err := s.saver.Close(ctx)
	s.status.Close()
	return err
}

func (s *Session) setBaseline(doc resume.Document) {
	s.baselineMu.Lock()
	defer s.baselineMu.Unlock()
	s.baseline = resume.Markdown(doc)
}

func (s *Session) getBaseline() string {
	s.baselineMu.Lock()
	defer s.baselineMu.Unlock()
	return s.baseline
}

// trackingPersister remembers the last successfully stored document for
// PendingChanges.
type trackingPersister struct {
	session *Session
	next    autosave.Persister
}

func (p *trackingPersister) Persist(ctx context.Context, doc resume.Document) error {
	if err := p.next.Persist(ctx, doc); err != nil {
		return err
	}
	// A save of the previous document can finish after Load.
	if doc.ID == p.session.Document().ID {
		p.session.setBaseline(doc)
	}
	return nil
}
