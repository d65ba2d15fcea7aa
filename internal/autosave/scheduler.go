// Package autosave schedules durable persistence of the document being
// edited.
//
// A Scheduler observes document changes through Notify and persists the latest
// value after the input has been stable for the debounce window. A periodic
// timer additionally flushes pending changes on a fixed cadence, and Close
// performs a final synchronous flush at session end. At most one persist call
// is ever in flight; changes observed while saving start a new debounce cycle
// once the call resolves.
//
// All scheduler state is owned by a single event loop goroutine. Public
// methods hand closures to the loop and wait for them to run, so timer resets
// and state transitions are never interleaved.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/vitae/internal/log"
	"github.com/zjrosen/vitae/internal/pubsub"
	"github.com/zjrosen/vitae/internal/resume"
	"github.com/zjrosen/vitae/internal/tracing"
)

const (
	// DefaultDebounce is how long input must be stable before a save.
	DefaultDebounce = 2 * time.Second
	// DefaultInterval is the periodic flush cadence.
	DefaultInterval = 30 * time.Second
)

var (
	// ErrUnsavedChanges is returned by Close when the final flush could not
	// be completed. Hosts should warn the user before exiting.
	ErrUnsavedChanges = errors.New("unsaved changes")
	// ErrClosed is returned by operations on a closed scheduler.
	ErrClosed = errors.New("autosave scheduler closed")
)

// Persister durably stores a document.
type Persister interface {
	Persist(ctx context.Context, doc resume.Document) error
}

// PersistFunc adapts a function to Persister.
type PersistFunc func(ctx context.Context, doc resume.Document) error

// Persist calls f.
func (f PersistFunc) Persist(ctx context.Context, doc resume.Document) error {
	return f(ctx, doc)
}

// Config holds configuration for creating a Scheduler.
type Config struct {
	// Debounce defaults to DefaultDebounce if zero.
	Debounce time.Duration
	// Interval defaults to DefaultInterval if zero.
	Interval time.Duration
	// Source returns the current document. It is read at fire time, never
	// captured when a timer is armed. Required.
	Source func() resume.Document
	// Persister stores documents. Required.
	Persister Persister
	// Clock defaults to RealClock if nil.
	Clock Clock
	// Broker receives a Status event on every transition. Optional.
	Broker *pubsub.Broker[Status]
	// Tracer defaults to a no-op tracer if nil.
	Tracer trace.Tracer
}

type saveResult struct {
	gen uint64
	fp  string
	err error
}

// Scheduler debounces, periodically flushes and exit-flushes document saves.
type Scheduler struct {
	debounce  time.Duration
	interval  time.Duration
	clock     Clock
	source    func() resume.Document
	persister Persister
	broker    *pubsub.Broker[Status]
	tracer    trace.Tracer

	// Loop-owned state.
	status     Status
	savedFP    string
	observedFP string
	lastSaved  time.Time
	lastErr    error
	saving     bool
	followUp   bool
	queued     bool
	closing    bool
	gen        uint64
	waiters    []chan error
	debounceT  Timer
	periodicT  Timer

	calls   chan func()
	results chan saveResult

	// Snapshot for readers outside the loop.
	snapMu  sync.RWMutex
	snap    Status
	unsaved atomic.Bool

	ctx       context.Context
	cancel    context.CancelFunc
	loopDone  chan struct{}
	started   atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// New creates a Scheduler. The document returned by Source at this point is
// treated as already persisted.
func New(cfg Config) *Scheduler {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("autosave")
	}

	fp := cfg.Source().Fingerprint()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		debounce:   debounce,
		interval:   interval,
		clock:      clock,
		source:     cfg.Source,
		persister:  cfg.Persister,
		broker:     cfg.Broker,
		tracer:     tracer,
		savedFP:    fp,
		observedFP: fp,
		calls:      make(chan func()),
		results:    make(chan saveResult, 1),
		ctx:        ctx,
		cancel:     cancel,
		loopDone:   make(chan struct{}),
	}
}

// Start launches the event loop and arms the periodic timer. Safe to call
// more than once.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		if s.ctx.Err() != nil {
			return
		}
		s.started.Store(true)
		go s.loop()
	})
}

// Notify tells the scheduler the document may have changed. The current value
// is read from Source and compared with the previously observed one; only a
// real change resets the debounce timer.
func (s *Scheduler) Notify() {
	s.call(s.observe)
}

// SaveNow starts a save immediately, or right after the in-flight one.
func (s *Scheduler) SaveNow() {
	s.call(func() { s.requestSave(nil) })
}

// Flush saves immediately and waits for the outcome.
func (s *Scheduler) Flush(ctx context.Context) error {
	ch := make(chan error, 1)
	if !s.call(func() { s.requestSave(ch) }) {
		return ErrClosed
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rebase treats the current Source value as persisted. Used after a
// different document is loaded into the session; the result of a save still
// in flight for the previous document no longer affects dirtiness.
func (s *Scheduler) Rebase() {
	s.call(func() {
		s.gen++
		fp := s.source().Fingerprint()
		s.savedFP = fp
		s.observedFP = fp
		s.lastSaved = time.Time{}
		s.lastErr = nil
		s.followUp = false
		s.queued = false
		s.stopDebounce()
		if !s.saving {
			s.setStatus(Status{Kind: KindIdle})
		}
	})
}

// Status returns the latest save status.
func (s *Scheduler) Status() Status {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// HasUnsavedChanges reports whether the latest observed document has not
// been durably stored yet, including while a save is in flight.
func (s *Scheduler) HasUnsavedChanges() bool {
	return s.unsaved.Load()
}

// Close stops all timers and performs a final flush if there are unsaved
// changes. A save already in flight is awaited first. The returned error
// wraps ErrUnsavedChanges when the flush fails or ctx expires first. Later
// calls return the first call's result.
func (s *Scheduler) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.shutdown(ctx)
	})
	return s.closeErr
}

// call runs fn on the loop goroutine and waits for it. Returns false when the
// loop is not running.
func (s *Scheduler) call(fn func()) bool {
	ack := make(chan struct{})
	wrapped := func() {
		defer close(ack)
		fn()
	}
	select {
	case s.calls <- wrapped:
	case <-s.ctx.Done():
		return false
	}
	<-ack
	return true
}

func (s *Scheduler) loop() {
	defer close(s.loopDone)

	s.periodicT = s.clock.NewTimer(s.interval)
	s.refresh()

	for {
		select {
		case fn := <-s.calls:
			fn()

		case <-timerC(s.debounceT):
			s.debounceT = nil
			s.onDebounce()

		case <-timerC(s.periodicT):
			s.periodicT = s.clock.NewTimer(s.interval)
			s.onTick()

		case res := <-s.results:
			s.onResult(res)

		case <-s.ctx.Done():
			return
		}
		s.refresh()
	}
}

func (s *Scheduler) dirty() bool {
	return s.observedFP != s.savedFP
}

func (s *Scheduler) observe() {
	fp := s.source().Fingerprint()
	if fp == s.observedFP {
		return
	}
	s.observedFP = fp

	if s.saving {
		s.followUp = true
		log.Debug(log.CatSave, "Change observed during save, deferring debounce")
		return
	}
	if !s.dirty() {
		// Edited back to the persisted value.
		s.stopDebounce()
		s.setStatus(s.cleanStatus())
		return
	}
	s.armDebounce()
	s.setStatus(Status{Kind: KindUnsaved, At: s.lastSaved, Err: s.lastErr})
}

func (s *Scheduler) onDebounce() {
	if s.saving {
		s.followUp = true
		return
	}
	if s.dirty() {
		s.startSave("debounce")
	}
}

func (s *Scheduler) onTick() {
	if s.saving || !s.dirty() {
		return
	}
	s.startSave("periodic")
}

func (s *Scheduler) requestSave(waiter chan error) {
	if waiter != nil {
		s.waiters = append(s.waiters, waiter)
	}
	if s.saving {
		s.queued = true
		return
	}
	s.startSave("manual")
}

func (s *Scheduler) startSave(reason string) {
	doc := s.source()
	fp := doc.Fingerprint()
	s.observedFP = fp
	s.stopDebounce()
	s.followUp = false
	s.saving = true
	s.setStatus(Status{Kind: KindSaving, At: s.lastSaved})

	gen := s.gen
	log.Debug(log.CatSave, "Persisting document", "id", doc.ID, "reason", reason)
	go func() {
		err := s.persist(context.Background(), doc, reason)
		s.results <- saveResult{gen: gen, fp: fp, err: err}
	}()
}

func (s *Scheduler) onResult(res saveResult) {
	s.saving = false

	if res.gen == s.gen {
		if res.err == nil {
			s.savedFP = res.fp
			s.lastSaved = s.clock.Now()
			s.lastErr = nil
		} else {
			s.lastErr = res.err
			log.ErrorErr(log.CatSave, "Save failed, changes remain pending", res.err)
		}
	}

	if s.queued && !s.closing {
		s.queued = false
		s.startSave("queued")
		return
	}
	if !s.queued {
		s.resolveWaiters(res.err)
	}

	if !s.dirty() {
		s.followUp = false
		s.setStatus(s.cleanStatus())
		return
	}
	if s.followUp && !s.closing {
		s.armDebounce()
	}
	s.followUp = false
	s.setStatus(Status{Kind: KindUnsaved, At: s.lastSaved, Err: s.lastErr})
}

func (s *Scheduler) cleanStatus() Status {
	if s.lastSaved.IsZero() {
		return Status{Kind: KindIdle}
	}
	return Status{Kind: KindSaved, At: s.lastSaved}
}

func (s *Scheduler) armDebounce() {
	s.stopDebounce()
	s.debounceT = s.clock.NewTimer(s.debounce)
}

func (s *Scheduler) stopDebounce() {
	if s.debounceT != nil {
		s.debounceT.Stop()
		s.debounceT = nil
	}
}

func (s *Scheduler) resolveWaiters(err error) {
	for _, w := range s.waiters {
		select {
		case w <- err:
		default:
		}
	}
	s.waiters = nil
}

// persist calls the Persister inside a span, converting panics to errors.
func (s *Scheduler) persist(ctx context.Context, doc resume.Document, reason string) (err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanPersist,
		trace.WithAttributes(
			attribute.String(tracing.AttrDocumentID, doc.ID),
			attribute.String(tracing.AttrSaveReason, reason),
		))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("persist panicked: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	return s.persister.Persist(ctx, doc)
}

func (s *Scheduler) setStatus(next Status) {
	prev := s.status
	s.status = next
	s.snapMu.Lock()
	s.snap = next
	s.snapMu.Unlock()
	s.refresh()

	if prev.Kind == next.Kind && prev.At.Equal(next.At) && errText(prev.Err) == errText(next.Err) {
		return
	}
	log.Debug(log.CatSave, "Save status changed", "from", prev.Kind, "to", next.Kind)
	if s.broker != nil {
		s.broker.Publish(pubsub.UpdatedEvent, next)
	}
}

func (s *Scheduler) refresh() {
	s.unsaved.Store(s.saving || s.dirty())
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// shutdown runs once the loop has exited, so it owns all loop state.
func (s *Scheduler) shutdown(ctx context.Context) error {
	s.cancel()
	if s.started.Load() {
		<-s.loopDone
	}
	s.closing = true

	if s.periodicT != nil {
		s.periodicT.Stop()
		s.periodicT = nil
	}
	s.stopDebounce()

	if s.saving {
		select {
		case res := <-s.results:
			s.onResult(res)
		case <-ctx.Done():
			s.resolveWaiters(ErrClosed)
			s.setStatus(Status{Kind: KindUnsaved, At: s.lastSaved, Err: ctx.Err()})
			log.Warn(log.CatSave, "Shutdown timed out waiting for in-flight save")
			return fmt.Errorf("%w: save still in flight: %w", ErrUnsavedChanges, ctx.Err())
		}
	}

	doc := s.source()
	fp := doc.Fingerprint()
	s.observedFP = fp
	if !s.dirty() && !s.queued {
		s.resolveWaiters(nil)
		s.setStatus(s.cleanStatus())
		return nil
	}

	s.queued = false
	s.setStatus(Status{Kind: KindSaving, At: s.lastSaved})
	log.Info(log.CatSave, "Flushing unsaved changes on exit", "id", doc.ID)

	errCh := make(chan error, 1)
	go func() { errCh <- s.persist(ctx, doc, "exit") }()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.resolveWaiters(err)

	if err != nil {
		s.lastErr = err
		s.setStatus(Status{Kind: KindUnsaved, At: s.lastSaved, Err: err})
		log.ErrorErr(log.CatSave, "Exit flush failed", err)
		return fmt.Errorf("%w: %w", ErrUnsavedChanges, err)
	}
	s.savedFP = fp
	s.lastSaved = s.clock.Now()
	s.lastErr = nil
	s.setStatus(s.cleanStatus())
	return nil
}
