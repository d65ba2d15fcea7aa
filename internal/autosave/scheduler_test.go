package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vitae/internal/pubsub"
	"github.com/zjrosen/vitae/internal/resume"
)

// mockClock implements Clock for deterministic testing.
type mockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*mockTimer
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTimer{
		deadline: c.now.Add(d),
		ch:       make(chan time.Time, 1),
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and fires any expired timers.
func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	timers := append([]*mockTimer(nil), c.timers...)
	c.mu.Unlock()

	for _, t := range timers {
		t.mu.Lock()
		if !t.stopped && !t.fired && !t.deadline.After(now) {
			t.fired = true
			select {
			case t.ch <- now:
			default:
			}
		}
		t.mu.Unlock()
	}
}

// pending counts timers that are armed and not yet fired.
func (c *mockClock) pending() int {
	c.mu.Lock()
	timers := append([]*mockTimer(nil), c.timers...)
	c.mu.Unlock()

	n := 0
	for _, t := range timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

type mockTimer struct {
	mu       sync.Mutex
	deadline time.Time
	ch       chan time.Time
	stopped  bool
	fired    bool
}

func (t *mockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasRunning := !t.stopped && !t.fired
	t.stopped = true
	return wasRunning
}

func (t *mockTimer) C() <-chan time.Time {
	return t.ch
}

// docBox is the mutable document the scheduler reads from.
type docBox struct {
	mu  sync.Mutex
	doc resume.Document
}

func (b *docBox) get() resume.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc
}

func (b *docBox) setSummary(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.doc.Clone()
	next.Summary = s
	b.doc = next
}

// mockPersister records persisted documents and can fail or block.
type mockPersister struct {
	mu       sync.Mutex
	docs     []resume.Document
	err      error
	panicMsg string
	gate     chan struct{}

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (p *mockPersister) Persist(ctx context.Context, doc resume.Document) error {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		m := p.maxInFlight.Load()
		if n <= m || p.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	p.mu.Lock()
	p.docs = append(p.docs, doc)
	gate := p.gate
	err := p.err
	panicMsg := p.panicMsg
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if panicMsg != "" {
		panic(panicMsg)
	}
	return err
}

func (p *mockPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.docs)
}

func (p *mockPersister) last() resume.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.docs[len(p.docs)-1]
}

func (p *mockPersister) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *mockPersister) setGate(gate chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gate = gate
}

type fixture struct {
	clock     *mockClock
	box       *docBox
	persister *mockPersister
	broker    *pubsub.Broker[Status]
	sched     *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:     newMockClock(),
		box:       &docBox{doc: resume.Document{ID: "doc-1", Title: "CV"}},
		persister: &mockPersister{},
		broker:    pubsub.NewBroker[Status](pubsub.WithRetainLast()),
	}
	f.sched = New(Config{
		Source:    f.box.get,
		Persister: f.persister,
		Clock:     f.clock,
		Broker:    f.broker,
	})
	f.sched.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = f.sched.Close(ctx)
		f.broker.Close()
	})
	return f
}

// edit changes the document and notifies the scheduler.
func (f *fixture) edit(summary string) {
	f.box.setSummary(summary)
	f.sched.Notify()
}

func (f *fixture) waitPersists(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.persister.count() >= n },
		time.Second, 5*time.Millisecond, "expected %d persist calls", n)
}

func (f *fixture) waitKind(t *testing.T, kind Kind) {
	t.Helper()
	require.Eventually(t, func() bool { return f.sched.Status().Kind == kind },
		time.Second, 5*time.Millisecond, "expected status %s", kind)
}

func (f *fixture) requireNoMorePersists(t *testing.T, n int) {
	t.Helper()
	require.Never(t, func() bool { return f.persister.count() > n },
		50*time.Millisecond, 5*time.Millisecond)
}

func TestNew_AppliesDefaults(t *testing.T) {
	s := New(Config{
		Source:    func() resume.Document { return resume.Document{} },
		Persister: PersistFunc(func(context.Context, resume.Document) error { return nil }),
	})
	require.Equal(t, DefaultDebounce, s.debounce)
	require.Equal(t, DefaultInterval, s.interval)
	require.IsType(t, RealClock{}, s.clock)
	require.NotNil(t, s.tracer)
	require.Equal(t, KindIdle, s.Status().Kind)
	require.False(t, s.HasUnsavedChanges())
	require.NoError(t, s.Close(context.Background()))
}

func TestBurstOfChanges_PersistsOnceAfterDebounce(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 10; i++ {
		f.edit(fmt.Sprintf("draft %d", i))
		f.clock.Advance(500 * time.Millisecond)
	}
	require.Equal(t, KindUnsaved, f.sched.Status().Kind)
	require.True(t, f.sched.HasUnsavedChanges())

	// 500ms have passed since the last change.
	f.clock.Advance(1499 * time.Millisecond)
	f.requireNoMorePersists(t, 0)

	f.clock.Advance(time.Millisecond)
	f.waitPersists(t, 1)
	f.waitKind(t, KindSaved)
	f.requireNoMorePersists(t, 1)

	require.Equal(t, "draft 9", f.persister.last().Summary)
	require.Equal(t, f.clock.Now(), f.sched.Status().At)
	require.False(t, f.sched.HasUnsavedChanges())
}

func TestIdenticalNotify_DoesNotResetDebounce(t *testing.T) {
	f := newFixture(t)

	f.edit("a")
	f.clock.Advance(1500 * time.Millisecond)
	f.sched.Notify() // value unchanged
	f.clock.Advance(500 * time.Millisecond)

	f.waitPersists(t, 1)
}

func TestPersist_ReadsValueAtFireTime(t *testing.T) {
	f := newFixture(t)

	f.edit("armed")
	f.box.setSummary("latest") // no Notify
	f.clock.Advance(DefaultDebounce)

	f.waitPersists(t, 1)
	require.Equal(t, "latest", f.persister.last().Summary)
}

func TestRevertToSaved_ReturnsToCleanStatus(t *testing.T) {
	f := newFixture(t)

	f.edit("changed")
	require.Equal(t, KindUnsaved, f.sched.Status().Kind)

	f.edit("")
	require.Equal(t, KindIdle, f.sched.Status().Kind)
	require.False(t, f.sched.HasUnsavedChanges())

	f.clock.Advance(DefaultDebounce)
	f.requireNoMorePersists(t, 0)
}

func TestFailedPersist_StaysUnsavedUntilPeriodicTick(t *testing.T) {
	f := newFixture(t)
	f.persister.setErr(errors.New("disk full"))

	f.edit("important")
	f.clock.Advance(DefaultDebounce)
	f.waitPersists(t, 1)

	require.Eventually(t, func() bool {
		st := f.sched.Status()
		return st.Kind == KindUnsaved && st.Err != nil
	}, time.Second, 5*time.Millisecond)
	require.Contains(t, f.sched.Status().String(), "disk full")
	require.True(t, f.sched.HasUnsavedChanges())

	// No retry loop: another debounce window passes without a call.
	f.clock.Advance(DefaultDebounce)
	f.requireNoMorePersists(t, 1)

	f.persister.setErr(nil)
	f.clock.Advance(DefaultInterval - 2*DefaultDebounce)
	f.waitPersists(t, 2)
	f.waitKind(t, KindSaved)

	require.Equal(t, "important", f.persister.last().Summary)
	require.NoError(t, f.sched.Status().Err)
}

func TestPeriodicTick_SkipsWhenClean(t *testing.T) {
	f := newFixture(t)
	f.sched.Notify() // sync with the loop so the periodic timer is armed

	f.clock.Advance(DefaultInterval)
	f.requireNoMorePersists(t, 0)
	require.Equal(t, KindIdle, f.sched.Status().Kind)
}

func TestChangeDuringSave_NeverOverlapsAndRearmsDebounce(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.persister.setGate(gate)

	f.edit("first")
	f.clock.Advance(DefaultDebounce)
	f.waitPersists(t, 1)
	f.waitKind(t, KindSaving)

	f.edit("second")
	require.Equal(t, KindSaving, f.sched.Status().Kind)
	require.True(t, f.sched.HasUnsavedChanges())

	// Nothing is armed while saving, so time passing cannot start a call.
	f.clock.Advance(DefaultDebounce)
	f.requireNoMorePersists(t, 1)

	f.persister.setGate(nil)
	close(gate)
	f.waitKind(t, KindUnsaved)

	f.clock.Advance(DefaultDebounce)
	f.waitPersists(t, 2)
	f.waitKind(t, KindSaved)

	require.Equal(t, "second", f.persister.last().Summary)
	require.EqualValues(t, 1, f.persister.maxInFlight.Load())
}

func TestSaveNow_QueuesBehindInFlightSave(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.persister.setGate(gate)

	f.edit("one")
	f.sched.SaveNow()
	f.waitPersists(t, 1)

	f.edit("two")
	f.sched.SaveNow()
	f.sched.SaveNow()

	f.persister.setGate(nil)
	close(gate)

	f.waitPersists(t, 2)
	f.waitKind(t, KindSaved)
	f.requireNoMorePersists(t, 2)
	require.Equal(t, "two", f.persister.last().Summary)
	require.EqualValues(t, 1, f.persister.maxInFlight.Load())
}

func TestFlush_WaitsForOutcome(t *testing.T) {
	f := newFixture(t)

	f.edit("flushed")
	require.NoError(t, f.sched.Flush(context.Background()))
	require.Equal(t, 1, f.persister.count())
	f.waitKind(t, KindSaved)

	f.persister.setErr(errors.New("offline"))
	f.edit("again")
	require.EqualError(t, f.sched.Flush(context.Background()), "offline")
}

func TestPersistPanic_ReportedAsFailure(t *testing.T) {
	f := newFixture(t)
	f.persister.mu.Lock()
	f.persister.panicMsg = "boom"
	f.persister.mu.Unlock()

	f.edit("x")
	err := f.sched.Flush(context.Background())
	require.ErrorContains(t, err, "boom")
	f.waitKind(t, KindUnsaved)
}

func TestRebase_ClearsDirtiness(t *testing.T) {
	f := newFixture(t)

	f.edit("unsaved")
	require.True(t, f.sched.HasUnsavedChanges())

	f.box.mu.Lock()
	f.box.doc = resume.Document{ID: "doc-2", Title: "Other"}
	f.box.mu.Unlock()
	f.sched.Rebase()

	require.False(t, f.sched.HasUnsavedChanges())
	require.Equal(t, KindIdle, f.sched.Status().Kind)

	f.clock.Advance(DefaultDebounce)
	f.requireNoMorePersists(t, 0)
}

func TestBroker_PublishesTransitions(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := f.broker.Subscribe(ctx)

	f.edit("watched")
	f.clock.Advance(DefaultDebounce)

	var kinds []Kind
	require.Eventually(t, func() bool {
		for {
			select {
			case ev := <-events:
				kinds = append(kinds, ev.Payload.Kind)
			default:
				return len(kinds) >= 3
			}
		}
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []Kind{KindUnsaved, KindSaving, KindSaved}, kinds[:3])
}

func TestClose_FlushesPendingChanges(t *testing.T) {
	f := newFixture(t)

	f.edit("before exit")
	require.NoError(t, f.sched.Close(context.Background()))

	require.Equal(t, 1, f.persister.count())
	require.Equal(t, "before exit", f.persister.last().Summary)
	require.Equal(t, KindSaved, f.sched.Status().Kind)
	require.False(t, f.sched.HasUnsavedChanges())
}

func TestClose_CleanDocumentSkipsPersist(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sched.Close(context.Background()))
	require.Zero(t, f.persister.count())
}

func TestClose_NoTimersFireAfterTeardown(t *testing.T) {
	f := newFixture(t)
	f.persister.setErr(errors.New("nope"))

	f.edit("pending")
	err := f.sched.Close(context.Background())
	require.ErrorIs(t, err, ErrUnsavedChanges)
	require.Equal(t, 1, f.persister.count())

	require.Zero(t, f.clock.pending(), "all timers should be released")
	f.clock.Advance(time.Hour)
	f.requireNoMorePersists(t, 1)

	// Operations after Close are no-ops and never block.
	f.edit("late")
	f.sched.SaveNow()
	require.ErrorIs(t, f.sched.Flush(context.Background()), ErrClosed)
	require.ErrorIs(t, f.sched.Close(context.Background()), ErrUnsavedChanges)
	f.requireNoMorePersists(t, 1)
}

func TestClose_TimesOutOnStuckSave(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	defer close(gate)
	f.persister.setGate(gate)

	f.edit("stuck")
	f.sched.SaveNow()
	f.waitPersists(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := f.sched.Close(ctx)

	require.ErrorIs(t, err, ErrUnsavedChanges)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, KindUnsaved, f.sched.Status().Kind)
}

func TestClose_WaitsForInFlightThenFlushesNewerValue(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.persister.setGate(gate)

	f.edit("v1")
	f.sched.SaveNow()
	f.waitPersists(t, 1)
	f.edit("v2")

	go func() {
		time.Sleep(10 * time.Millisecond)
		f.persister.setGate(nil)
		close(gate)
	}()
	require.NoError(t, f.sched.Close(context.Background()))

	require.Equal(t, 2, f.persister.count())
	require.Equal(t, "v2", f.persister.last().Summary)
	require.EqualValues(t, 1, f.persister.maxInFlight.Load())
}

func TestClose_BeforeStart(t *testing.T) {
	box := &docBox{}
	p := &mockPersister{}
	s := New(Config{Source: box.get, Persister: p, Clock: newMockClock()})

	box.setSummary("never started")
	require.NoError(t, s.Close(context.Background()))
	require.Equal(t, 1, p.count())

	s.Start()
	s.Notify()
}

func TestStatus_String(t *testing.T) {
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	require.Equal(t, "No changes", Status{}.String())
	require.Equal(t, "Unsaved changes", Status{Kind: KindUnsaved}.String())
	require.Equal(t, "Saving…", Status{Kind: KindSaving}.String())
	require.Equal(t, "Saved 15:04:05", Status{Kind: KindSaved, At: at}.String())
	require.True(t, Status{Kind: KindUnsaved}.Dirty())
	require.False(t, Status{Kind: KindSaved}.Dirty())
	require.Equal(t, "unsaved-changes", KindUnsaved.String())
}
