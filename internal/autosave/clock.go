package autosave

import "time"

// Clock provides time-related operations for testability.
// Use RealClock for production and a fake clock in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// NewTimer creates a Timer that delivers the current time on its channel
	// after at least duration d.
	NewTimer(d time.Duration) Timer
}

// Timer is a stoppable one-shot timer.
type Timer interface {
	// Stop prevents the Timer from firing. Returns false if it already fired
	// or was stopped.
	Stop() bool
	// C returns the channel on which the time is delivered.
	C() <-chan time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// NewTimer creates a new time.Timer.
func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{timer: time.NewTimer(d)}
}

type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) Stop() bool          { return t.timer.Stop() }
func (t *realTimer) C() <-chan time.Time { return t.timer.C }

// timerC returns the timer's channel, or nil (blocks forever in a select)
// when no timer is armed.
func timerC(t Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C()
}
