package teleop

import (
	"context"
	"time"
)

// Clock is a monotonic time source measured from an arbitrary origin.
type Clock interface {
	Now() time.Duration
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type monotonicClock struct {
	origin time.Time
}

// NewClock returns a Clock backed by the runtime monotonic clock.
func NewClock() Clock {
	return &monotonicClock{origin: time.Now()}
}

func (c *monotonicClock) Now() time.Duration {
	return time.Since(c.origin)
}

func (c *monotonicClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LoopTimer paces a fixed-rate loop against a Clock.
// It is owned by the loop goroutine.
type LoopTimer struct {
	clock      Clock
	period     time.Duration
	start      time.Duration
	deadline   time.Duration
	underflows uint64
}

// NewLoopTimer returns a timer firing hz times per second.
func NewLoopTimer(clock Clock, hz int) *LoopTimer {
	if hz <= 0 {
		hz = DefaultHz
	}
	return &LoopTimer{clock: clock, period: time.Second / time.Duration(hz)}
}

// Period returns the nominal tick interval.
func (t *LoopTimer) Period() time.Duration {
	return t.period
}

// Start resets the schedule to begin now.
func (t *LoopTimer) Start() {
	t.start = t.clock.Now()
	t.deadline = t.start
	t.underflows = 0
}

// WaitForNextLoop sleeps until the next deadline. It returns false without
// sleeping when the deadline has already passed; the schedule then restarts
// from now rather than trying to catch up. A sleep cut short by ctx still
// reports true, so the caller finishes that iteration before seeing ctx done.
func (t *LoopTimer) WaitForNextLoop(ctx context.Context) bool {
	t.deadline += t.period
	now := t.clock.Now()
	if now > t.deadline {
		t.underflows++
		t.deadline = now
		return false
	}
	// cancellation is observed by the caller's loop condition
	_ = t.clock.Sleep(ctx, t.deadline-now)
	return true
}

// Elapsed returns the time since Start.
func (t *LoopTimer) Elapsed() time.Duration {
	return t.clock.Now() - t.start
}

// Underflows counts missed deadlines since Start.
func (t *LoopTimer) Underflows() uint64 {
	return t.underflows
}
