package teleop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock never blocks: Sleep advances time by the requested amount.
type fakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.Advance(d)
	return ctx.Err()
}

func (c *fakeClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

func TestLoopTimer_OnSchedule(t *testing.T) {
	clk := &fakeClock{}
	timer := NewLoopTimer(clk, 500)
	timer.Start()

	for i := 1; i <= 5; i++ {
		assert.True(t, timer.WaitForNextLoop(context.Background()))
		assert.Equal(t, time.Duration(i)*2*time.Millisecond, timer.Elapsed())
	}
	assert.Zero(t, timer.Underflows())
}

func TestLoopTimer_UnderflowResyncs(t *testing.T) {
	clk := &fakeClock{}
	timer := NewLoopTimer(clk, 500)
	timer.Start()

	assert.True(t, timer.WaitForNextLoop(context.Background())) // t=2ms
	clk.Advance(7 * time.Millisecond)                           // work overran, t=9ms

	assert.False(t, timer.WaitForNextLoop(context.Background()))
	assert.Equal(t, uint64(1), timer.Underflows())
	assert.Equal(t, 9*time.Millisecond, timer.Elapsed())

	// the next deadline is one period after the resync point, no catch-up burst
	assert.True(t, timer.WaitForNextLoop(context.Background()))
	assert.Equal(t, 11*time.Millisecond, timer.Elapsed())
}

func TestLoopTimer_DefaultRate(t *testing.T) {
	timer := NewLoopTimer(&fakeClock{}, 0)
	assert.Equal(t, 2*time.Millisecond, timer.Period())
}

func TestMonotonicClock_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := NewClock().Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLoopTimer_CancelledSleepCountsOnTime(t *testing.T) {
	clock := &fakeClock{}
	timer := NewLoopTimer(clock, 500)
	timer.Start()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, timer.WaitForNextLoop(ctx))
	assert.Zero(t, timer.Underflows())
	assert.Equal(t, 2*time.Millisecond, timer.Elapsed())
}
