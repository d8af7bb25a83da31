// Package record captures teleop snapshots and stores them as run traces.
package record

import (
	"sync"

	"github.com/gwillem/rrteleop/pkg/teleop"
)

// DefaultLimit bounds an unconfigured recorder, about 20 minutes at 500 Hz
// keeping every 5th tick.
const DefaultLimit = 120_000

// Recorder keeps every Nth snapshot, dropping the oldest past its limit.
// Once full it overwrites in place, so OnTick is constant time.
type Recorder struct {
	mu      sync.Mutex
	every   uint64
	limit   int
	samples []teleop.Snapshot // ring once len == limit
	head    int               // oldest sample when full
	dropped int
}

var _ teleop.Observer = (*Recorder)(nil)

// NewRecorder keeps one snapshot per every ticks and at most limit snapshots.
func NewRecorder(every uint64, limit int) *Recorder {
	if every == 0 {
		every = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Recorder{every: every, limit: limit}
}

// OnTick implements teleop.Observer.
func (r *Recorder) OnTick(s teleop.Snapshot) {
	if s.Tick%r.every != 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.samples) < r.limit {
		r.samples = append(r.samples, s)
		return
	}
	r.samples[r.head] = s
	r.head = (r.head + 1) % r.limit
	r.dropped++
}

// Samples returns a copy of the kept snapshots in tick order.
func (r *Recorder) Samples() []teleop.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]teleop.Snapshot, 0, len(r.samples))
	out = append(out, r.samples[r.head:]...)
	return append(out, r.samples[:r.head]...)
}

// Dropped counts snapshots evicted by the limit.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
