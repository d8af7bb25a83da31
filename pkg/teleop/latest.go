package teleop

import "sync/atomic"

// Latest is a single-slot, last-write-wins cell. One goroutine stores, any
// number load; a load never blocks and never observes a partial value.
// Values holding slices must not be mutated after Store.
type Latest[T any] struct {
	p       atomic.Pointer[T]
	version atomic.Uint64
}

// Store replaces the current value.
func (l *Latest[T]) Store(v T) {
	l.p.Store(&v)
	l.version.Add(1)
}

// Load returns the most recent value and whether any value was stored.
func (l *Latest[T]) Load() (T, bool) {
	p := l.p.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Version counts stores so far.
func (l *Latest[T]) Version() uint64 {
	return l.version.Load()
}
