package device

import (
	"context"
	"sync"

	"github.com/gwillem/rrteleop/pkg/kinematics"
)

// feed hands the newest pushed value to a blocking reader. Values pushed
// between reads are coalesced, the reader only sees the latest.
type feed struct {
	mu    sync.Mutex
	v     kinematics.Vec3
	err   error
	fresh chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newFeed() *feed {
	return &feed{fresh: make(chan struct{}, 1), done: make(chan struct{})}
}

func (f *feed) push(v kinematics.Vec3) {
	f.mu.Lock()
	f.v = v
	f.mu.Unlock()
	select {
	case f.fresh <- struct{}{}:
	default:
	}
}

func (f *feed) wait(ctx context.Context) (kinematics.Vec3, error) {
	select {
	case <-ctx.Done():
		return kinematics.Vec3{}, ctx.Err()
	case <-f.fresh:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.v, nil
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		// a value pushed just before close is still delivered
		select {
		case <-f.fresh:
			return f.v, nil
		default:
		}
		return kinematics.Vec3{}, f.err
	}
}

// close makes every pending and future wait return err.
func (f *feed) close(err error) {
	f.once.Do(func() {
		if err == nil {
			err = ErrClosed
		}
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		close(f.done)
	})
}
