package device

import (
	"context"
	"time"

	"github.com/gwillem/rrteleop/pkg/kinematics"
)

// Constant reports the same command every Interval.
type Constant struct {
	Velocity kinematics.Vec3
	Interval time.Duration
}

// LinearVelocity waits Interval, then returns Velocity.
func (c *Constant) LinearVelocity(ctx context.Context) (kinematics.Vec3, error) {
	if c.Interval > 0 {
		t := time.NewTimer(c.Interval)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return kinematics.Vec3{}, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return kinematics.Vec3{}, err
	}
	return c.Velocity, nil
}

func (c *Constant) Close() error { return nil }
