package device

import (
	"context"

	"github.com/gwillem/rrteleop/pkg/kinematics"
)

// Vector3 is the JSON shape of a twist component.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// TwistMsg is a velocity command received from a remote client.
// Only the linear part drives the arm.
type TwistMsg struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// Twist is a device fed by Push, typically from the websocket control endpoint.
type Twist struct {
	feed *feed
}

// NewTwist returns an open push-fed device.
func NewTwist() *Twist {
	return &Twist{feed: newFeed()}
}

// Push delivers a command to the next LinearVelocity call.
func (t *Twist) Push(m TwistMsg) {
	t.feed.push(kinematics.Vec3{X: m.Linear.X, Y: m.Linear.Y, Z: m.Linear.Z})
}

// LinearVelocity blocks until a command is pushed.
func (t *Twist) LinearVelocity(ctx context.Context) (kinematics.Vec3, error) {
	return t.feed.wait(ctx)
}

// Close unblocks pending reads with ErrClosed.
func (t *Twist) Close() error {
	t.feed.close(ErrClosed)
	return nil
}
