package device

import (
	"context"
	"math"

	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/robot"
)

type axisReader interface {
	ReadAxes(ctx context.Context) (map[robot.Axis]float64, error)
	Close() error
}

// Servo turns a two-servo joystick into a planar velocity command.
type Servo struct {
	stick    axisReader
	maxSpeed float64
	deadband float64
}

// NewServo wraps an opened joystick. maxSpeed is the command at full
// deflection in m/s, deadband is in percent of deflection.
func NewServo(stick *robot.Joystick, maxSpeed, deadband float64) *Servo {
	return newServo(stick, maxSpeed, deadband)
}

func newServo(stick axisReader, maxSpeed, deadband float64) *Servo {
	return &Servo{stick: stick, maxSpeed: maxSpeed, deadband: math.Min(math.Max(deadband, 0), 99)}
}

// LinearVelocity reads both axes once.
func (s *Servo) LinearVelocity(ctx context.Context) (kinematics.Vec3, error) {
	axes, err := s.stick.ReadAxes(ctx)
	if err != nil {
		return kinematics.Vec3{}, err
	}
	return kinematics.Vec3{
		X: s.scale(axes[robot.AxisX]),
		Y: s.scale(axes[robot.AxisY]),
	}, nil
}

// scale maps a deflection in [-100, 100] outside the deadband onto [-maxSpeed, maxSpeed].
func (s *Servo) scale(d float64) float64 {
	mag := math.Abs(d)
	if mag <= s.deadband {
		return 0
	}
	mag = math.Min((mag-s.deadband)/(100-s.deadband), 1)
	return math.Copysign(mag*s.maxSpeed, d)
}

func (s *Servo) Close() error {
	return s.stick.Close()
}
