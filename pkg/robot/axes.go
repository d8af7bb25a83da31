// Package robot drives the feetech servo hardware used as a teleop input:
// a pair of passive servos read as a spring-centred two-axis joystick.
package robot

// Axis identifies one joystick axis.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// AllAxes returns the axes in servo ID order.
func AllAxes() []Axis {
	return []Axis{AxisX, AxisY}
}
