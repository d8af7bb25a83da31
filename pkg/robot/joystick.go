package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// BaudRate is the STS bus rate used by the servos.
const BaudRate = 1_000_000

// Joystick reads two passive servos as deflection axes.
type Joystick struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

// OpenBus opens a feetech STS bus on port.
func OpenBus(port string, baud int) (*feetech.Bus, error) {
	if baud <= 0 {
		baud = BaudRate
	}
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}
	return bus, nil
}

// NewJoystick opens the bus and releases torque so the stick moves freely.
func NewJoystick(ctx context.Context, port string, baud int, cal Calibration) (*Joystick, error) {
	if !cal.Complete() {
		return nil, fmt.Errorf("joystick on %s is not calibrated", port)
	}
	bus, err := OpenBus(port, baud)
	if err != nil {
		return nil, err
	}

	j := &Joystick{
		bus:         bus,
		group:       feetech.NewServoGroupByIDs(bus, cal.IDs()...),
		calibration: cal,
	}
	if err := j.group.DisableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("release torque: %w", err)
	}
	return j, nil
}

// Close closes the bus connection.
func (j *Joystick) Close() error {
	return j.bus.Close()
}

// ReadAxes returns each axis deflection in [-100, 100].
func (j *Joystick) ReadAxes(ctx context.Context) (map[Axis]float64, error) {
	raw, err := j.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	axes := make(map[Axis]float64, len(raw))
	for id, pos := range raw {
		axis, cal, ok := j.calibration.ByID(id)
		if !ok {
			continue
		}
		axes[axis] = cal.Normalize(pos)
	}
	return axes, nil
}
