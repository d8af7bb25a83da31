// Package device opens the velocity input devices behind teleop.Device.
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gwillem/rrteleop/pkg/config"
	"github.com/gwillem/rrteleop/pkg/log"
	"github.com/gwillem/rrteleop/pkg/robot"
	"github.com/gwillem/rrteleop/pkg/teleop"
)

var (
	// ErrDeviceAbsent means no device is configured or it could not be reached.
	// Callers run the loop with a zero command.
	ErrDeviceAbsent = errors.New("device: absent")

	// ErrClosed is returned by reads on a closed or ended device. It wraps
	// teleop.ErrDeviceEnded so the sampler stops polling.
	ErrClosed = fmt.Errorf("device: closed: %w", teleop.ErrDeviceEnded)
)

var (
	_ teleop.Device = (*Serial)(nil)
	_ teleop.Device = (*Servo)(nil)
	_ teleop.Device = (*Constant)(nil)
	_ teleop.Device = (*Twist)(nil)
)

// Open returns the device described by cfg. Failing to reach the hardware is
// reported as ErrDeviceAbsent, wrapping the cause.
func Open(ctx context.Context, cfg config.DeviceConfig, logger log.Logger) (teleop.Device, error) {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithField("device", kindOf(cfg))

	switch kindOf(cfg) {
	case config.DeviceNone:
		return nil, ErrDeviceAbsent

	case config.DeviceSerial:
		s, err := OpenSerial(cfg.Port, cfg.BaudRate, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeviceAbsent, err)
		}
		logger.Infof("Reading velocity commands from %s", cfg.Port)
		return s, nil

	case config.DeviceServo:
		stick, err := robot.NewJoystick(ctx, cfg.Port, cfg.BaudRate, cfg.Calibration)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeviceAbsent, err)
		}
		logger.Infof("Servo joystick on %s, torque released", cfg.Port)
		return NewServo(stick, cfg.MaxSpeed, cfg.Deadband), nil

	case config.DeviceWebsocket:
		return NewTwist(), nil

	case config.DeviceConstant:
		return &Constant{
			Velocity: cfg.Velocity,
			Interval: time.Duration(cfg.IntervalMs) * time.Millisecond,
		}, nil
	}
	return nil, fmt.Errorf("unknown device kind %q", cfg.Kind)
}

func kindOf(cfg config.DeviceConfig) string {
	if cfg.Kind == "" {
		return config.DeviceNone
	}
	return cfg.Kind
}

// Describe is a one-line summary for status displays.
func Describe(cfg config.DeviceConfig) string {
	switch kindOf(cfg) {
	case config.DeviceSerial, config.DeviceServo:
		return fmt.Sprintf("%s %s", cfg.Kind, cfg.Port)
	case config.DeviceConstant:
		return fmt.Sprintf("constant (%.2f, %.2f, %.2f)", cfg.Velocity.X, cfg.Velocity.Y, cfg.Velocity.Z)
	}
	return kindOf(cfg)
}
