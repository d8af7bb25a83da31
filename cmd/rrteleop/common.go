package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gwillem/rrteleop/pkg/config"
	"github.com/gwillem/rrteleop/pkg/device"
	rrlog "github.com/gwillem/rrteleop/pkg/log"
	"github.com/gwillem/rrteleop/pkg/teleop"
)

// loadConfig reads --config, falling back to defaults when the file is missing.
func loadConfig() (*config.Config, bool, error) {
	cfg, err := config.LoadFrom(opts.Config)
	if errors.Is(err, os.ErrNotExist) {
		return config.DefaultConfig(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	return cfg, true, nil
}

func newLogger(cfg *config.Config, console io.Writer, extra ...rrlog.Option) (rrlog.Logger, error) {
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	return rrlog.NewLogrusLogger(level, cfg.Logging.Dir, append([]rrlog.Option{rrlog.WithConsole(console)}, extra...)...)
}

// openDevice returns nil without error when the device is absent.
func openDevice(ctx context.Context, cfg config.DeviceConfig, logger rrlog.Logger) (teleop.Device, error) {
	dev, err := device.Open(ctx, cfg, logger)
	if errors.Is(err, device.ErrDeviceAbsent) {
		if cfg.Kind != "" && cfg.Kind != config.DeviceNone {
			logger.Warnf("Input device unavailable (%v)", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	return dev, nil
}
