package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gwillem/rrteleop/pkg/config"
	"github.com/gwillem/rrteleop/pkg/device"
	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/record"
	"github.com/gwillem/rrteleop/pkg/teleop"
)

type SimulateCommand struct {
	VX     float64 `long:"vx" description:"Commanded x velocity [m/s]"`
	VY     float64 `long:"vy" description:"Commanded y velocity [m/s]"`
	VZ     float64 `long:"vz" description:"Commanded z velocity, ignored by the planar arm"`
	Time   float64 `long:"time" short:"t" default:"1" description:"Duration in seconds"`
	Preset string  `long:"preset" short:"p" description:"Named motion (overrides velocity and duration)"`
	Hz     int     `long:"hz" description:"Override loop.hz"`
	NoSave bool    `long:"no-save" description:"Do not store the trace"`
	List   bool    `long:"list-presets" description:"List presets and exit"`
}

func (c *SimulateCommand) Execute(args []string) error {
	if c.List {
		for _, name := range config.ListPresets() {
			p, _ := config.GetPreset(name)
			fmt.Printf("%-14s v=(%.2f, %.2f) for %.1fs\n", name, p.Velocity.X, p.Velocity.Y, p.Duration)
		}
		return nil
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	v := kinematics.Vec3{X: c.VX, Y: c.VY, Z: c.VZ}
	duration := c.Time
	if c.Preset != "" {
		p, ok := config.GetPreset(c.Preset)
		if !ok {
			return fmt.Errorf("unknown preset %q (have %s)", c.Preset, strings.Join(config.ListPresets(), ", "))
		}
		v = p.Velocity
		duration = p.Duration
		if p.InitialDeg != nil {
			cfg.Arm.InitialDeg = append([]float64(nil), p.InitialDeg...)
		}
	}
	if c.Hz > 0 {
		cfg.Loop.Hz = c.Hz
	}
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", duration)
	}
	cfg.Device = config.DeviceConfig{Kind: config.DeviceConstant, Velocity: v, IntervalMs: cfg.Device.IntervalMs}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	rec := record.NewRecorder(cfg.Record.Every, 0)
	dev := &device.Constant{Velocity: v, Interval: cfg.PollInterval()}
	session, err := teleop.NewSession(cfg.Session(), dev, teleop.WithLogger(logger), teleop.WithObserver(rec))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(duration*float64(time.Second)))
	defer cancel()

	fmt.Printf("Simulating v=(%.3f, %.3f) for %.2fs at %d Hz\n", v.X, v.Y, duration, session.Hz())
	start := time.Now()
	if err := session.Start(ctx); err != nil {
		return err
	}
	if err := session.Wait(); err != nil {
		return err
	}

	snap, _ := session.Snapshot()
	st := session.Stats()
	fmt.Printf("Ran %d ticks in %v (%d underflows)\n", st.Ticks, time.Since(start).Round(time.Millisecond), st.Underflows)
	fmt.Printf("Final joints: %s\n", formatDegrees(snap.Position))
	fmt.Printf("Final tip:    (%.4f, %.4f) phi %.2f°\n", snap.Pose.X, snap.Pose.Y, snap.Pose.Phi*180/math.Pi)
	fmt.Printf("Manipulability %.4f", snap.Manipulability)
	if snap.Damped {
		fmt.Print(" (damped)")
	}
	fmt.Println()

	if c.NoSave {
		return nil
	}
	return saveRecording(cfg, "simulate", session, rec)
}

func formatDegrees(q []float64) string {
	parts := make([]string, len(q))
	for i, v := range q {
		parts[i] = fmt.Sprintf("%.2f°", v*180/math.Pi)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
