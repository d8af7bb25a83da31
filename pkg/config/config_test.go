package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/robot"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500, cfg.Loop.Hz)
	assert.Equal(t, DeviceNone, cfg.Device.Kind)
	q := cfg.InitialRadians()
	assert.InDelta(t, 0, q[0], 1e-12)
	assert.InDelta(t, math.Pi/2, q[1], 1e-12)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rrteleop.yaml")

	cfg := DefaultConfig()
	cfg.Arm.Links = []kinematics.Link{{Length: 0.3}, {Length: 0.25}}
	cfg.Device.Kind = DeviceServo
	cfg.Device.Port = "/dev/ttyACM0"
	cfg.Device.MaxSpeed = 0.2
	cfg.Device.Deadband = 8
	cfg.Device.Calibration = robot.Calibration{
		robot.AxisX: {ID: 1, RangeMin: 900, RangeMax: 3100, Rest: 2010},
		robot.AxisY: {ID: 2, RangeMin: 1000, RangeMax: 3000, DriveMode: 1},
	}
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rrteleop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("loop:\n  hz: 250\n"), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Loop.Hz)
	assert.Equal(t, 1.0, cfg.Loop.VelocityScale)
	assert.Len(t, cfg.Arm.Links, 2)
}

func TestLoadFrom_Missing(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errs   int
	}{
		{"no links", func(c *Config) { c.Arm.Links = nil; c.Arm.InitialDeg = nil }, 1},
		{"zero link", func(c *Config) { c.Arm.Links[0].Length = 0 }, 1},
		{"initial mismatch", func(c *Config) { c.Arm.InitialDeg = []float64{0} }, 1},
		{"hz", func(c *Config) { c.Loop.Hz = 0 }, 1},
		{"damping", func(c *Config) { c.Mapper.Damping = 0 }, 1},
		{"serial without port", func(c *Config) { c.Device.Kind = DeviceSerial }, 1},
		{"servo uncalibrated", func(c *Config) { c.Device.Kind = DeviceServo }, 2},
		{"unknown kind", func(c *Config) { c.Device.Kind = "joystick" }, 1},
		{"several", func(c *Config) { c.Loop.Hz = -1; c.Loop.VelocityScale = 0; c.Device.Deadband = 100 }, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			joined, ok := err.(interface{ Unwrap() []error })
			require.True(t, ok)
			assert.Len(t, joined.Unwrap(), tt.errs)
		})
	}
}

func TestSessionMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.IntervalMs = 4
	s := cfg.Session()
	assert.Equal(t, cfg.Loop.Hz, s.Loop.Hz)
	assert.Equal(t, cfg.Mapper.Damping, s.Mapper.Damping)
	assert.Equal(t, int64(4e6), s.PollInterval.Nanoseconds())
	assert.Len(t, s.InitialPositions, 2)
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	require.NotEmpty(t, names)
	for _, n := range names {
		p, ok := GetPreset(n)
		require.True(t, ok, n)
		assert.Positive(t, p.Duration, n)
	}
	_, ok := GetPreset("missing")
	assert.False(t, ok)
}
