// Package config loads and saves the rrteleop YAML configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/robot"
	"github.com/gwillem/rrteleop/pkg/teleop"
)

// DefaultConfigFile is read from the working directory.
const DefaultConfigFile = "rrteleop.yaml"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Device kinds.
const (
	DeviceNone      = "none"
	DeviceSerial    = "serial"
	DeviceServo     = "servo"
	DeviceWebsocket = "websocket"
	DeviceConstant  = "constant"
)

// Config is the full configuration file.
type Config struct {
	Arm     ArmConfig     `yaml:"arm"`
	Loop    LoopConfig    `yaml:"loop"`
	Mapper  MapperConfig  `yaml:"mapper"`
	Device  DeviceConfig  `yaml:"device"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Record  RecordConfig  `yaml:"record"`
}

// ArmConfig is the chain geometry and its starting configuration.
type ArmConfig struct {
	Links []kinematics.Link `yaml:"links"`
	// InitialDeg is the joint configuration at startup, in degrees.
	InitialDeg []float64 `yaml:"initial_deg"`
}

type LoopConfig struct {
	Hz                int     `yaml:"hz"`
	VelocityScale     float64 `yaml:"velocity_scale"`
	UnderflowLogEvery uint64  `yaml:"underflow_log_every"`
}

type MapperConfig struct {
	Damping              float64 `yaml:"damping"`
	SingularityThreshold float64 `yaml:"singularity_threshold"`
	MaxJointSpeed        float64 `yaml:"max_joint_speed"`
}

// DeviceConfig selects and tunes the input device.
type DeviceConfig struct {
	Kind     string `yaml:"kind"`
	Port     string `yaml:"port,omitempty"`
	BaudRate int    `yaml:"baud_rate,omitempty"`
	// MaxSpeed is the Cartesian speed in m/s at full stick deflection.
	MaxSpeed float64 `yaml:"max_speed,omitempty"`
	// Deadband is the deflection in percent treated as zero.
	Deadband    float64           `yaml:"deadband,omitempty"`
	Calibration robot.Calibration `yaml:"calibration,omitempty"`
	// IntervalMs paces the constant device and the sampler.
	IntervalMs int             `yaml:"interval_ms,omitempty"`
	Velocity   kinematics.Vec3 `yaml:"velocity,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	FPS  int    `yaml:"fps"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir,omitempty"`
}

type RecordConfig struct {
	Dir string `yaml:"dir"`
	// Every keeps one sample per this many ticks.
	Every uint64 `yaml:"every"`
}

// DefaultConfig returns the two-link unit arm at (0, 90) degrees with no device.
func DefaultConfig() *Config {
	return &Config{
		Arm: ArmConfig{
			Links:      []kinematics.Link{{Length: 1}, {Length: 1}},
			InitialDeg: []float64{0, 90},
		},
		Loop: LoopConfig{
			Hz:                teleop.DefaultHz,
			VelocityScale:     1,
			UnderflowLogEvery: teleop.DefaultHz,
		},
		Mapper: MapperConfig{
			Damping:              kinematics.DefaultDamping,
			SingularityThreshold: kinematics.DefaultSingularityThreshold,
			MaxJointSpeed:        kinematics.DefaultMaxJointSpeed,
		},
		Device: DeviceConfig{
			Kind:       DeviceNone,
			BaudRate:   115200,
			MaxSpeed:   0.5,
			Deadband:   5,
			IntervalMs: 2,
		},
		Server:  ServerConfig{Addr: ":8080", FPS: 30},
		Logging: LoggingConfig{Level: "info"},
		Record:  RecordConfig{Dir: "runs", Every: 5},
	}
}

// Load reads DefaultConfigFile.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom reads path over the defaults and validates the result.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes DefaultConfigFile.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo writes c as YAML to path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Exists reports whether DefaultConfigFile exists.
func Exists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}

// Validate reports every problem at once, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if len(c.Arm.Links) == 0 {
		bad("arm.links is empty")
	}
	for i, l := range c.Arm.Links {
		if !(l.Length > 0) || math.IsInf(l.Length, 0) {
			bad("arm.links[%d].length %v must be positive", i, l.Length)
		}
	}
	if len(c.Arm.InitialDeg) != len(c.Arm.Links) {
		bad("arm.initial_deg has %d entries for %d links", len(c.Arm.InitialDeg), len(c.Arm.Links))
	}
	if c.Loop.Hz <= 0 {
		bad("loop.hz %d must be positive", c.Loop.Hz)
	}
	if !(c.Loop.VelocityScale > 0) {
		bad("loop.velocity_scale %v must be positive", c.Loop.VelocityScale)
	}
	if !(c.Mapper.Damping > 0) {
		bad("mapper.damping %v must be positive", c.Mapper.Damping)
	}
	if c.Mapper.SingularityThreshold < 0 {
		bad("mapper.singularity_threshold %v must not be negative", c.Mapper.SingularityThreshold)
	}
	if c.Mapper.MaxJointSpeed < 0 {
		bad("mapper.max_joint_speed %v must not be negative", c.Mapper.MaxJointSpeed)
	}

	switch c.Device.Kind {
	case "", DeviceNone, DeviceWebsocket, DeviceConstant:
	case DeviceSerial:
		if c.Device.Port == "" {
			bad("device.port is required for a serial device")
		}
	case DeviceServo:
		if c.Device.Port == "" {
			bad("device.port is required for a servo device")
		}
		if !c.Device.Calibration.Complete() {
			bad("device.calibration is incomplete, run setup")
		}
	default:
		bad("unknown device.kind %q", c.Device.Kind)
	}
	if c.Device.Deadband < 0 || c.Device.Deadband >= 100 {
		bad("device.deadband %v must be in [0, 100)", c.Device.Deadband)
	}
	if c.Server.FPS < 0 {
		bad("server.fps %d must not be negative", c.Server.FPS)
	}
	return errors.Join(errs...)
}

// InitialRadians converts Arm.InitialDeg to radians.
func (c *Config) InitialRadians() []float64 {
	out := make([]float64, len(c.Arm.InitialDeg))
	for i, d := range c.Arm.InitialDeg {
		out[i] = d * math.Pi / 180
	}
	return out
}

// Session maps the file configuration onto a teleop session.
func (c *Config) Session() teleop.Config {
	return teleop.Config{
		Links:            append([]kinematics.Link(nil), c.Arm.Links...),
		InitialPositions: c.InitialRadians(),
		Loop: teleop.LoopConfig{
			Hz:                c.Loop.Hz,
			VelocityScale:     c.Loop.VelocityScale,
			UnderflowLogEvery: c.Loop.UnderflowLogEvery,
		},
		Mapper: kinematics.MapperConfig{
			Damping:              c.Mapper.Damping,
			SingularityThreshold: c.Mapper.SingularityThreshold,
			MaxJointSpeed:        c.Mapper.MaxJointSpeed,
		},
		PollInterval: c.PollInterval(),
	}
}

// PollInterval returns Device.IntervalMs as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Device.IntervalMs) * time.Millisecond
}
