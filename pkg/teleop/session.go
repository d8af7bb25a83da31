package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/log"
)

var (
	// ErrInvalidConfig wraps every configuration error from NewSession.
	ErrInvalidConfig = errors.New("teleop: invalid configuration")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("teleop: session already started")
)

// Config describes one teleoperation session.
type Config struct {
	Links []kinematics.Link
	// InitialPositions are joint angles in radians, one per link.
	InitialPositions []float64
	Loop             LoopConfig
	Mapper           kinematics.MapperConfig
	// PollInterval is the sampler pause after each successful read.
	PollInterval time.Duration
}

// Stats is a point-in-time view of session counters.
type Stats struct {
	Ticks         uint64 `json:"ticks"`
	Underflows    uint64 `json:"underflows"`
	InputUpdates  uint64 `json:"input_updates"`
	DeviceReads   uint64 `json:"device_reads"`
	DeviceErrors  uint64 `json:"device_errors"`
	DeviceEnabled bool   `json:"device_enabled"`
}

// Session owns the model, the command and state slots, the loop and the
// sampler. Everything else only reads snapshots.
type Session struct {
	chain   *kinematics.Chain
	input   Latest[kinematics.Vec3]
	state   Latest[Snapshot]
	loop    *Loop
	sampler *Sampler
	logger  log.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	runErr  error
}

// NewSession validates cfg and builds the session. A nil device is treated
// as absent: the loop runs with a zero command.
func NewSession(cfg Config, device Device, opts ...Option) (*Session, error) {
	o := buildOptions(opts)

	chain, err := kinematics.NewChain(cfg.Links...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	model, err := kinematics.NewModel(chain, cfg.InitialPositions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Loop.Hz < 0 {
		return nil, fmt.Errorf("%w: loop rate %d Hz", ErrInvalidConfig, cfg.Loop.Hz)
	}
	if cfg.Loop.VelocityScale < 0 {
		return nil, fmt.Errorf("%w: negative velocity scale %v", ErrInvalidConfig, cfg.Loop.VelocityScale)
	}

	s := &Session{chain: chain, logger: o.logger}
	mapper := kinematics.NewMapper(chain, cfg.Mapper)
	s.loop = NewLoop(model, mapper, &s.input, &s.state, cfg.Loop, opts...)

	// publish the initial configuration so readers have a frame before tick 1
	model.UpdateModel()
	pose, _ := model.EndEffectorPose()
	frames, _ := model.Frames()
	st := model.State()
	s.state.Store(Snapshot{Position: st.Position, Velocity: st.Velocity, Pose: pose, Frames: frames})

	if device == nil {
		o.logger.Warnf("No input device: running with zero velocity command")
	} else {
		s.sampler = NewSampler(device, &s.input, cfg.PollInterval, o.logger.WithField("component", "sampler"))
	}
	return s, nil
}

// Start launches the loop and, when a device is present, the sampler.
// Cancelling ctx has the same effect as Stop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.loop.Run(ctx); err != nil {
			s.mu.Lock()
			s.runErr = err
			s.mu.Unlock()
		}
	}()

	if s.sampler != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			select {
			case <-s.loop.Started():
			case <-ctx.Done():
				return
			}
			s.sampler.Run(ctx, s.loop.Running)
		}()
	}
	return nil
}

// Stop requests shutdown. It does not wait; use Wait.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until the loop and sampler have exited.
func (s *Session) Wait() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Snapshot returns the most recently published state.
func (s *Session) Snapshot() (Snapshot, bool) {
	return s.state.Load()
}

// Input returns the most recent command and whether one was ever sampled.
func (s *Session) Input() (kinematics.Vec3, bool) {
	return s.input.Load()
}

// Chain returns the arm geometry.
func (s *Session) Chain() *kinematics.Chain { return s.chain }

// Hz returns the loop rate.
func (s *Session) Hz() int { return s.loop.Hz() }

// Running reports whether the loop is running.
func (s *Session) Running() bool { return s.loop.Running() }

// Stats returns the current counters.
func (s *Session) Stats() Stats {
	st := Stats{
		Ticks:        s.loop.Ticks(),
		Underflows:   s.loop.Underflows(),
		InputUpdates: s.input.Version(),
	}
	if s.sampler != nil {
		st.DeviceReads = s.sampler.Reads()
		st.DeviceErrors = s.sampler.Errors()
		st.DeviceEnabled = s.sampler.Enabled()
	}
	return st
}
