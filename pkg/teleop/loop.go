// Package teleop runs the fixed-rate integration loop that turns Cartesian
// velocity commands into joint motion, and the input sampler that feeds it.
package teleop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/log"
)

// DefaultHz is the integration rate.
const DefaultHz = 500

// ErrAlreadyRunning is returned by Loop.Run when the loop is already running.
var ErrAlreadyRunning = errors.New("teleop: loop already running")

// State is the loop lifecycle state.
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Snapshot is the state published once per tick. Readers share it and
// must treat its slices as read-only.
type Snapshot struct {
	Tick           uint64             `json:"tick"`
	Time           float64            `json:"time"` // seconds since loop start
	Dt             float64            `json:"dt"`
	Position       []float64          `json:"position"`
	Velocity       []float64          `json:"velocity"`
	Pose           kinematics.Pose    `json:"pose"`
	Frames         []kinematics.Point `json:"frames"`
	Input          kinematics.Vec3    `json:"input"`
	Manipulability float64            `json:"manipulability"`
	Damped         bool               `json:"damped"`
	Clamped        bool               `json:"clamped"`
	Underflows     uint64             `json:"underflows"`
}

// VelocityMapper turns a Cartesian command into joint velocity at q.
type VelocityMapper interface {
	Map(v kinematics.Vec3, q []float64) kinematics.Solution
}

// Observer is notified on the loop goroutine after every published tick.
// Implementations must return quickly.
type Observer interface {
	OnTick(s Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) OnTick(s Snapshot) { f(s) }

// LoopConfig holds loop tuning.
type LoopConfig struct {
	Hz int
	// VelocityScale multiplies every sampled command before mapping.
	VelocityScale float64
	// UnderflowLogEvery rate-limits the underflow warning to the first and
	// then every Nth occurrence.
	UnderflowLogEvery uint64
}

type options struct {
	clock     Clock
	logger    log.Logger
	observers []Observer
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = NewClock()
	}
	if o.logger == nil {
		o.logger = log.Nop()
	}
	return o
}

// Option configures a Loop or a Session.
type Option func(*options)

// WithClock replaces the monotonic clock.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver registers a tick observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// Loop integrates the model at a fixed rate. It is the only writer of the
// model's joint state.
type Loop struct {
	model     *kinematics.Model
	mapper    VelocityMapper
	input     *Latest[kinematics.Vec3]
	output    *Latest[Snapshot]
	cfg       LoopConfig
	clock     Clock
	logger    log.Logger
	observers []Observer

	state      atomic.Int32
	ticks      atomic.Uint64
	underflows atomic.Uint64

	startOnce sync.Once
	started   chan struct{}
}

// NewLoop wires a loop reading commands from input and publishing to output.
func NewLoop(model *kinematics.Model, mapper VelocityMapper, input *Latest[kinematics.Vec3],
	output *Latest[Snapshot], cfg LoopConfig, opts ...Option) *Loop {
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.VelocityScale == 0 {
		cfg.VelocityScale = 1
	}
	if cfg.UnderflowLogEvery == 0 {
		cfg.UnderflowLogEvery = uint64(cfg.Hz)
	}
	o := buildOptions(opts)
	return &Loop{
		model:     model,
		mapper:    mapper,
		input:     input,
		output:    output,
		cfg:       cfg,
		clock:     o.clock,
		logger:    o.logger,
		observers: o.observers,
		started:   make(chan struct{}),
	}
}

// Hz returns the configured rate.
func (l *Loop) Hz() int { return l.cfg.Hz }

// State returns the lifecycle state.
func (l *Loop) State() State { return State(l.state.Load()) }

// Running reports whether Run is active. The sampler polls it.
func (l *Loop) Running() bool { return l.State() == Running }

// Started is closed the first time the loop enters Running.
func (l *Loop) Started() <-chan struct{} { return l.started }

// Ticks counts completed iterations.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// Underflows counts iterations that started late.
func (l *Loop) Underflows() uint64 { return l.underflows.Load() }

// Run executes ticks until ctx is cancelled, then finishes the current
// iteration and returns nil. Cancelling during the inter-tick sleep still
// lets that one tick run.
func (l *Loop) Run(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(Stopped), int32(Running)) {
		return ErrAlreadyRunning
	}
	defer l.state.Store(int32(Stopped))
	l.startOnce.Do(func() { close(l.started) })

	timer := NewLoopTimer(l.clock, l.cfg.Hz)
	timer.Start()
	last := timer.Elapsed()
	l.logger.Infof("Integration loop started at %d Hz", l.cfg.Hz)

	for ctx.Err() == nil {
		onTime := timer.WaitForNextLoop(ctx)
		now := timer.Elapsed()
		dt := (now - last).Seconds()
		last = now

		if !onTime {
			if n := l.underflows.Add(1); n == 1 || n%l.cfg.UnderflowLogEvery == 0 {
				l.logger.WithField("underflows", n).Warnf("Loop underflow: tick took %s, budget %s",
					time.Duration(dt*float64(time.Second)).Round(time.Microsecond), timer.Period())
			}
		}
		l.publish(l.step(dt, now))
	}

	l.logger.Infof("Integration loop stopped after %d ticks", l.ticks.Load())
	return nil
}

// step performs one iteration: integrate the previous velocity over dt,
// refresh the model, then map the latest command to the next velocity.
func (l *Loop) step(dt float64, now time.Duration) Snapshot {
	l.model.Integrate(dt)
	l.model.UpdateModel()

	v, _ := l.input.Load()
	v = v.Scale(l.cfg.VelocityScale)
	sol := l.mapper.Map(v, l.model.Positions())
	if err := l.model.SetVelocity(sol.JointVelocity); err != nil {
		l.logger.Errorf("Discarding joint velocity: %v", err)
		_ = l.model.SetVelocity(make([]float64, l.model.JointCount()))
	}

	tick := l.ticks.Add(1)
	st := l.model.State()
	pose, _ := l.model.EndEffectorPose()
	frames, _ := l.model.Frames()
	return Snapshot{
		Tick:           tick,
		Time:           now.Seconds(),
		Dt:             dt,
		Position:       st.Position,
		Velocity:       st.Velocity,
		Pose:           pose,
		Frames:         frames,
		Input:          v,
		Manipulability: sol.Manipulability,
		Damped:         sol.Damped,
		Clamped:        sol.Clamped,
		Underflows:     l.underflows.Load(),
	}
}

func (l *Loop) publish(s Snapshot) {
	l.output.Store(s)
	for _, o := range l.observers {
		o.OnTick(s)
	}
}
