package teleop

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/log"
)

// Device is a source of Cartesian velocity commands.
// LinearVelocity blocks until a sample is available or ctx is done.
type Device interface {
	LinearVelocity(ctx context.Context) (kinematics.Vec3, error)
	Close() error
}

// ErrDeviceEnded marks a device error after which no further samples will
// arrive. Devices wrap it when their stream closes.
var ErrDeviceEnded = errors.New("teleop: device ended")

const errorBackoff = 10 * time.Millisecond

// Sampler copies device readings into the command slot until the loop stops.
type Sampler struct {
	device        Device
	slot          *Latest[kinematics.Vec3]
	logger        log.Logger
	pollInterval  time.Duration
	errorLogEvery uint64

	enabled atomic.Bool
	reads   atomic.Uint64
	errors  atomic.Uint64
}

// NewSampler returns an enabled sampler. A zero pollInterval reads as fast as
// the device produces samples.
func NewSampler(device Device, slot *Latest[kinematics.Vec3], pollInterval time.Duration, logger log.Logger) *Sampler {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Sampler{
		device:        device,
		slot:          slot,
		logger:        logger,
		pollInterval:  pollInterval,
		errorLogEvery: 100,
	}
	s.enabled.Store(true)
	return s
}

// SetEnabled switches sampling on or off. A disabled sampler's Run returns.
func (s *Sampler) SetEnabled(on bool) { s.enabled.Store(on) }

// Enabled reports the enabled flag.
func (s *Sampler) Enabled() bool { return s.enabled.Load() }

// Reads counts successful samples.
func (s *Sampler) Reads() uint64 { return s.reads.Load() }

// Errors counts failed reads.
func (s *Sampler) Errors() uint64 { return s.errors.Load() }

// Run samples while ctx is live, the sampler is enabled and running reports
// true. Read errors are counted and logged but do not stop sampling, except
// ErrDeviceEnded: the command is then zeroed, the sampler disables itself and
// Run returns.
func (s *Sampler) Run(ctx context.Context, running func() bool) {
	for ctx.Err() == nil && s.enabled.Load() && running() {
		v, err := s.device.LinearVelocity(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrDeviceEnded) {
				s.slot.Store(kinematics.Vec3{})
				s.enabled.Store(false)
				s.logger.Warnf("Input device ended (%v), holding position", err)
				return
			}
			if n := s.errors.Add(1); n == 1 || n%s.errorLogEvery == 0 {
				s.logger.WithField("errors", n).Warnf("Device read error: %v", err)
			}
			sleepCtx(ctx, errorBackoff)
			continue
		}
		s.slot.Store(v)
		s.reads.Add(1)
		if s.pollInterval > 0 {
			sleepCtx(ctx, s.pollInterval)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
