package timing

import (
	"fmt"
	"sync/atomic"
	"time"
)

// AnalogSampler reads the secondary analog feedback channel. Implementations
// must be fast: Sample is called twice on the real-time path per forward
// window.
type AnalogSampler interface {
	Sample() (int32, error)
}

// DirectionConfig holds the direction estimator's settings.
type DirectionConfig struct {
	// ForwardSlopePositive selects which slope sign means "forward".
	ForwardSlopePositive bool
	// SettleDelayUs is the spacing between the two analog reads. It is a
	// bounded busy-wait on the real-time path; keep it in the low tens of
	// microseconds.
	SettleDelayUs int64
}

// DefaultDirectionConfig returns a 10us read spacing with positive-slope
// forward polarity.
func DefaultDirectionConfig() DirectionConfig {
	return DirectionConfig{
		ForwardSlopePositive: true,
		SettleDelayUs:        10,
	}
}

// DirectionEstimator classifies a scan as forward or reverse from the sign of
// the slope between two time-spaced analog reads. The polarity is settable
// from the command context; everything else is owned by the real-time loop.
type DirectionEstimator struct {
	sampler       AnalogSampler
	delay         func(us int64)
	settleDelayUs int64

	forwardSlopePositive atomic.Bool

	last     DirectionSample
	haveLast bool
}

// NewDirectionEstimator creates an estimator reading from sampler. A nil
// delay uses a busy-wait with microsecond resolution.
func NewDirectionEstimator(cfg DirectionConfig, sampler AnalogSampler, delay func(us int64)) *DirectionEstimator {
	if delay == nil {
		delay = busyDelayUs
	}
	e := &DirectionEstimator{
		sampler:       sampler,
		delay:         delay,
		settleDelayUs: cfg.SettleDelayUs,
	}
	e.forwardSlopePositive.Store(cfg.ForwardSlopePositive)
	return e
}

// SampleDirection performs the two spaced reads and classifies the slope.
// The result is retained for telemetry.
func (e *DirectionEstimator) SampleDirection() (DirectionSample, error) {
	v0, err := e.sampler.Sample()
	if err != nil {
		return DirectionSample{}, fmt.Errorf("direction sample 0: %w", err)
	}
	e.delay(e.settleDelayUs)
	v1, err := e.sampler.Sample()
	if err != nil {
		return DirectionSample{}, fmt.Errorf("direction sample 1: %w", err)
	}

	slope := v1 - v0
	s := DirectionSample{
		V0:      v0,
		V1:      v1,
		Slope:   slope,
		Forward: (slope > 0) == e.forwardSlopePositive.Load(),
	}
	e.last = s
	e.haveLast = true
	return s, nil
}

// SetForwardSlopePositive updates the polarity. Safe to call from the command
// context while the real-time loop is sampling.
func (e *DirectionEstimator) SetForwardSlopePositive(v bool) {
	e.forwardSlopePositive.Store(v)
}

// ForwardSlopePositive returns the current polarity.
func (e *DirectionEstimator) ForwardSlopePositive() bool {
	return e.forwardSlopePositive.Load()
}

// Last returns the most recent sample and whether one has been taken.
// Call only from the real-time loop or after it has stopped.
func (e *DirectionEstimator) Last() (DirectionSample, bool) {
	return e.last, e.haveLast
}

// busyDelayUs spins for the given number of microseconds. Sleeping is not an
// option here: the scheduler wake-up latency dwarfs the delay itself.
func busyDelayUs(us int64) {
	deadline := time.Now().Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
}
