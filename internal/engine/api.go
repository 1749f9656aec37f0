package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/sweeney/mirror-sync/internal/pattern"
	"github.com/sweeney/mirror-sync/internal/status"
)

// Typed command failures. Settings are validated before application; a
// rejected set is never applied partially.
var (
	ErrUnsupportedPath = errors.New("unsupported path")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidValue    = errors.New("invalid value")
)

// Arm gates pulse scheduling. Disarming forces immediate idle on all
// channels; an in-flight window is cancelled rather than allowed to finish.
func (e *Engine) Arm(v bool) {
	e.params.SetArmed(v)
	if !v {
		e.playback.Idle()
	}
	e.publishControl()
}

// UploadInactive replaces the inactive pattern generation and returns the
// accepted count.
func (e *Engine) UploadInactive(points []pattern.Point) int {
	n := e.buffer.WriteInactive(points)
	e.publishControl()
	return n
}

// RequestSwap asks the loop to activate the inactive generation at the next
// gap region. Passing false withdraws a request that has not executed yet.
func (e *Engine) RequestSwap(v bool) {
	if v {
		e.buffer.RequestSwap()
	} else {
		e.buffer.CancelSwap()
	}
}

// Set applies one configuration value by path. Numeric JSON values arrive as
// float64; integral paths reject fractional input.
func (e *Engine) Set(path string, value any) error {
	switch path {
	case "ttl.pixelWidth_us":
		v, err := intInRange(value, 1, 1000)
		if err != nil {
			return err
		}
		e.params.SetPulseWidthUs(v)
	case "ttl.extraOffset_us":
		v, err := intInRange(value, 0, 100000)
		if err != nil {
			return err
		}
		e.params.SetExtraOffsetUs(v)
	case "ttl.ttlFreq_hz":
		v, err := intInRange(value, 1, 10000000)
		if err != nil {
			return err
		}
		e.params.SetTTLFreqHz(v)
	case "dots.testPatternEnable":
		v, err := asBool(value)
		if err != nil {
			return err
		}
		e.params.SetTestPattern(v)
	case "dots.testCount":
		v, err := intInRange(value, 1, pattern.Capacity)
		if err != nil {
			return err
		}
		e.params.SetTestCount(v)
	case "direction.forwardSlopePositive":
		v, err := asBool(value)
		if err != nil {
			return err
		}
		e.direction.SetForwardSlopePositive(v)
	case "recovery.timeout_ms":
		v, err := intInRange(value, 1, 60000)
		if err != nil {
			return err
		}
		e.params.SetRecoveryTimeoutUs(v * 1000)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedPath, path)
	}
	e.publishControl()
	return nil
}

// Get reads one configuration value by path. Full telemetry ("*") is served
// by the command layer from the status tracker, not here.
func (e *Engine) Get(path string) (any, error) {
	switch path {
	case "ttl.pixelWidth_us":
		return e.params.PulseWidthUs(), nil
	case "ttl.extraOffset_us":
		return e.params.ExtraOffsetUs(), nil
	case "ttl.ttlFreq_hz":
		return e.params.TTLFreqHz(), nil
	case "dots.testPatternEnable":
		return e.params.TestPattern(), nil
	case "dots.testCount":
		return e.params.TestCount(), nil
	case "direction.forwardSlopePositive":
		return e.direction.ForwardSlopePositive(), nil
	case "recovery.timeout_ms":
		return e.params.RecoveryTimeoutUs() / 1000, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPath, path)
	}
}

// Armed reports the current arm state.
func (e *Engine) Armed() bool {
	return e.params.Armed()
}

func (e *Engine) publishControl() {
	uploaded, accepted := e.buffer.UploadStats()
	e.tracker.SetControl(status.Control{
		Armed:                e.params.Armed(),
		TestPattern:          e.params.TestPattern(),
		TestCount:            e.params.TestCount(),
		PulseWidthUs:         e.params.PulseWidthUs(),
		ExtraOffsetUs:        e.params.ExtraOffsetUs(),
		MinSpacingUs:         e.params.MinSpacingUs(),
		TTLFreqHz:            e.params.TTLFreqHz(),
		RecoveryTimeoutUs:    e.params.RecoveryTimeoutUs(),
		ForwardSlopePositive: e.direction.ForwardSlopePositive(),
		UploadedCount:        uploaded,
		AcceptedCount:        accepted,
	})
}

func intInRange(value any, lo, hi int64) (int64, error) {
	v, err := asInt64(value)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrValueOutOfRange, v, lo, hi)
	}
	return v, nil
}

func asInt64(value any) (int64, error) {
	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, v)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: expected number, got %T", ErrInvalidValue, value)
	}
}

func asBool(value any) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expected bool, got %T", ErrInvalidValue, value)
	}
	return v, nil
}
