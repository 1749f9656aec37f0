package engine

import "sync/atomic"

// Params holds the hot-settable scalars read by the real-time loop. Every
// field is a single atomic word so the loop can never observe a torn value
// mid-update; there is deliberately no struct-wide lock.
type Params struct {
	pulseWidthUs      atomic.Int64
	extraOffsetUs     atomic.Int64
	minSpacingUs      atomic.Int64
	ttlFreqHz         atomic.Int64
	recoveryTimeoutUs atomic.Int64
	testCount         atomic.Int64
	testPattern       atomic.Bool
	armed             atomic.Bool
}

// ParamDefaults are the boot values for the hot-settable parameters.
type ParamDefaults struct {
	PulseWidthUs      int64
	ExtraOffsetUs     int64
	TTLFreqHz         int64
	RecoveryTimeoutUs int64
	TestCount         int64
	TestPattern       bool
}

// DefaultParamDefaults returns the standard boot configuration: 1us pixels,
// 1MHz TTL clock (1us minimum spacing), 100ms signal-loss timeout, 100-dot
// test pattern available but disabled.
func DefaultParamDefaults() ParamDefaults {
	return ParamDefaults{
		PulseWidthUs:      1,
		ExtraOffsetUs:     0,
		TTLFreqHz:         1000000,
		RecoveryTimeoutUs: 100000,
		TestCount:         100,
	}
}

// NewParams creates a Params block seeded from d.
func NewParams(d ParamDefaults) *Params {
	p := &Params{}
	p.SetPulseWidthUs(d.PulseWidthUs)
	p.SetExtraOffsetUs(d.ExtraOffsetUs)
	p.SetTTLFreqHz(d.TTLFreqHz)
	p.SetRecoveryTimeoutUs(d.RecoveryTimeoutUs)
	p.SetTestCount(d.TestCount)
	p.SetTestPattern(d.TestPattern)
	return p
}

func (p *Params) PulseWidthUs() int64     { return p.pulseWidthUs.Load() }
func (p *Params) SetPulseWidthUs(v int64) { p.pulseWidthUs.Store(v) }

func (p *Params) ExtraOffsetUs() int64     { return p.extraOffsetUs.Load() }
func (p *Params) SetExtraOffsetUs(v int64) { p.extraOffsetUs.Store(v) }

func (p *Params) MinSpacingUs() int64 { return p.minSpacingUs.Load() }

// TTLFreqHz returns the TTL clock frequency from which the minimum pulse
// spacing is derived.
func (p *Params) TTLFreqHz() int64 { return p.ttlFreqHz.Load() }

// SetTTLFreqHz stores the TTL clock frequency and re-derives the minimum
// spacing as one clock period, floored at 1us.
func (p *Params) SetTTLFreqHz(hz int64) {
	p.ttlFreqHz.Store(hz)
	spacing := int64(1)
	if hz > 0 {
		if s := 1000000 / hz; s > 1 {
			spacing = s
		}
	}
	p.minSpacingUs.Store(spacing)
}

func (p *Params) RecoveryTimeoutUs() int64     { return p.recoveryTimeoutUs.Load() }
func (p *Params) SetRecoveryTimeoutUs(v int64) { p.recoveryTimeoutUs.Store(v) }

func (p *Params) TestCount() int64     { return p.testCount.Load() }
func (p *Params) SetTestCount(v int64) { p.testCount.Store(v) }

func (p *Params) TestPattern() bool     { return p.testPattern.Load() }
func (p *Params) SetTestPattern(v bool) { p.testPattern.Store(v) }

func (p *Params) Armed() bool     { return p.armed.Load() }
func (p *Params) SetArmed(v bool) { p.armed.Store(v) }
