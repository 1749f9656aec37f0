package timing

// SweepFilterConfig holds the sweep filter's smoothing shift and sanity band.
type SweepFilterConfig struct {
	// Shift controls smoothing: filtered += (raw - filtered) >> Shift.
	Shift uint
	// MinUs/MaxUs bound plausible raw sweep durations; values outside the
	// band are rejected and the previous filtered value is retained.
	MinUs int64
	MaxUs int64
}

// DefaultSweepFilterConfig returns a band wide enough for mirror frequencies
// from tens of hertz to a few kilohertz.
func DefaultSweepFilterConfig() SweepFilterConfig {
	return SweepFilterConfig{
		Shift: 2,
		MinUs: 50,
		MaxUs: 100000,
	}
}

// SweepFilter smooths forward long-window durations into the filtered sweep
// duration used for all position-to-time mapping. Reverse windows must not be
// fed to it; the caller gates on the direction estimate.
//
// Not safe for concurrent use; owned by the real-time loop.
type SweepFilter struct {
	cfg        SweepFilterConfig
	filteredUs int64
}

// NewSweepFilter creates an empty filter.
func NewSweepFilter(cfg SweepFilterConfig) *SweepFilter {
	return &SweepFilter{cfg: cfg}
}

// OnForwardWindow incorporates one forward-classified long-window duration.
// Returns false if the raw duration was outside the sanity band and was
// discarded. The first accepted duration seeds the filter directly.
func (f *SweepFilter) OnForwardWindow(rawUs int64) bool {
	if rawUs < f.cfg.MinUs || rawUs > f.cfg.MaxUs {
		return false
	}
	if f.filteredUs == 0 {
		f.filteredUs = rawUs
		return true
	}
	f.filteredUs += (rawUs - f.filteredUs) >> f.cfg.Shift
	return true
}

// FilteredUs returns the current filtered sweep duration, or 0 before the
// first accepted window.
func (f *SweepFilter) FilteredUs() int64 {
	return f.filteredUs
}

// Reset clears the filter.
func (f *SweepFilter) Reset() {
	f.filteredUs = 0
}
