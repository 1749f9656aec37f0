// Package timing contains pure timing logic for the mirror scanner: interval
// classification, sweep-duration filtering, and scan-direction estimation.
// This package has NO hardware dependencies (no GPIO, MQTT, or OS). Timestamps
// are injected as integer microseconds on a monotonic clock.
package timing

// Cluster labels an inter-edge interval.
type Cluster uint8

const (
	// ClusterNone is returned when no interval could be measured (first
	// edge after reset, or a non-increasing timestamp).
	ClusterNone Cluster = iota
	ClusterShort
	ClusterLong
	ClusterGap
)

// String returns the label used in telemetry.
func (c Cluster) String() string {
	switch c {
	case ClusterShort:
		return "SHORT"
	case ClusterLong:
		return "LONG"
	case ClusterGap:
		return "GAP"
	default:
		return "NONE"
	}
}

// ClassifierConfig holds the classifier's seeds and smoothing shift.
type ClassifierConfig struct {
	// Nominal interval seeds used to route samples during bootstrap.
	ShortSeedUs int64
	LongSeedUs  int64
	GapSeedUs   int64
	// EMAShift controls locked-phase smoothing:
	// estimate += (dt - estimate) >> EMAShift.
	EMAShift uint
}

// DefaultClassifierConfig returns seeds for the reference scanner geometry
// (roughly 20/130/500 microsecond short/long/gap windows).
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		ShortSeedUs: 20,
		LongSeedUs:  130,
		GapSeedUs:   500,
		EMAShift:    3,
	}
}

// ClusterSnapshot is a value copy of the classifier state for telemetry.
type ClusterSnapshot struct {
	ShortUs     int64
	LongUs      int64
	GapUs       int64
	Locked      bool
	LastCluster Cluster
	// LastLongUs is the most recent raw long-window duration, before any
	// direction gating or filtering.
	LastLongUs int64
}

// DirectionSample holds one pair of spaced analog readings.
type DirectionSample struct {
	V0      int32
	V1      int32
	Slope   int32
	Forward bool
}
