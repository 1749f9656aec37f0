// Package status provides a thread-safe status tracker for the mirror-sync
// daemon. It is read by the HTTP handlers and the command protocol's
// telemetry responses; telemetry is pull-based, the tracker never pushes.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/mirror-sync/internal/timing"
)

// Config contains static daemon configuration for display.
type Config struct {
	Broker     string
	HTTPAddr   string
	CmdAddr    string
	Chip       string
	PinMark    int
	PinR       int
	PinG       int
	PinB       int
	ADCDevice  int
	ADCChannel int
}

// Counters are the real-time loop's diagnostic counts since startup.
type Counters struct {
	Edges           uint64
	Overruns        uint64
	Builds          uint64
	TruncatedBuilds uint64
	DroppedWindows  uint64
	RejectedPoints  uint64
	DirectionErrors uint64
	Losses          uint64
	Swaps           uint64
	DroppedNotices  uint64
}

// Realtime is the slice of state owned by the real-time loop, pushed into the
// tracker as one value so readers never see it half-updated.
type Realtime struct {
	Timing        timing.ClusterSnapshot
	SweepUs       int64
	Direction     timing.DirectionSample
	HaveDirection bool
	SignalLost    bool
	ActiveIndex   int
	ActiveCount   int
	Counters      Counters
}

// Control is the command-settable state, pushed by the control surface
// whenever a setting changes.
type Control struct {
	Armed                bool
	TestPattern          bool
	TestCount            int64
	PulseWidthUs         int64
	ExtraOffsetUs        int64
	MinSpacingUs         int64
	TTLFreqHz            int64
	RecoveryTimeoutUs    int64
	ForwardSlopePositive bool
	UploadedCount        int64
	AcceptedCount        int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	RT            Realtime
	Control       Control
	MQTTConnected bool
	StartTime     time.Time
	Now           time.Time
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// UpdateRealtime replaces the real-time slice of the snapshot.
// Called from the loop after processing an edge or a state transition.
func (t *Tracker) UpdateRealtime(rt Realtime) {
	t.mu.Lock()
	t.snap.RT = rt
	t.mu.Unlock()
}

// SetControl replaces the command-settable slice of the snapshot.
func (t *Tracker) SetControl(c Control) {
	t.mu.Lock()
	t.snap.Control = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
