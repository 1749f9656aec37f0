// Package engine runs the real-time pipeline: edge classification, direction
// gating, sweep filtering, pattern consumption, pulse-sequence building, and
// the signal-loss watchdog. One goroutine owns the loop; the command context
// reaches in only through Params atomics, the pattern buffer contract, and
// the control surface in api.go.
package engine

import (
	"time"

	"github.com/sweeney/mirror-sync/internal/gpio"
	"github.com/sweeney/mirror-sync/internal/pattern"
	"github.com/sweeney/mirror-sync/internal/pulse"
	"github.com/sweeney/mirror-sync/internal/status"
	"github.com/sweeney/mirror-sync/internal/timing"
)

// NoticeKind identifies an engine event of interest to slower consumers.
type NoticeKind uint8

const (
	NoticeSignalLost NoticeKind = iota
	NoticeSignalRecovered
)

// String returns the label used in MQTT events.
func (k NoticeKind) String() string {
	if k == NoticeSignalLost {
		return "SIGNAL_LOST"
	}
	return "SIGNAL_RECOVERED"
}

// Notice is delivered on a buffered channel; the loop drops (and counts)
// notices rather than block on a slow consumer.
type Notice struct {
	Kind    NoticeKind
	At      time.Time
	SweepUs int64
	Locked  bool
}

// Config holds construction-time engine settings.
type Config struct {
	Classifier  timing.ClassifierConfig
	Sweep       timing.SweepFilterConfig
	Direction   timing.DirectionConfig
	MaxSegments int

	// DirectionDelay overrides the inter-read busy delay; nil uses the
	// default. Tests inject a no-op.
	DirectionDelay func(us int64)

	// PollInterval is the loop's idle sleep. 0 means 100us.
	PollInterval time.Duration
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Classifier:  timing.DefaultClassifierConfig(),
		Sweep:       timing.DefaultSweepFilterConfig(),
		Direction:   timing.DefaultDirectionConfig(),
		MaxSegments: pulse.DefaultMaxSegments,
	}
}

// Engine owns the real-time pipeline.
type Engine struct {
	classifier *timing.Classifier
	sweep      *timing.SweepFilter
	direction  *timing.DirectionEstimator
	buffer     *pattern.Buffer
	playback   gpio.Playback
	params     *Params
	tracker    *status.Tracker
	recovery   *Supervisor
	mailbox    Mailbox

	maxSegments  int
	pollInterval time.Duration

	// loop-owned diagnostic counters, exported via the tracker
	counters status.Counters

	// cached test pattern, regenerated only when the count changes
	testPoints []pattern.Point
	testCached int64

	notices        chan Notice
	droppedNotices uint64

	nowUs func() int64

	stop chan struct{}
	done chan struct{}
}

// New creates an engine. The tracker may be shared with HTTP and command
// consumers; playback and sampler are the hardware boundary.
func New(cfg Config, buf *pattern.Buffer, playback gpio.Playback, sampler timing.AnalogSampler, params *Params, tracker *status.Tracker) *Engine {
	if cfg.MaxSegments <= 0 {
		cfg.MaxSegments = pulse.DefaultMaxSegments
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Microsecond
	}

	base := time.Now()
	e := &Engine{
		classifier:   timing.NewClassifier(cfg.Classifier),
		sweep:        timing.NewSweepFilter(cfg.Sweep),
		direction:    timing.NewDirectionEstimator(cfg.Direction, sampler, cfg.DirectionDelay),
		buffer:       buf,
		playback:     playback,
		params:       params,
		tracker:      tracker,
		recovery:     NewSupervisor(),
		maxSegments:  cfg.MaxSegments,
		pollInterval: cfg.PollInterval,
		notices:      make(chan Notice, 16),
		nowUs: func() int64 {
			return time.Since(base).Microseconds()
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	e.publishControl()
	return e
}

// OnEdge is the capture handler: called from the edge-source goroutine for
// every timing-mark transition. It only publishes into the mailbox.
func (e *Engine) OnEdge(timestampUs int64, rising bool) {
	e.mailbox.Put(timestampUs)
}

// Notices returns the engine's event channel for the MQTT bridge.
func (e *Engine) Notices() <-chan Notice {
	return e.notices
}

// Start launches the loop goroutine.
func (e *Engine) Start() {
	go e.run()
}

// Stop terminates the loop, waits for it, and forces outputs idle.
func (e *Engine) Stop() {
	close(e.stop)
	<-e.done
	e.playback.Idle()
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			return
		default:
		}
		e.Step(e.nowUs())
		time.Sleep(e.pollInterval)
	}
}

// Step runs one poll iteration at the given loop time. Exported for tests;
// production code only calls it via run.
func (e *Engine) Step(nowUs int64) {
	if ts, ok := e.mailbox.Take(); ok {
		e.counters.Edges++
		if e.recovery.NoteEdge(nowUs) {
			e.notify(NoticeSignalRecovered)
		}

		switch e.classifier.OnEdge(ts) {
		case timing.ClusterGap:
			// The gap region is the quiescent point of the cycle: the
			// only place a pattern swap may take effect.
			e.buffer.MaybeSwap()
		case timing.ClusterLong:
			e.onLongWindow()
		}
		e.publishRealtime()
	}

	if e.recovery.Check(nowUs, e.params.RecoveryTimeoutUs()) {
		e.playback.Idle()
		e.classifier.Reset()
		e.sweep.Reset()
		e.notify(NoticeSignalLost)
		e.publishRealtime()
	}
}

// onLongWindow handles a just-completed long window: direction gating, sweep
// filtering, and, when armed, locked, and healthy, building and triggering
// the next window's sequences.
func (e *Engine) onLongWindow() {
	sample, err := e.direction.SampleDirection()
	if err != nil {
		e.counters.DirectionErrors++
		return
	}
	if !sample.Forward {
		// Reverse windows must not perturb the sweep filter.
		return
	}

	e.sweep.OnForwardWindow(e.classifier.LastLongUs())

	if !e.params.Armed() || !e.classifier.Locked() || e.recovery.State() != StateArmedNormal {
		return
	}
	sweepUs := e.sweep.FilteredUs()
	if sweepUs <= 0 {
		return
	}

	points := e.schedulePoints()
	p := pulse.Params{
		SweepUs:       sweepUs,
		PulseWidthUs:  e.params.PulseWidthUs(),
		ExtraOffsetUs: e.params.ExtraOffsetUs(),
		MinSpacingUs:  e.params.MinSpacingUs(),
		MaxSegments:   e.maxSegments,
	}

	var seqs [pattern.NumChannels][]pulse.Segment
	for ch := 0; ch < pattern.NumChannels; ch++ {
		res := pulse.Build(ch, points, p)
		seqs[ch] = res.Segments
		e.counters.RejectedPoints += uint64(res.Rejected)
		if res.Truncated {
			e.counters.TruncatedBuilds++
		}
	}
	e.counters.Builds++
	e.playback.Play(seqs)
}

// schedulePoints returns the active pattern, or the cached test pattern when
// it is enabled. The cache keeps test-pattern generation off the hot path.
func (e *Engine) schedulePoints() []pattern.Point {
	if !e.params.TestPattern() {
		return e.buffer.ActivePoints()
	}
	n := e.params.TestCount()
	if e.testPoints == nil || n != e.testCached {
		e.testPoints = pattern.TestPattern(int(n))
		e.testCached = n
	}
	return e.testPoints
}

func (e *Engine) notify(kind NoticeKind) {
	n := Notice{
		Kind:    kind,
		At:      time.Now(),
		SweepUs: e.sweep.FilteredUs(),
		Locked:  e.classifier.Locked(),
	}
	select {
	case e.notices <- n:
	default:
		e.droppedNotices++
	}
}

func (e *Engine) publishRealtime() {
	dir, haveDir := e.direction.Last()
	e.counters.Overruns = e.mailbox.Overruns()
	e.counters.DroppedWindows = e.playback.Dropped()
	e.counters.Losses = e.recovery.Losses()
	e.counters.Swaps = e.buffer.Swaps()
	e.counters.DroppedNotices = e.droppedNotices

	e.tracker.UpdateRealtime(status.Realtime{
		Timing:        e.classifier.Snapshot(),
		SweepUs:       e.sweep.FilteredUs(),
		Direction:     dir,
		HaveDirection: haveDir,
		SignalLost:    e.recovery.State() == StateSignalLost,
		ActiveIndex:   e.buffer.ActiveIndex(),
		ActiveCount:   e.buffer.ActiveCount(),
		Counters:      e.counters,
	})
}
