package timing

// Classifier buckets inter-edge intervals into short/long/gap clusters.
//
// It bootstraps by routing intervals into running-average accumulators using
// coarse thresholds derived from the configured seeds. Once every accumulator
// has at least one sample the classifier locks and switches to tracking:
// each interval is matched against the current smoothed estimates with a
// +25% tolerance band and the matching estimate is updated with an integer
// EMA. An interval that fits no band is assigned to the nearest estimate by
// absolute distance, so every interval yields a decision.
//
// Not safe for concurrent use; owned by the real-time loop.
type Classifier struct {
	cfg ClassifierConfig

	lastEdgeUs int64
	haveEdge   bool
	locked     bool

	// Bootstrap running-average accumulators, indexed short/long/gap.
	sum [3]int64
	n   [3]int64

	// Smoothed estimates, indexed short/long/gap. During bootstrap these
	// track the running averages.
	est [3]int64

	lastCluster Cluster
	lastLongUs  int64
}

// Accumulator indices. Cluster values are index+1.
const (
	idxShort = iota
	idxLong
	idxGap
)

// NewClassifier creates an unlocked classifier with the given config.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// OnEdge consumes one edge timestamp and returns the cluster label of the
// just-completed interval. Timestamps must be strictly increasing; the first
// edge after reset only stores the reference and returns ClusterNone, as does
// a non-increasing timestamp.
func (c *Classifier) OnEdge(tsUs int64) Cluster {
	if !c.haveEdge {
		c.haveEdge = true
		c.lastEdgeUs = tsUs
		return ClusterNone
	}

	dt := tsUs - c.lastEdgeUs
	if dt <= 0 {
		return ClusterNone
	}
	c.lastEdgeUs = tsUs

	var idx int
	if c.locked {
		idx = c.track(dt)
	} else {
		idx = c.bootstrap(dt)
	}

	if idx == idxLong {
		c.lastLongUs = dt
	}
	c.lastCluster = Cluster(idx + 1)
	return c.lastCluster
}

// bootstrap routes dt into an accumulator by coarse seed thresholds and
// returns the chosen index. Locks once all three accumulators have a sample.
func (c *Classifier) bootstrap(dt int64) int {
	idx := idxGap
	switch {
	case dt < (c.cfg.ShortSeedUs+c.cfg.LongSeedUs)/2:
		idx = idxShort
	case dt < (c.cfg.LongSeedUs+c.cfg.GapSeedUs)/2:
		idx = idxLong
	}

	c.sum[idx] += dt
	c.n[idx]++
	c.est[idx] = c.sum[idx] / c.n[idx]

	if c.n[idxShort] > 0 && c.n[idxLong] > 0 && c.n[idxGap] > 0 {
		c.locked = true
	}
	return idx
}

// track classifies dt against the smoothed estimates, preferring the
// short < long < gap order, and updates the matching estimate.
func (c *Classifier) track(dt int64) int {
	idx := -1
	for i := idxShort; i <= idxGap; i++ {
		if dt <= c.est[i]+c.est[i]>>2 {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = c.nearest(dt)
	}

	c.est[idx] += (dt - c.est[idx]) >> c.cfg.EMAShift
	return idx
}

// nearest returns the index of the estimate closest to dt.
func (c *Classifier) nearest(dt int64) int {
	best, bestDist := idxShort, absDiff(dt, c.est[idxShort])
	for i := idxLong; i <= idxGap; i++ {
		if d := absDiff(dt, c.est[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

// Locked reports whether the classifier has left the bootstrap phase.
func (c *Classifier) Locked() bool {
	return c.locked
}

// LastLongUs returns the most recent raw long-window duration.
func (c *Classifier) LastLongUs() int64 {
	return c.lastLongUs
}

// Snapshot returns a value copy of the classifier state for telemetry.
func (c *Classifier) Snapshot() ClusterSnapshot {
	return ClusterSnapshot{
		ShortUs:     c.est[idxShort],
		LongUs:      c.est[idxLong],
		GapUs:       c.est[idxGap],
		Locked:      c.locked,
		LastCluster: c.lastCluster,
		LastLongUs:  c.lastLongUs,
	}
}

// Reset returns the classifier to its unlocked bootstrap state. Called by the
// recovery supervisor on signal loss.
func (c *Classifier) Reset() {
	*c = Classifier{cfg: c.cfg}
}
