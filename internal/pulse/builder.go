// Package pulse builds hardware-timed pulse sequences: per output channel, an
// ordered list of idle/active segments covering exactly one sweep, ready for
// playback without further intervention once triggered.
package pulse

import (
	"github.com/sweeney/mirror-sync/internal/pattern"
)

// Segment is one step of a channel's playback timeline.
type Segment struct {
	DurationUs int64
	Active     bool
}

// DefaultMaxSegments matches the playback depth of the pulse peripherals this
// was written for (RMT-class, 64 entries).
const DefaultMaxSegments = 64

// Params are the per-window build inputs.
type Params struct {
	SweepUs       int64
	PulseWidthUs  int64
	ExtraOffsetUs int64
	MinSpacingUs  int64
	// MaxSegments bounds the output length; 0 means DefaultMaxSegments.
	MaxSegments int
}

// Result is one channel's built sequence plus accounting for telemetry.
type Result struct {
	Segments []Segment
	// Accepted and Rejected count points carrying this channel's bit.
	Accepted int
	Rejected int
	// Truncated is set when the segment bound stopped the build early; the
	// remainder of the sweep plays idle.
	Truncated bool
}

// Build maps each point carrying channel ch onto the sweep timeline.
//
// Points are consumed in stored order; callers keep them sorted by IdxNorm
// for correct output, but unsorted input is tolerated: a point whose mapped
// offset violates the minimum spacing against the previously accepted one
// (including any out-of-order point) is skipped, never moved backward.
//
// The returned segments strictly alternate idle/active, begin and end idle
// (zero-duration idles are permitted so the alternation holds at the sweep
// boundaries), and always sum exactly to SweepUs.
func Build(ch int, points []pattern.Point, p Params) Result {
	var res Result
	if p.SweepUs <= 0 {
		return res
	}

	maxSegments := p.MaxSegments
	if maxSegments <= 0 {
		maxSegments = DefaultMaxSegments
	}
	width := p.PulseWidthUs
	if width < 1 {
		width = 1
	}

	segs := make([]Segment, 0, maxSegments)
	elapsed := int64(0) // sum of emitted segment durations
	lastOffset := int64(-1)

	for _, pt := range points {
		if !pt.Mask.Has(ch) {
			continue
		}

		offset := int64(pt.IdxNorm)*(p.SweepUs-1)/65535 + p.ExtraOffsetUs
		if offset < 0 {
			offset = 0
		}
		if offset > p.SweepUs-1 {
			offset = p.SweepUs - 1
		}

		if lastOffset >= 0 && offset-lastOffset < p.MinSpacingUs {
			res.Rejected++
			continue
		}

		// Push forward past the previous pulse's tail plus a one-tick
		// separator rather than overlapping it.
		if cursor := elapsed + 1; lastOffset >= 0 && offset < cursor {
			offset = cursor
		}
		if offset > p.SweepUs-1 {
			// Pushed off the end of the sweep; nothing later fits either.
			res.Rejected++
			break
		}

		// Reserve room for this idle+active pair and the final idle pad.
		if len(segs)+2 > maxSegments-1 {
			res.Truncated = true
			break
		}

		w := width
		if offset+w > p.SweepUs {
			w = p.SweepUs - offset
		}

		segs = append(segs,
			Segment{DurationUs: offset - elapsed, Active: false},
			Segment{DurationUs: w, Active: true},
		)
		elapsed = offset + w
		lastOffset = offset
		res.Accepted++
	}

	segs = append(segs, Segment{DurationUs: p.SweepUs - elapsed, Active: false})
	res.Segments = segs
	return res
}

// Sum returns the total duration of a segment list.
func Sum(segs []Segment) int64 {
	var total int64
	for _, s := range segs {
		total += s.DurationUs
	}
	return total
}
