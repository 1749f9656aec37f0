package pulse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/mirror-sync/internal/pattern"
)

func defaultParams() Params {
	return Params{
		SweepUs:      130,
		PulseWidthUs: 1,
		MinSpacingUs: 1,
	}
}

// activeOffsets returns the start offset and width of each active segment.
func activeOffsets(segs []Segment) [][2]int64 {
	var out [][2]int64
	var at int64
	for _, s := range segs {
		if s.Active {
			out = append(out, [2]int64{at, s.DurationUs})
		}
		at += s.DurationUs
	}
	return out
}

func assertWellFormed(t *testing.T, segs []Segment, sweepUs int64) {
	t.Helper()
	require.NotEmpty(t, segs)
	assert.Equal(t, sweepUs, Sum(segs), "segments must sum exactly to the sweep duration")
	assert.False(t, segs[0].Active, "sequence must begin idle")
	assert.False(t, segs[len(segs)-1].Active, "sequence must end idle")
	for i := 1; i < len(segs); i++ {
		assert.NotEqual(t, segs[i-1].Active, segs[i].Active, "segments must strictly alternate at %d", i)
	}
}

func TestBuildEndToEndScenario(t *testing.T) {
	points := []pattern.Point{
		{IdxNorm: 0, Mask: pattern.MaskR},
		{IdxNorm: 32768, Mask: pattern.MaskG},
		{IdxNorm: 65535, Mask: pattern.MaskB},
	}

	tests := []struct {
		name       string
		ch         int
		wantOffset int64
	}{
		{"red at sweep start", 0, 0},
		{"green mid sweep", 1, 64},
		{"blue at sweep end", 2, 129},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Build(tt.ch, points, defaultParams())
			assertWellFormed(t, res.Segments, 130)
			require.Equal(t, 1, res.Accepted)

			act := activeOffsets(res.Segments)
			require.Len(t, act, 1)
			assert.Equal(t, tt.wantOffset, act[0][0])
			assert.Equal(t, int64(1), act[0][1])
		})
	}
}

func TestBuildPositionMappingMonotonic(t *testing.T) {
	points := []pattern.Point{
		{IdxNorm: 0, Mask: pattern.MaskR},
		{IdxNorm: 9000, Mask: pattern.MaskR},
		{IdxNorm: 9001, Mask: pattern.MaskR},
		{IdxNorm: 30000, Mask: pattern.MaskR},
		{IdxNorm: 65535, Mask: pattern.MaskR},
	}
	p := defaultParams()
	p.SweepUs = 5000
	p.MinSpacingUs = 0

	res := Build(0, points, p)
	assertWellFormed(t, res.Segments, p.SweepUs)

	act := activeOffsets(res.Segments)
	require.Len(t, act, len(points))
	for i := 1; i < len(act); i++ {
		assert.GreaterOrEqual(t, act[i][0], act[i-1][0], "mapped offsets must be monotonic")
	}
}

func TestBuildSpacingEnforcedByRejection(t *testing.T) {
	// Two points 1us apart in a 1000us sweep, spacing 50us: the second is
	// rejected, never moved.
	points := []pattern.Point{
		{IdxNorm: 6554, Mask: pattern.MaskR},  // ~100us
		{IdxNorm: 6620, Mask: pattern.MaskR},  // ~101us
		{IdxNorm: 13108, Mask: pattern.MaskR}, // ~200us
	}
	p := defaultParams()
	p.SweepUs = 1000
	p.MinSpacingUs = 50

	res := Build(0, points, p)
	assertWellFormed(t, res.Segments, p.SweepUs)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Rejected)

	act := activeOffsets(res.Segments)
	require.Len(t, act, 2)
	assert.GreaterOrEqual(t, act[1][0]-act[0][0], int64(50))
}

func TestBuildUnsortedInputSkipsOutOfOrder(t *testing.T) {
	points := []pattern.Point{
		{IdxNorm: 30000, Mask: pattern.MaskR},
		{IdxNorm: 10000, Mask: pattern.MaskR}, // out of order: skipped
		{IdxNorm: 60000, Mask: pattern.MaskR},
	}
	p := defaultParams()
	p.SweepUs = 1000

	res := Build(0, points, p)
	assertWellFormed(t, res.Segments, p.SweepUs)
	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, 1, res.Rejected)

	act := activeOffsets(res.Segments)
	require.Len(t, act, 2)
	assert.Less(t, act[0][0], act[1][0])
}

func TestBuildCollisionPushesForward(t *testing.T) {
	// Identical positions with zero min spacing: the later pulse is pushed
	// past the earlier pulse's tail plus a one-tick separator.
	points := []pattern.Point{
		{IdxNorm: 32768, Mask: pattern.MaskR},
		{IdxNorm: 32768, Mask: pattern.MaskR},
	}
	p := defaultParams()
	p.SweepUs = 1000
	p.PulseWidthUs = 5
	p.MinSpacingUs = 0

	res := Build(0, points, p)
	assertWellFormed(t, res.Segments, p.SweepUs)
	require.Equal(t, 2, res.Accepted)

	act := activeOffsets(res.Segments)
	require.Len(t, act, 2)
	assert.Equal(t, act[0][0]+5+1, act[1][0], "second pulse starts after tail plus separator")
}

func TestBuildChannelFiltering(t *testing.T) {
	points := []pattern.Point{
		{IdxNorm: 1000, Mask: pattern.MaskR},
		{IdxNorm: 2000, Mask: pattern.MaskG},
		{IdxNorm: 3000, Mask: pattern.MaskR | pattern.MaskB},
	}
	p := defaultParams()
	p.SweepUs = 10000

	for ch, want := range []int{2, 1, 1} {
		res := Build(ch, points, p)
		assertWellFormed(t, res.Segments, p.SweepUs)
		assert.Equal(t, want, res.Accepted, "channel %d", ch)
	}
}

func TestBuildExtraOffsetAndClamp(t *testing.T) {
	points := []pattern.Point{
		{IdxNorm: 0, Mask: pattern.MaskR},
		{IdxNorm: 65535, Mask: pattern.MaskR},
	}
	p := defaultParams()
	p.SweepUs = 100
	p.ExtraOffsetUs = 30
	p.MinSpacingUs = 0

	res := Build(0, points, p)
	assertWellFormed(t, res.Segments, p.SweepUs)
	require.Equal(t, 2, res.Accepted)

	act := activeOffsets(res.Segments)
	require.Len(t, act, 2)
	assert.Equal(t, int64(30), act[0][0])
	// 99+30 clamps to the last tick of the sweep.
	assert.Equal(t, int64(99), act[1][0])
	// Clamped pulse width still ends inside the sweep.
	assert.Equal(t, int64(1), act[1][1])
}

func TestBuildPulseAtSweepEndClampsWidth(t *testing.T) {
	points := []pattern.Point{{IdxNorm: 65535, Mask: pattern.MaskR}}
	p := defaultParams()
	p.SweepUs = 100
	p.PulseWidthUs = 10

	res := Build(0, points, p)
	assertWellFormed(t, res.Segments, p.SweepUs)

	act := activeOffsets(res.Segments)
	require.Len(t, act, 1)
	assert.Equal(t, int64(99), act[0][0])
	assert.Equal(t, int64(1), act[0][1])
}

func TestBuildSegmentBoundTruncates(t *testing.T) {
	// Far more points than the segment budget allows.
	var points []pattern.Point
	for i := 0; i < 200; i++ {
		points = append(points, pattern.Point{IdxNorm: uint16(i * 300), Mask: pattern.MaskR})
	}
	p := defaultParams()
	p.SweepUs = 100000
	p.MaxSegments = 16

	res := Build(0, points, p)
	assertWellFormed(t, res.Segments, p.SweepUs)
	assert.True(t, res.Truncated)
	assert.LessOrEqual(t, len(res.Segments), 16)
	// Reserved final pad keeps the sum invariant even when truncated.
	assert.Equal(t, p.SweepUs, Sum(res.Segments))
}

func TestBuildEmptyInputs(t *testing.T) {
	p := defaultParams()

	res := Build(0, nil, p)
	assertWellFormed(t, res.Segments, p.SweepUs)
	assert.Zero(t, res.Accepted)

	res = Build(0, []pattern.Point{{IdxNorm: 100, Mask: pattern.MaskG}}, p)
	assertWellFormed(t, res.Segments, p.SweepUs)
	assert.Zero(t, res.Accepted, "point on another channel is ignored entirely")
	assert.Zero(t, res.Rejected)
}

func TestBuildZeroSweepReturnsNothing(t *testing.T) {
	res := Build(0, []pattern.Point{{IdxNorm: 0, Mask: pattern.MaskR}}, Params{SweepUs: 0})
	assert.Empty(t, res.Segments)
}

func TestBuildSumInvariantAcrossInputs(t *testing.T) {
	// A spread of awkward point sets; the sum invariant must hold for all.
	sets := [][]pattern.Point{
		nil,
		{{IdxNorm: 0, Mask: pattern.MaskAll}},
		{{IdxNorm: 65535, Mask: pattern.MaskAll}},
		{{IdxNorm: 0, Mask: pattern.MaskR}, {IdxNorm: 0, Mask: pattern.MaskR}, {IdxNorm: 0, Mask: pattern.MaskR}},
		pattern.TestPattern(100),
		pattern.TestPattern(1024),
	}
	params := []Params{
		{SweepUs: 130, PulseWidthUs: 1, MinSpacingUs: 1},
		{SweepUs: 997, PulseWidthUs: 3, MinSpacingUs: 2, ExtraOffsetUs: 11},
		{SweepUs: 50000, PulseWidthUs: 7, MinSpacingUs: 0, MaxSegments: 32},
	}

	for si, points := range sets {
		for pi, p := range params {
			for ch := 0; ch < pattern.NumChannels; ch++ {
				res := Build(ch, points, p)
				require.Equal(t, p.SweepUs, Sum(res.Segments),
					"set %d params %d channel %d", si, pi, ch)
			}
		}
	}
}
