package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepFilterSeedsOnFirstWindow(t *testing.T) {
	f := NewSweepFilter(DefaultSweepFilterConfig())

	require.Zero(t, f.FilteredUs())
	require.True(t, f.OnForwardWindow(130))
	assert.Equal(t, int64(130), f.FilteredUs())
}

func TestSweepFilterMovesByExactEMAStep(t *testing.T) {
	cfg := DefaultSweepFilterConfig()
	f := NewSweepFilter(cfg)
	require.True(t, f.OnForwardWindow(130))

	tests := []struct {
		name  string
		rawUs int64
	}{
		{"faster sweep", 110},
		{"slower sweep", 180},
		{"identical sweep", 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.FilteredUs()
			require.True(t, f.OnForwardWindow(tt.rawUs))
			want := before + (tt.rawUs-before)>>cfg.Shift
			assert.Equal(t, want, f.FilteredUs())
		})
	}
}

func TestSweepFilterRejectsOutliers(t *testing.T) {
	cfg := SweepFilterConfig{Shift: 2, MinUs: 50, MaxUs: 100000}
	f := NewSweepFilter(cfg)
	require.True(t, f.OnForwardWindow(130))

	tests := []struct {
		name  string
		rawUs int64
	}{
		{"below band", 49},
		{"zero", 0},
		{"negative", -130},
		{"above band", 100001},
		{"absurd", 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, f.OnForwardWindow(tt.rawUs))
			assert.Equal(t, int64(130), f.FilteredUs(), "outlier must retain previous value")
		})
	}
}

func TestSweepFilterReset(t *testing.T) {
	f := NewSweepFilter(DefaultSweepFilterConfig())
	require.True(t, f.OnForwardWindow(130))

	f.Reset()
	assert.Zero(t, f.FilteredUs())
}
