package timing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSampler returns canned values in order, repeating the last one.
type scriptedSampler struct {
	values []int32
	index  int
	err    error
}

func (s *scriptedSampler) Sample() (int32, error) {
	if s.err != nil {
		return 0, s.err
	}
	v := s.values[s.index]
	if s.index < len(s.values)-1 {
		s.index++
	}
	return v, nil
}

func noDelay(int64) {}

func TestDirectionConsistency(t *testing.T) {
	tests := []struct {
		name                 string
		v0, v1               int32
		forwardSlopePositive bool
		wantSlope            int32
		wantForward          bool
	}{
		{"positive slope, positive polarity", 100, 152, true, 52, true},
		{"negative slope, positive polarity", 152, 100, true, -52, false},
		{"positive slope, negative polarity", 100, 152, false, 52, false},
		{"negative slope, negative polarity", 152, 100, false, -52, true},
		{"flat slope, positive polarity", 120, 120, true, 0, false},
		{"flat slope, negative polarity", 120, 120, false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DirectionConfig{ForwardSlopePositive: tt.forwardSlopePositive, SettleDelayUs: 5}
			e := NewDirectionEstimator(cfg, &scriptedSampler{values: []int32{tt.v0, tt.v1}}, noDelay)

			s, err := e.SampleDirection()
			require.NoError(t, err)
			assert.Equal(t, tt.v0, s.V0)
			assert.Equal(t, tt.v1, s.V1)
			assert.Equal(t, tt.wantSlope, s.Slope)
			assert.Equal(t, tt.wantForward, s.Forward)
		})
	}
}

func TestDirectionPolarityFlipAtRuntime(t *testing.T) {
	e := NewDirectionEstimator(DefaultDirectionConfig(), &scriptedSampler{values: []int32{100, 152, 100, 152}}, noDelay)

	s, err := e.SampleDirection()
	require.NoError(t, err)
	require.True(t, s.Forward)

	e.SetForwardSlopePositive(false)
	s, err = e.SampleDirection()
	require.NoError(t, err)
	assert.False(t, s.Forward, "same raw slope must invert with polarity")
}

func TestDirectionDelayBetweenReads(t *testing.T) {
	var delays []int64
	cfg := DirectionConfig{ForwardSlopePositive: true, SettleDelayUs: 25}
	e := NewDirectionEstimator(cfg, &scriptedSampler{values: []int32{1, 2}}, func(us int64) {
		delays = append(delays, us)
	})

	_, err := e.SampleDirection()
	require.NoError(t, err)
	assert.Equal(t, []int64{25}, delays)
}

func TestDirectionSampleError(t *testing.T) {
	wantErr := errors.New("adc busted")
	e := NewDirectionEstimator(DefaultDirectionConfig(), &scriptedSampler{err: wantErr}, noDelay)

	_, err := e.SampleDirection()
	require.ErrorIs(t, err, wantErr)

	_, ok := e.Last()
	assert.False(t, ok, "failed sample must not be retained")
}

func TestDirectionLastRetained(t *testing.T) {
	e := NewDirectionEstimator(DefaultDirectionConfig(), &scriptedSampler{values: []int32{10, 30}}, noDelay)

	_, ok := e.Last()
	require.False(t, ok)

	want, err := e.SampleDirection()
	require.NoError(t, err)

	got, ok := e.Last()
	require.True(t, ok)
	assert.Equal(t, want, got)
}
