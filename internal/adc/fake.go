package adc

import "errors"

// FakeSampler is a test double that returns scripted ADC values.
type FakeSampler struct {
	// Values contains scripted readings. Each call to Sample consumes the
	// next value; when exhausted, the last value repeats.
	Values []int32

	// index tracks current position in Values
	index int

	// SampleError, if set, will be returned by Sample.
	SampleError error
}

// NewFakeSampler creates a FakeSampler with the given values.
func NewFakeSampler(values []int32) *FakeSampler {
	return &FakeSampler{Values: values}
}

// Sample returns the next scripted value.
func (f *FakeSampler) Sample() (int32, error) {
	if f.SampleError != nil {
		return 0, f.SampleError
	}
	if len(f.Values) == 0 {
		return 0, errors.New("no values configured")
	}
	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	return v, nil
}

// Reset resets the sampler to the beginning of the values.
func (f *FakeSampler) Reset() {
	f.index = 0
}
