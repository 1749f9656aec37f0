// Package adc reads the analog direction-feedback channel. The real
// implementation uses the Linux IIO sysfs interface; the fake allows testing
// without hardware. Implementations satisfy timing.AnalogSampler.
package adc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// IIOSampler reads raw ADC counts from an IIO voltage channel, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type IIOSampler struct {
	path string
}

// NewIIOSampler creates a sampler for the given IIO device and voltage
// channel indices.
func NewIIOSampler(device, channel int) *IIOSampler {
	return &IIOSampler{
		path: fmt.Sprintf("/sys/bus/iio/devices/iio:device%d/in_voltage%d_raw", device, channel),
	}
}

// Sample reads one raw ADC value.
func (s *IIOSampler) Sample() (int32, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("read adc: %w", err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse adc value %q: %w", strings.TrimSpace(string(data)), err)
	}
	return int32(v), nil
}
