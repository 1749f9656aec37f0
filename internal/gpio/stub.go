//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/mirror-sync/internal/pattern"
	"github.com/sweeney/mirror-sync/internal/pulse"
)

var errNotSupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealEdgeSource is not available on non-Linux platforms.
type RealEdgeSource struct{}

// NewRealEdgeSource returns a stub on non-Linux platforms.
func NewRealEdgeSource(chipName string, pin int) *RealEdgeSource {
	return &RealEdgeSource{}
}

// Start is not implemented on non-Linux platforms.
func (s *RealEdgeSource) Start(h EdgeHandler) error {
	return errNotSupported
}

// Close is not implemented on non-Linux platforms.
func (s *RealEdgeSource) Close() error {
	return nil
}

// RealPlayback is not available on non-Linux platforms.
type RealPlayback struct{}

// NewRealPlayback returns an error on non-Linux platforms.
func NewRealPlayback(chipName string, pinR, pinG, pinB int) (*RealPlayback, error) {
	return nil, errNotSupported
}

// Play is not implemented on non-Linux platforms.
func (p *RealPlayback) Play(seqs [pattern.NumChannels][]pulse.Segment) error {
	return errNotSupported
}

// Idle is not implemented on non-Linux platforms.
func (p *RealPlayback) Idle() error {
	return nil
}

// Dropped is not implemented on non-Linux platforms.
func (p *RealPlayback) Dropped() uint64 {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (p *RealPlayback) Close() error {
	return nil
}
