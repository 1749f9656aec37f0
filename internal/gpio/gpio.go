// Package gpio provides the hardware boundary of the scanner: timing-mark
// edge capture and TTL pulse playback, with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

import (
	"github.com/sweeney/mirror-sync/internal/pattern"
	"github.com/sweeney/mirror-sync/internal/pulse"
)

// EdgeHandler receives one timing-mark edge: a monotonic kernel timestamp in
// microseconds and the transition direction. It is called from the capture
// goroutine and must return quickly.
type EdgeHandler func(timestampUs int64, rising bool)

// EdgeSource delivers timing-mark edges from the position-sensitive detector.
type EdgeSource interface {
	// Start begins edge delivery to h.
	Start(h EdgeHandler) error

	// Close stops delivery and releases resources.
	Close() error
}

// Playback plays pulse sequences on the TTL output channels. Play is called
// from the real-time loop; Idle may additionally be called from the command
// context (disarm) and must be safe against an in-flight sequence.
type Playback interface {
	// Play triggers one sweep window's sequences, one per channel. If a
	// previous window is still playing the new trigger is dropped and
	// counted, not queued.
	Play(seqs [pattern.NumChannels][]pulse.Segment) error

	// Idle cancels any in-flight playback and forces all channels low.
	Idle() error

	// Dropped returns how many window triggers were dropped because a
	// previous window was still playing.
	Dropped() uint64

	// Close forces idle and releases resources.
	Close() error
}

// Pin definitions (BCM numbering).
const (
	DefaultPinMark = 17 // timing-mark input from the detector
	DefaultPinR    = 22 // TTL output, red channel
	DefaultPinG    = 23 // TTL output, green channel
	DefaultPinB    = 24 // TTL output, blue channel
)
