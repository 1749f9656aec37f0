package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/mirror-sync/internal/pattern"
	"github.com/sweeney/mirror-sync/internal/pulse"
)

// FakeEdgeSource is a test double that hands edges to the registered handler
// on demand.
type FakeEdgeSource struct {
	mu      sync.Mutex
	handler EdgeHandler

	// Started and Closed track lifecycle calls.
	Started bool
	Closed  bool

	// StartError, if set, is returned by Start.
	StartError error
}

// NewFakeEdgeSource creates a FakeEdgeSource.
func NewFakeEdgeSource() *FakeEdgeSource {
	return &FakeEdgeSource{}
}

// Start registers the handler.
func (f *FakeEdgeSource) Start(h EdgeHandler) error {
	if f.StartError != nil {
		return f.StartError
	}
	f.mu.Lock()
	f.handler = h
	f.Started = true
	f.mu.Unlock()
	return nil
}

// Emit delivers one scripted edge to the handler, as the capture goroutine
// would.
func (f *FakeEdgeSource) Emit(timestampUs int64, rising bool) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(timestampUs, rising)
	}
}

// Close marks the source as closed.
func (f *FakeEdgeSource) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.handler = nil
	f.mu.Unlock()
	return nil
}

// FakePlayback records triggered sequences for test assertions.
type FakePlayback struct {
	mu sync.Mutex

	// Played contains every triggered window in order.
	Played [][pattern.NumChannels][]pulse.Segment

	// IdleCalls counts Idle invocations.
	IdleCalls int

	// Closed tracks if Close was called.
	Closed bool

	// PlayError, if set, is returned by Play.
	PlayError error

	// DroppedWindows is returned by Dropped, for tests that assert the
	// counter is surfaced.
	DroppedWindows uint64
}

// NewFakePlayback creates a FakePlayback.
func NewFakePlayback() *FakePlayback {
	return &FakePlayback{}
}

// Play records the window.
func (f *FakePlayback) Play(seqs [pattern.NumChannels][]pulse.Segment) error {
	if f.PlayError != nil {
		return f.PlayError
	}
	f.mu.Lock()
	f.Played = append(f.Played, seqs)
	f.mu.Unlock()
	return nil
}

// Idle records the call.
func (f *FakePlayback) Idle() error {
	f.mu.Lock()
	f.IdleCalls++
	f.mu.Unlock()
	return nil
}

// Dropped returns the scripted drop count.
func (f *FakePlayback) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.DroppedWindows
}

// Close marks the playback as closed.
func (f *FakePlayback) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// PlayedCount returns the number of triggered windows.
func (f *FakePlayback) PlayedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Played)
}

// LastPlayed returns the most recent window, or an error if none played.
func (f *FakePlayback) LastPlayed() ([pattern.NumChannels][]pulse.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Played) == 0 {
		return [pattern.NumChannels][]pulse.Segment{}, errors.New("nothing played")
	}
	return f.Played[len(f.Played)-1], nil
}

// Reset clears recorded state.
func (f *FakePlayback) Reset() {
	f.mu.Lock()
	f.Played = nil
	f.IdleCalls = 0
	f.Closed = false
	f.DroppedWindows = 0
	f.mu.Unlock()
}
