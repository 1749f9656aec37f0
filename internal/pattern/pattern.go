// Package pattern owns the double-buffered dot pattern shared between the
// command context (writer) and the real-time loop (reader). Two fixed-capacity
// generations hold the points; which one is active is a single atomic word,
// and only the reader ever flips it, at a reader-chosen safe point in the
// timing cycle.
package pattern

import (
	"sync"
	"sync/atomic"
)

// Capacity is the maximum number of points per generation. Uploads beyond
// capacity are truncated, not an error.
const Capacity = 1024

// NumChannels is the number of TTL output channels.
const NumChannels = 3

// Mask is a set of output channels, one bit per channel.
type Mask uint8

const (
	MaskR Mask = 1 << iota
	MaskG
	MaskB
	// MaskAll activates every channel at the same position.
	MaskAll = MaskR | MaskG | MaskB
)

// Has reports whether channel ch (0-based) is in the set.
func (m Mask) Has(ch int) bool {
	return m&(1<<ch) != 0
}

// Point is one dot: a position normalized to [0, 65535] independent of the
// absolute sweep duration, plus the channels to pulse there.
type Point struct {
	IdxNorm uint16
	Mask    Mask
}

// state word layout: bit 0 is the active generation index, bit 1 is the
// pending-swap flag. Keeping both in one word lets the reader flip the index
// and consume the request in a single compare-and-swap.
const (
	stateActiveBit  = 1 << 0
	statePendingBit = 1 << 1
)

// Buffer holds the two generations.
//
// Synchronization contract: the writer fills the inactive generation and then
// requests a swap; the reader performs the swap. A new upload cancels any
// not-yet-executed swap request before writing, so the reader can never flip
// mid-write. Plain generation data is published to the reader through the
// atomic state word.
type Buffer struct {
	gens   [2][Capacity]Point
	counts [2]int

	state atomic.Uint32

	// writeMu serializes concurrent writers; the reader never takes it.
	writeMu sync.Mutex

	uploaded atomic.Int64
	accepted atomic.Int64
	swaps    atomic.Uint64
}

// NewBuffer creates an empty buffer with generation 0 active.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// WriteInactive replaces the contents of the inactive generation and returns
// the number of points accepted (truncated at Capacity). Always permitted,
// from the writer context only. A pending swap that has not executed yet is
// cancelled: the caller is expected to request a fresh swap once the upload
// is complete.
func (b *Buffer) WriteInactive(points []Point) int {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.CancelSwap()
	idx := 1 - b.ActiveIndex()

	n := len(points)
	if n > Capacity {
		n = Capacity
	}
	copy(b.gens[idx][:n], points[:n])
	b.counts[idx] = n

	b.uploaded.Store(int64(len(points)))
	b.accepted.Store(int64(n))
	return n
}

// RequestSwap marks the inactive generation as ready to become active.
// Idempotent; the flip itself happens in MaybeSwap.
func (b *Buffer) RequestSwap() {
	for {
		s := b.state.Load()
		if s&statePendingBit != 0 || b.state.CompareAndSwap(s, s|statePendingBit) {
			return
		}
	}
}

// MaybeSwap flips the active generation if a swap is pending. Called only by
// the reader, only when the classifier's current label is the gap region.
// Returns whether a swap occurred. The flip and the consumption of the
// request are one atomic transition.
func (b *Buffer) MaybeSwap() bool {
	for {
		s := b.state.Load()
		if s&statePendingBit == 0 {
			return false
		}
		if b.state.CompareAndSwap(s, (s^stateActiveBit)&stateActiveBit) {
			b.swaps.Add(1)
			return true
		}
	}
}

// CancelSwap withdraws a swap request that has not executed yet. Idempotent.
func (b *Buffer) CancelSwap() {
	for {
		s := b.state.Load()
		if s&statePendingBit == 0 || b.state.CompareAndSwap(s, s&^uint32(statePendingBit)) {
			return
		}
	}
}

// ActiveIndex returns the generation the reader consumes, 0 or 1.
func (b *Buffer) ActiveIndex() int {
	return int(b.state.Load() & stateActiveBit)
}

// SwapPending reports whether a swap request is waiting for the gap region.
func (b *Buffer) SwapPending() bool {
	return b.state.Load()&statePendingBit != 0
}

// ActiveCount returns the number of points in the active generation.
func (b *Buffer) ActiveCount() int {
	return b.counts[b.ActiveIndex()]
}

// ActivePoints returns the active generation's points. The slice aliases the
// generation storage: the reader must use it before the next MaybeSwap it
// performs, which it does by construction (one build per window).
func (b *Buffer) ActivePoints() []Point {
	idx := b.ActiveIndex()
	return b.gens[idx][:b.counts[idx]]
}

// Swaps returns the total number of executed swaps.
func (b *Buffer) Swaps() uint64 {
	return b.swaps.Load()
}

// UploadStats returns the size of the last upload as requested and as
// accepted after truncation. Exposed so a collaborator can detect overflow.
func (b *Buffer) UploadStats() (uploaded, accepted int64) {
	return b.uploaded.Load(), b.accepted.Load()
}

// TestPattern returns n evenly spaced all-channel points across the sweep,
// the built-in pattern used when dots.testPatternEnable is set. n is clamped
// to [1, Capacity]; a single point lands mid-sweep.
func TestPattern(n int) []Point {
	if n < 1 {
		n = 1
	}
	if n > Capacity {
		n = Capacity
	}
	if n == 1 {
		return []Point{{IdxNorm: 32768, Mask: MaskAll}}
	}
	points := make([]Point, n)
	for i := range points {
		points[i] = Point{
			IdxNorm: uint16(i * 65535 / (n - 1)),
			Mask:    MaskAll,
		}
	}
	return points
}
