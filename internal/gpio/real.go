//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/mirror-sync/internal/pattern"
	"github.com/sweeney/mirror-sync/internal/pulse"
)

// RealEdgeSource captures timing-mark edges from actual hardware using the
// Linux GPIO character device. Event timestamps come from the kernel's
// monotonic event clock, so inter-edge intervals are unaffected by handler
// scheduling latency.
type RealEdgeSource struct {
	chipName string
	pin      int

	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealEdgeSource creates an edge source for the given chip and pin.
// No hardware is touched until Start.
func NewRealEdgeSource(chipName string, pin int) *RealEdgeSource {
	return &RealEdgeSource{chipName: chipName, pin: pin}
}

// Start requests the line with both-edge detection and begins delivering
// events to h from the chardev event goroutine.
func (s *RealEdgeSource) Start(h EdgeHandler) error {
	chip, err := gpiocdev.NewChip(s.chipName)
	if err != nil {
		return fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(s.pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithMonotonicEventClock,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			h(evt.Timestamp.Microseconds(), evt.Type == gpiocdev.LineEventRisingEdge)
		}))
	if err != nil {
		chip.Close()
		return fmt.Errorf("request mark pin %d: %w", s.pin, err)
	}

	s.chip = chip
	s.line = line
	return nil
}

// Close releases the line and chip.
func (s *RealEdgeSource) Close() error {
	var errs []error
	if s.line != nil {
		if err := s.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mark pin: %w", err))
		}
		s.line = nil
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		s.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealPlayback drives the TTL output lines through the GPIO character device.
//
// Segment timing is paced with the Go runtime timer, which carries scheduler
// jitter; deployments that need tick-exact output hand the built sequences to
// a timer peripheral instead and use this as the fallback path. The playback
// contract (trigger-and-forget, drop when busy, idle wins) is the same either
// way.
type RealPlayback struct {
	chip  *gpiocdev.Chip
	lines [pattern.NumChannels]*gpiocdev.Line

	// gen is bumped by Idle to cancel in-flight sequences.
	gen     atomic.Uint64
	playing atomic.Bool
	dropped atomic.Uint64

	wg sync.WaitGroup
}

// NewRealPlayback requests the three TTL output lines, driven low.
func NewRealPlayback(chipName string, pinR, pinG, pinB int) (*RealPlayback, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	p := &RealPlayback{chip: chip}
	for i, pin := range []int{pinR, pinG, pinB} {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request ttl pin %d: %w", pin, err)
		}
		p.lines[i] = line
	}
	return p, nil
}

// Play triggers one window's sequences. Drops the trigger if the previous
// window is still playing.
func (p *RealPlayback) Play(seqs [pattern.NumChannels][]pulse.Segment) error {
	if !p.playing.CompareAndSwap(false, true) {
		p.dropped.Add(1)
		return nil
	}

	gen := p.gen.Load()
	var windowWG sync.WaitGroup
	for ch := range seqs {
		segs := seqs[ch]
		line := p.lines[ch]
		windowWG.Add(1)
		p.wg.Add(1)
		go func() {
			defer windowWG.Done()
			defer p.wg.Done()
			p.playChannel(line, segs, gen)
		}()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		windowWG.Wait()
		p.playing.Store(false)
	}()
	return nil
}

func (p *RealPlayback) playChannel(line *gpiocdev.Line, segs []pulse.Segment, gen uint64) {
	for _, seg := range segs {
		if p.gen.Load() != gen {
			break
		}
		if seg.DurationUs == 0 {
			continue
		}
		level := 0
		if seg.Active {
			level = 1
		}
		line.SetValue(level)
		time.Sleep(time.Duration(seg.DurationUs) * time.Microsecond)
	}
	line.SetValue(0)
}

// Idle cancels any in-flight sequences and forces all channels low.
func (p *RealPlayback) Idle() error {
	p.gen.Add(1)
	var errs []error
	for i, line := range p.lines {
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("idle channel %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("idle errors: %v", errs)
	}
	return nil
}

// Dropped returns how many window triggers were dropped because the previous
// window was still playing.
func (p *RealPlayback) Dropped() uint64 {
	return p.dropped.Load()
}

// Close forces idle, waits for in-flight goroutines, and releases resources.
func (p *RealPlayback) Close() error {
	p.Idle()
	p.wg.Wait()

	var errs []error
	for i, line := range p.lines {
		if line == nil {
			continue
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %d: %w", i, err))
		}
		p.lines[i] = nil
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		p.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
