package engine

import "sync/atomic"

// Mailbox is the single-slot handoff from the edge-capture callback to the
// real-time loop: single producer, single consumer. The producer overwrites
// the slot; the consumer drains it once per poll. The loop polls faster than
// marks arrive, so an overwritten unread slot is a diagnostic, not a fault.
type Mailbox struct {
	ts  atomic.Int64
	seq atomic.Uint64

	// consumer-side only
	lastSeq  uint64
	overruns uint64
}

// Put publishes a new edge timestamp. Producer side only.
func (m *Mailbox) Put(tsUs int64) {
	m.ts.Store(tsUs)
	m.seq.Add(1)
}

// Take drains the slot. Consumer side only. Returns the freshest published
// timestamp and whether anything new was published since the last Take.
func (m *Mailbox) Take() (int64, bool) {
	s := m.seq.Load()
	if s == m.lastSeq {
		return 0, false
	}
	if missed := s - m.lastSeq - 1; missed > 0 {
		m.overruns += missed
	}
	m.lastSeq = s
	return m.ts.Load(), true
}

// Overruns returns how many published timestamps were overwritten unread.
// Consumer side only.
func (m *Mailbox) Overruns() uint64 {
	return m.overruns
}
