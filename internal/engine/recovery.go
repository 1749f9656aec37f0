package engine

// RecoveryState is the watchdog state of the timing-mark signal.
type RecoveryState uint8

const (
	StateArmedNormal RecoveryState = iota
	StateSignalLost
)

// String returns the label used in telemetry.
func (s RecoveryState) String() string {
	if s == StateSignalLost {
		return "SIGNAL_LOST"
	}
	return "ARMED_NORMAL"
}

// Supervisor watches for loss of timing marks. Owned by the real-time loop;
// the loss timeout is read from Params so the command context can retune it.
// Time here is the loop's own monotonic clock, not the kernel edge clock:
// what matters is how long the loop has gone without seeing an edge arrive.
type Supervisor struct {
	state      RecoveryState
	lastEdgeUs int64
	haveEdge   bool
	losses     uint64
}

// NewSupervisor creates a supervisor in ARMED_NORMAL with no edge seen.
func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// NoteEdge records an accepted edge at the given loop time and returns true
// if this edge ended a SIGNAL_LOST interval. Recovery needs no explicit
// acknowledgment.
func (s *Supervisor) NoteEdge(nowUs int64) bool {
	s.lastEdgeUs = nowUs
	s.haveEdge = true
	if s.state == StateSignalLost {
		s.state = StateArmedNormal
		return true
	}
	return false
}

// Check transitions to SIGNAL_LOST when the timeout has elapsed since the
// last edge, returning true exactly on the transition. Before the first edge
// there is nothing to lose.
func (s *Supervisor) Check(nowUs, timeoutUs int64) bool {
	if s.state != StateArmedNormal || !s.haveEdge {
		return false
	}
	if nowUs-s.lastEdgeUs <= timeoutUs {
		return false
	}
	s.state = StateSignalLost
	s.losses++
	return true
}

// State returns the current state.
func (s *Supervisor) State() RecoveryState {
	return s.state
}

// Losses returns how many times the signal has been lost since startup.
func (s *Supervisor) Losses() uint64 {
	return s.losses
}
