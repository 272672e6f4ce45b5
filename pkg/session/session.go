package session

import (
	"sync"
	"time"
)

// State is the lifecycle position of a session.
type State int

const (
	// StateConnecting covers admission through the welcome heartbeat.
	StateConnecting State = iota

	// StateActive is the normal message-exchanging state.
	StateActive

	// StateClosing marks a session deactivated (timed out or
	// disconnected) whose record is retained for the removal grace.
	StateClosing

	// StateClosed marks a session whose record is about to be removed.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one duplex streaming connection. Owned by the Manager;
// external callers see only Snapshot values.
type Session struct {
	id     string
	origin string

	mu           sync.Mutex
	state        State
	connectedAt  time.Time
	lastActivity time.Time
	inFlight     string
	transport    Transport
}

// Snapshot is a read-only copy of a session's observable state.
type Snapshot struct {
	ID           string
	Origin       string
	State        State
	ConnectedAt  time.Time
	LastActivity time.Time
	InFlight     string
}

func newSession(id, origin string, t Transport) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		origin:       origin,
		state:        StateConnecting,
		connectedAt:  now,
		lastActivity: now,
		transport:    t,
	}
}

// Snapshot copies the session's observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:           s.id,
		Origin:       s.origin,
		State:        s.state,
		ConnectedAt:  s.connectedAt,
		LastActivity: s.lastActivity,
		InFlight:     s.inFlight,
	}
}

// touch records activity. Both inbound messages and outbound response
// frames count; manager-initiated heartbeat probes do not.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) activate() {
	s.mu.Lock()
	if s.state == StateConnecting {
		s.state = StateActive
	}
	s.mu.Unlock()
}

// deactivate moves an active session to Closing. Returns false if the
// session already left the active states, making the transition
// idempotent for the active counter.
func (s *Session) deactivate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting && s.state != StateActive {
		return false
	}
	s.state = StateClosing
	return true
}

func (s *Session) close() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
}

// tryBeginRequest claims the in-flight slot. At most one inference
// request streams per session; a second claim fails.
func (s *Session) tryBeginRequest(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight != "" {
		return false
	}
	s.inFlight = id
	return true
}

// endRequest releases the in-flight slot.
func (s *Session) endRequest() {
	s.mu.Lock()
	s.inFlight = ""
	s.mu.Unlock()
}

// idleSince reports whether the session has seen no activity since the
// cutoff.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity.Before(cutoff)
}

// send writes one message to the session's transport.
func (s *Session) send(msg *OutboundMessage) error {
	return s.transport.WriteJSON(msg)
}
