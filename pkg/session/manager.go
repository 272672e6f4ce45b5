package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"helios-ai/relay/pkg/gateway"
	"helios-ai/relay/pkg/proxy"
	"helios-ai/relay/pkg/proxy/types"
)

// Transport is the write side of a connected duplex transport. The
// websocket handler adapts its connection to this; tests substitute a
// recorder.
type Transport interface {
	WriteJSON(v interface{}) error
	Close(code int, reason string) error
}

// Inferencer is the slice of the gateway the manager drives.
type Inferencer interface {
	StreamComplete(ctx context.Context, req *types.ChatCompletionRequest) (<-chan gateway.StreamEvent, error)
}

// Admitter is the per-origin admission check consulted before a
// session is created.
type Admitter interface {
	Allow(origin string) bool
}

// Config tunes the manager's timers.
type Config struct {
	// HeartbeatInterval is the sweep period.
	HeartbeatInterval time.Duration

	// IdleTimeout deactivates sessions with no activity for this long.
	// Must exceed HeartbeatInterval.
	IdleTimeout time.Duration

	// RemovalGrace is how long a deactivated session's record stays
	// queryable before removal.
	RemovalGrace time.Duration
}

// DefaultConfig returns the production timer settings.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		IdleTimeout:       90 * time.Second,
		RemovalGrace:      30 * time.Second,
	}
}

// Manager owns the set of live duplex sessions: admission, message
// dispatch, the heartbeat sweep, and deferred record removal.
type Manager struct {
	cfg      Config
	inferrer Inferencer
	admitter Admitter
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	stats Stats

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager creates a manager and starts its heartbeat sweep. Stop it
// with Close.
func NewManager(cfg Config, inferrer Inferencer, admitter Admitter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:      cfg,
		inferrer: inferrer,
		admitter: admitter,
		logger:   logger,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Close stops the heartbeat sweep and closes every live transport.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })

	for _, s := range m.snapshotSessions() {
		m.Disconnect(s.id, "server shutting down")
	}
}

// Connect admits a new session. On rejection the transport is closed
// with a policy-violation code and an error is returned; on acceptance
// the session receives a welcome heartbeat and becomes active.
func (m *Manager) Connect(origin string, t Transport) (Snapshot, error) {
	if m.admitter != nil && !m.admitter.Allow(origin) {
		_ = t.Close(ClosePolicyViolation, "connection rate limit exceeded")
		return Snapshot{}, fmt.Errorf("origin %s rejected by admission control", origin)
	}

	s := newSession("sess-"+uuid.NewString(), origin, t)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.stats.recordConnect()

	if err := s.send(&OutboundMessage{
		Type:      MessageTypeHeartbeat,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		m.logger.Warn("welcome heartbeat failed", "session", s.id, "error", err)
	}
	s.activate()

	m.logger.Info("session connected", "session", s.id, "origin", origin)
	return s.Snapshot(), nil
}

// HandleMessage processes one inbound wire message for the session.
// Unknown session identifiers are ignored; the transport read loop may
// race with removal.
func (m *Manager) HandleMessage(ctx context.Context, sessionID string, raw []byte) {
	s := m.lookup(sessionID)
	if s == nil {
		return
	}

	s.touch()
	m.stats.recordMessage()

	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.sendError(s, "", types.NewValidationError("malformed message", "", types.CodeInvalidJSON))
		return
	}

	switch msg.Type {
	case MessageTypeHeartbeat:
		_ = s.send(&OutboundMessage{
			Type:      MessageTypeHeartbeat,
			Timestamp: time.Now().Unix(),
		})

	case MessageTypeInferenceRequest:
		m.handleInferenceRequest(ctx, s, &msg)

	case MessageTypeClose:
		reason := msg.Reason
		if reason == "" {
			reason = "client requested close"
		}
		m.Disconnect(s.id, reason)

	default:
		m.sendError(s, msg.ID, types.NewValidationError(
			fmt.Sprintf("unknown message type %q", msg.Type), "type", types.CodeInvalidValue))
	}
}

func (m *Manager) handleInferenceRequest(ctx context.Context, s *Session, msg *InboundMessage) {
	if msg.Data == nil {
		m.sendError(s, msg.ID, types.NewValidationError("inference_request requires data", "data", types.CodeMissingField))
		return
	}

	reqID := msg.ID
	if reqID == "" {
		reqID = "req-" + uuid.NewString()
	}

	if !s.tryBeginRequest(reqID) {
		m.sendError(s, msg.ID, types.NewValidationError(
			"a request is already in flight for this session", "", types.CodeDuplicateRequest))
		return
	}

	go m.runInference(ctx, s, reqID, msg.Data)
}

// runInference streams one completion onto the session. The in-flight
// marker is cleared on every exit path.
func (m *Manager) runInference(ctx context.Context, s *Session, reqID string, req *types.ChatCompletionRequest) {
	defer s.endRequest()

	events, err := m.inferrer.StreamComplete(ctx, req)
	if err != nil {
		m.sendError(s, reqID, proxy.MapError(err))
		return
	}

	for ev := range events {
		if ev.Err != nil {
			m.sendError(s, reqID, proxy.MapError(ev.Err))
			return
		}

		payload := &ResponsePayload{
			Content:      ev.Delta,
			ToolCalls:    ev.ToolCalls,
			FinishReason: ev.FinishReason,
			Usage:        ev.Usage,
			Model:        ev.Model,
			Created:      ev.Created,
		}
		if err := s.send(&OutboundMessage{
			Type: MessageTypeInferenceResponse,
			ID:   reqID,
			Data: payload,
		}); err != nil {
			m.logger.Warn("session write failed", "session", s.id, "error", err)
			return
		}
		// A streaming response is activity; a session receiving a long
		// completion must not idle out between inbound messages.
		s.touch()
	}
}

// Disconnect deactivates the session, records its duration, closes the
// transport, and schedules record removal after the grace delay.
func (m *Manager) Disconnect(sessionID, reason string) {
	s := m.lookup(sessionID)
	if s == nil {
		return
	}
	if !s.deactivate() {
		// Duplicate close; the record is already on its way out.
		return
	}

	snap := s.Snapshot()
	m.stats.recordDisconnect(time.Since(snap.ConnectedAt))
	_ = s.transport.Close(CloseNormal, reason)

	m.logger.Info("session disconnected", "session", sessionID, "reason", reason)
	m.scheduleRemoval(s)
}

// Get returns a read-only snapshot of a session, including deactivated
// sessions still inside the removal grace.
func (m *Manager) Get(sessionID string) (Snapshot, bool) {
	s := m.lookup(sessionID)
	if s == nil {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

// Sessions returns snapshots of every tracked session.
func (m *Manager) Sessions() []Snapshot {
	live := m.snapshotSessions()
	out := make([]Snapshot, 0, len(live))
	for _, s := range live {
		out = append(out, s.Snapshot())
	}
	return out
}

// Stats returns the aggregate counters.
func (m *Manager) Stats() StatsSnapshot {
	return m.stats.Snapshot()
}

// sweepLoop runs the heartbeat sweep until Close.
func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep probes live sessions and deactivates idle ones. Iteration runs
// over a stable snapshot so concurrent connect/disconnect cannot
// corrupt it.
func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)

	for _, s := range m.snapshotSessions() {
		if s.idleSince(cutoff) {
			if s.deactivate() {
				snap := s.Snapshot()
				m.stats.recordDisconnect(time.Since(snap.ConnectedAt))
				_ = s.transport.Close(CloseNormal, "session timed out")
				m.logger.Info("session timed out", "session", s.id)
				m.scheduleRemoval(s)
			}
			continue
		}

		if s.Snapshot().State == StateActive {
			_ = s.send(&OutboundMessage{
				Type:      MessageTypeHeartbeat,
				Timestamp: time.Now().Unix(),
			})
		}
	}
}

// scheduleRemoval deletes the session record after the grace delay.
// In-flight cleanup that references the session by identifier stays
// valid through the delay.
func (m *Manager) scheduleRemoval(s *Session) {
	time.AfterFunc(m.cfg.RemovalGrace, func() {
		s.close()
		m.mu.Lock()
		delete(m.sessions, s.id)
		m.mu.Unlock()
	})
}

func (m *Manager) sendError(s *Session, reqID string, errResp *types.ErrorResponse) {
	m.stats.recordError()
	_ = s.send(&OutboundMessage{
		Type:  MessageTypeError,
		ID:    reqID,
		Error: &errResp.Error,
	})
}

func (m *Manager) lookup(sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

func (m *Manager) snapshotSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}
