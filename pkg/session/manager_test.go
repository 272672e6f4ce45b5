package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"helios-ai/relay/pkg/gateway"
	"helios-ai/relay/pkg/proxy/types"
)

// fakeTransport records writes and close calls.
type fakeTransport struct {
	mu        sync.Mutex
	messages  []OutboundMessage
	closed    bool
	closeCode int
}

func (t *fakeTransport) WriteJSON(v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if msg, ok := v.(*OutboundMessage); ok {
		t.messages = append(t.messages, *msg)
	}
	return nil
}

func (t *fakeTransport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.closeCode = code
	return nil
}

func (t *fakeTransport) sent() []OutboundMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]OutboundMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *fakeTransport) closedWith() (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed, t.closeCode
}

// fakeInferencer returns a pre-built event channel per call.
type fakeInferencer struct {
	stream func() <-chan gateway.StreamEvent
	err    error
}

func (f *fakeInferencer) StreamComplete(ctx context.Context, req *types.ChatCompletionRequest) (<-chan gateway.StreamEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stream(), nil
}

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func testConfig() Config {
	return Config{
		HeartbeatInterval: 10 * time.Millisecond,
		IdleTimeout:       40 * time.Millisecond,
		RemovalGrace:      50 * time.Millisecond,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached within timeout")
}

func TestManager_ConnectSendsWelcomeHeartbeat(t *testing.T) {
	m := NewManager(testConfig(), &fakeInferencer{}, allowAll{}, nil)
	defer m.Close()

	tr := &fakeTransport{}
	snap, err := m.Connect("10.0.0.1", tr)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if snap.State != StateActive && snap.State != StateConnecting {
		t.Errorf("unexpected state %v", snap.State)
	}

	msgs := tr.sent()
	if len(msgs) == 0 || msgs[0].Type != MessageTypeHeartbeat {
		t.Fatalf("want a welcome heartbeat first, got %v", msgs)
	}

	if got := m.Stats().Active; got != 1 {
		t.Errorf("Active = %d, want 1", got)
	}
}

func TestManager_AdmissionRejectionClosesTransport(t *testing.T) {
	m := NewManager(testConfig(), &fakeInferencer{}, denyAll{}, nil)
	defer m.Close()

	tr := &fakeTransport{}
	if _, err := m.Connect("10.0.0.1", tr); err == nil {
		t.Fatal("expected admission rejection")
	}

	closed, code := tr.closedWith()
	if !closed || code != ClosePolicyViolation {
		t.Errorf("transport close = (%v, %d), want (true, %d)", closed, code, ClosePolicyViolation)
	}
	if got := m.Stats().TotalCreated; got != 0 {
		t.Errorf("rejected connect must not create a session, TotalCreated = %d", got)
	}
}

func TestManager_DuplicateInFlightRejected(t *testing.T) {
	release := make(chan struct{})
	inf := &fakeInferencer{
		stream: func() <-chan gateway.StreamEvent {
			ch := make(chan gateway.StreamEvent)
			go func() {
				<-release
				close(ch)
			}()
			return ch
		},
	}

	m := NewManager(testConfig(), inf, allowAll{}, nil)
	defer m.Close()

	tr := &fakeTransport{}
	snap, err := m.Connect("10.0.0.1", tr)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ctx := context.Background()
	first, _ := json.Marshal(InboundMessage{
		Type: MessageTypeInferenceRequest,
		ID:   "req-1",
		Data: &types.ChatCompletionRequest{Model: "known/model"},
	})
	m.HandleMessage(ctx, snap.ID, first)

	// Wait for the first request to claim the in-flight slot.
	waitFor(t, time.Second, func() bool {
		s, ok := m.Get(snap.ID)
		return ok && s.InFlight != ""
	})

	second, _ := json.Marshal(InboundMessage{
		Type: MessageTypeInferenceRequest,
		ID:   "req-2",
		Data: &types.ChatCompletionRequest{Model: "known/model"},
	})
	m.HandleMessage(ctx, snap.ID, second)

	waitFor(t, time.Second, func() bool {
		for _, msg := range tr.sent() {
			if msg.Type == MessageTypeError {
				return true
			}
		}
		return false
	})

	var errMsg *OutboundMessage
	for _, msg := range tr.sent() {
		if msg.Type == MessageTypeError {
			cp := msg
			errMsg = &cp
		}
	}
	if errMsg.Error == nil || errMsg.Error.Code != types.CodeDuplicateRequest {
		t.Errorf("duplicate request error = %+v, want code %q", errMsg.Error, types.CodeDuplicateRequest)
	}
	if errMsg.Error != nil && errMsg.Error.Type != types.ErrorTypeValidation {
		t.Errorf("Type = %q, want validation", errMsg.Error.Type)
	}

	// Releasing the first request frees the slot again.
	close(release)
	waitFor(t, time.Second, func() bool {
		s, ok := m.Get(snap.ID)
		return ok && s.InFlight == ""
	})
}

func TestManager_StreamedResponseFrames(t *testing.T) {
	usage := &types.Usage{PromptTokens: 2, CompletionTokens: 3, TotalTokens: 5}
	inf := &fakeInferencer{
		stream: func() <-chan gateway.StreamEvent {
			ch := make(chan gateway.StreamEvent, 3)
			ch <- gateway.StreamEvent{Delta: "Hel", Model: "known/model"}
			ch <- gateway.StreamEvent{Delta: "lo", Model: "known/model", FinishReason: "stop"}
			ch <- gateway.StreamEvent{Model: "known/model", Usage: usage}
			close(ch)
			return ch
		},
	}

	m := NewManager(testConfig(), inf, allowAll{}, nil)
	defer m.Close()

	tr := &fakeTransport{}
	snap, err := m.Connect("10.0.0.1", tr)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	raw, _ := json.Marshal(InboundMessage{
		Type: MessageTypeInferenceRequest,
		ID:   "req-1",
		Data: &types.ChatCompletionRequest{Model: "known/model"},
	})
	m.HandleMessage(context.Background(), snap.ID, raw)

	waitFor(t, time.Second, func() bool {
		n := 0
		for _, msg := range tr.sent() {
			if msg.Type == MessageTypeInferenceResponse {
				n++
			}
		}
		return n == 3
	})

	var frames []OutboundMessage
	for _, msg := range tr.sent() {
		if msg.Type == MessageTypeInferenceResponse {
			frames = append(frames, msg)
		}
	}

	if frames[0].Data.Content != "Hel" || frames[1].Data.Content != "lo" {
		t.Errorf("deltas out of order: %q, %q", frames[0].Data.Content, frames[1].Data.Content)
	}
	if frames[1].Data.FinishReason != "stop" {
		t.Errorf("FinishReason = %q", frames[1].Data.FinishReason)
	}
	if frames[2].Data.Usage == nil || frames[2].Data.Usage.TotalTokens != 5 {
		t.Errorf("terminal frame usage = %+v", frames[2].Data.Usage)
	}
	for _, f := range frames {
		if f.ID != "req-1" {
			t.Errorf("frame ID = %q, want req-1", f.ID)
		}
	}
}

func TestManager_LongStreamKeepsSessionAlive(t *testing.T) {
	// Deltas arrive slower than the sweep but faster than the idle
	// timeout, with no inbound traffic after the initial request. The
	// outbound frames must keep the session from idling out.
	inf := &fakeInferencer{
		stream: func() <-chan gateway.StreamEvent {
			ch := make(chan gateway.StreamEvent)
			go func() {
				defer close(ch)
				for i := 0; i < 10; i++ {
					time.Sleep(15 * time.Millisecond)
					ch <- gateway.StreamEvent{Delta: "x", Model: "known/model"}
				}
			}()
			return ch
		},
	}

	m := NewManager(testConfig(), inf, allowAll{}, nil)
	defer m.Close()

	tr := &fakeTransport{}
	snap, err := m.Connect("10.0.0.1", tr)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	raw, _ := json.Marshal(InboundMessage{
		Type: MessageTypeInferenceRequest,
		ID:   "req-1",
		Data: &types.ChatCompletionRequest{Model: "known/model"},
	})
	m.HandleMessage(context.Background(), snap.ID, raw)

	// Wait for the stream to finish: all ten frames delivered.
	waitFor(t, 2*time.Second, func() bool {
		n := 0
		for _, msg := range tr.sent() {
			if msg.Type == MessageTypeInferenceResponse {
				n++
			}
		}
		return n == 10
	})

	s, ok := m.Get(snap.ID)
	if !ok || s.State != StateActive {
		t.Fatalf("session state after stream = %v (ok=%v), want active", s.State, ok)
	}
	if closed, _ := tr.closedWith(); closed {
		t.Error("transport must not be closed mid-stream")
	}
}

func TestManager_HeartbeatTimeoutKeepsRecordThroughGrace(t *testing.T) {
	m := NewManager(testConfig(), &fakeInferencer{}, allowAll{}, nil)
	defer m.Close()

	tr := &fakeTransport{}
	snap, err := m.Connect("10.0.0.1", tr)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Wait past the idle timeout for the sweep to deactivate.
	waitFor(t, time.Second, func() bool {
		s, ok := m.Get(snap.ID)
		return ok && s.State == StateClosing
	})

	if got := m.Stats().Active; got != 0 {
		t.Errorf("Active after timeout = %d, want 0", got)
	}

	// Record stays queryable until the grace elapses.
	if _, ok := m.Get(snap.ID); !ok {
		t.Error("record must survive into the grace period")
	}

	waitFor(t, time.Second, func() bool {
		_, ok := m.Get(snap.ID)
		return !ok
	})
}

func TestManager_DisconnectUpdatesStats(t *testing.T) {
	m := NewManager(testConfig(), &fakeInferencer{}, allowAll{}, nil)
	defer m.Close()

	tr := &fakeTransport{}
	snap, err := m.Connect("10.0.0.1", tr)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	m.Disconnect(snap.ID, "done")

	stats := m.Stats()
	if stats.Active != 0 {
		t.Errorf("Active = %d, want 0", stats.Active)
	}
	if stats.AvgDuration <= 0 {
		t.Errorf("AvgDuration = %v, want > 0", stats.AvgDuration)
	}

	closed, code := tr.closedWith()
	if !closed || code != CloseNormal {
		t.Errorf("close = (%v, %d), want (true, %d)", closed, code, CloseNormal)
	}

	// A duplicate disconnect must not double-count.
	m.Disconnect(snap.ID, "again")
	if got := m.Stats().Active; got != 0 {
		t.Errorf("Active after duplicate disconnect = %d", got)
	}
}

func TestManager_HeartbeatEcho(t *testing.T) {
	m := NewManager(testConfig(), &fakeInferencer{}, allowAll{}, nil)
	defer m.Close()

	tr := &fakeTransport{}
	snap, err := m.Connect("10.0.0.1", tr)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	raw, _ := json.Marshal(InboundMessage{Type: MessageTypeHeartbeat, Timestamp: time.Now().Unix()})
	m.HandleMessage(context.Background(), snap.ID, raw)

	// Welcome heartbeat plus echo.
	msgs := tr.sent()
	beats := 0
	for _, msg := range msgs {
		if msg.Type == MessageTypeHeartbeat {
			beats++
		}
	}
	if beats < 2 {
		t.Errorf("heartbeats = %d, want >= 2", beats)
	}

	if got := m.Stats().Messages; got != 1 {
		t.Errorf("Messages = %d, want 1", got)
	}
}
