package handlers

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"helios-ai/relay/pkg/session"
	"helios-ai/relay/pkg/telemetry/logging"
)

// SessionManager is the slice of the session manager the websocket
// handler drives.
type SessionManager interface {
	Connect(origin string, t session.Transport) (session.Snapshot, error)
	HandleMessage(ctx context.Context, sessionID string, raw []byte)
	Disconnect(sessionID, reason string)
}

// WebSocketHandler upgrades GET /ws to the duplex streaming surface
// and pumps inbound frames into the session manager.
type WebSocketHandler struct {
	manager  SessionManager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates the websocket upgrade handler.
func NewWebSocketHandler(manager SessionManager, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the CORS layer and the
			// per-origin admission check, not the upgrader.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		h.logger.Debug("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	origin := originOf(r)
	transport := newWSTransport(conn)

	snap, err := h.manager.Connect(origin, transport)
	if err != nil {
		// Admission already closed the transport with a policy code.
		return
	}

	ctx := logging.WithSessionID(r.Context(), snap.ID)
	h.readLoop(ctx, conn, snap.ID)
}

// readLoop pumps frames into the manager until the connection drops.
func (h *WebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string) {
	defer h.manager.Disconnect(sessionID, "connection closed")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.FromContext(ctx, h.logger).Debug("websocket read failed", "error", err)
			}
			return
		}
		h.manager.HandleMessage(ctx, sessionID, raw)
	}
}

// originOf derives the admission key from the remote address, dropping
// the ephemeral port.
func originOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// wsTransport adapts a websocket connection to the session transport.
// Writes are serialized; the manager's inference goroutine and the
// heartbeat sweep both write concurrently.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) WriteJSON(v interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return t.conn.Close()
}
