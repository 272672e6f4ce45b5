package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"helios-ai/relay/pkg/proxy/types"
)

// WriteJSONResponse writes data as a JSON response with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes an error body with the status derived from
// its type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}

// WriteMappedError maps an internal error and writes it in one step.
func WriteMappedError(w http.ResponseWriter, err error) error {
	return WriteErrorResponse(w, MapError(err))
}

// SetSSEHeaders prepares the response for server-sent events.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// WriteSSEChunk writes one frame as an SSE data line and flushes so
// the caller sees it immediately.
func WriteSSEChunk(w http.ResponseWriter, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal SSE chunk: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flush(w)
	return nil
}

// WriteSSEError writes an error body as an in-stream frame. Once
// streaming has begun the status line is already sent, so errors ride
// the stream itself.
func WriteSSEError(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteSSEChunk(w, errResp)
}

// WriteSSEDone writes the terminal sentinel frame.
func WriteSSEDone(w http.ResponseWriter) error {
	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	flush(w)
	return nil
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
