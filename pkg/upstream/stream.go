package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
)

// dataPrefix marks a significant line in the upstream event stream.
const dataPrefix = "data: "

// doneSentinel is the literal marker signaling the end of the stream.
const doneSentinel = "[DONE]"

// StreamDecoder turns the raw, possibly-chunked upstream response body
// into an ordered sequence of ChunkEvents. It buffers only as much as
// is needed to find line boundaries; events are never reordered.
//
// Lines that fail to parse as JSON are dropped silently. The upstream
// interleaves keep-alive noise with real frames, so a bad line is a
// tolerance case, not an error. A partial line at end-of-stream with no
// terminator is discarded, never parsed as a final fragment.
type StreamDecoder struct {
	body   io.ReadCloser
	reader *bufio.Reader

	mu     sync.Mutex
	closed bool
}

// NewStreamDecoder creates a decoder over a live response body. The
// decoder takes ownership of the body and closes it on Close or when
// the stream terminates.
func NewStreamDecoder(body io.ReadCloser) *StreamDecoder {
	return &StreamDecoder{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// Next returns the next event from the stream.
//
// It returns io.EOF when the upstream terminal sentinel arrives, when
// the source reaches end-of-stream, or when ctx is cancelled. All three
// are normal exits; cancellation releases the underlying body and is
// never surfaced as an error.
func (d *StreamDecoder) Next(ctx context.Context) (*ChunkEvent, error) {
	for {
		select {
		case <-ctx.Done():
			d.Close()
			return nil, io.EOF
		default:
		}

		if d.isClosed() {
			return nil, io.EOF
		}

		line, err := d.reader.ReadString('\n')
		if err != nil {
			// A partial line with no terminator is discarded: the
			// upstream truncated mid-frame and the fragment cannot be
			// a complete event.
			wasClosed := d.isClosed()
			d.Close()
			if err == io.EOF || wasClosed || ctx.Err() != nil {
				return nil, io.EOF
			}
			return nil, &NetworkError{Cause: err}
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, dataPrefix) {
			// Comments, event-type lines, keep-alives.
			continue
		}

		data := strings.TrimPrefix(line, dataPrefix)
		if data == doneSentinel {
			d.Close()
			return nil, io.EOF
		}

		var payload streamPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			// Malformed frame; drop and keep reading.
			continue
		}

		return reduceStreamPayload(&payload), nil
	}
}

// Close releases the underlying byte source. It is idempotent and safe
// to call from a goroutine other than the reader; an in-progress Next
// then fails its read and reports io.EOF.
func (d *StreamDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.body.Close()
}

func (d *StreamDecoder) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// reduceStreamPayload decides the event variant once, at the parse
// boundary. Downstream consumers switch on Kind and never re-inspect
// the raw frame shape.
func reduceStreamPayload(p *streamPayload) *ChunkEvent {
	ev := &ChunkEvent{
		Kind:    EventDelta,
		ID:      p.ID,
		Model:   p.Model,
		Created: p.Created,
		Usage:   p.Usage,
	}

	if len(p.Choices) > 0 {
		choice := p.Choices[0]
		ev.Delta = choice.Delta.Content
		ev.ToolCalls = choice.Delta.ToolCalls
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			ev.Kind = EventFinish
			ev.FinishReason = *choice.FinishReason
		}
	}

	return ev
}
