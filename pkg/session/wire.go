// Package session implements the duplex streaming surface: session
// lifecycle, per-session in-flight tracking, the heartbeat sweep, and
// the wire message envelope exchanged over a connected transport.
package session

import (
	"helios-ai/relay/pkg/proxy/types"
	"helios-ai/relay/pkg/upstream"
)

// Wire message type discriminators.
const (
	MessageTypeInferenceRequest  = "inference_request"
	MessageTypeInferenceResponse = "inference_response"
	MessageTypeHeartbeat         = "heartbeat"
	MessageTypeError             = "error"
	MessageTypeClose             = "close"
)

// RFC 6455 close codes used by the manager. The transport maps them
// onto its own close framing.
const (
	CloseNormal          = 1000
	ClosePolicyViolation = 1008
	CloseInternalError   = 1011
)

// InboundMessage is the envelope for messages arriving from a caller.
type InboundMessage struct {
	// Type discriminates the message kind.
	Type string `json:"type"`

	// ID correlates an inference request with its response frames.
	ID string `json:"id,omitempty"`

	// Data carries the completion request for inference_request messages.
	Data *types.ChatCompletionRequest `json:"data,omitempty"`

	// Reason and Code accompany close messages.
	Reason string `json:"reason,omitempty"`
	Code   int    `json:"code,omitempty"`

	// Timestamp accompanies heartbeat messages.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// OutboundMessage is the envelope for messages sent to a caller.
type OutboundMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	// Data carries response frames for inference_response messages.
	Data *ResponsePayload `json:"data,omitempty"`

	// Error carries the failure details for error messages.
	Error *types.ErrorDetail `json:"error,omitempty"`

	Reason    string `json:"reason,omitempty"`
	Code      int    `json:"code,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ResponsePayload is the body of one inference_response frame. Content
// frames carry deltas; the terminal frame carries usage.
type ResponsePayload struct {
	Content      string              `json:"content,omitempty"`
	ToolCalls    []upstream.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string              `json:"finish_reason,omitempty"`
	Usage        *types.Usage        `json:"usage,omitempty"`
	Model        string              `json:"model"`
	Created      int64               `json:"created"`
}
