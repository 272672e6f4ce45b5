package upstream

import (
	"fmt"
	"time"
)

// UpstreamError represents a non-2xx response from the inference API.
// It carries the upstream status code and the error message extracted
// from the response payload.
type UpstreamError struct {
	// StatusCode is the HTTP status returned by the upstream.
	StatusCode int

	// Message is the error message from the upstream payload, or the
	// raw body when the payload is not parseable.
	Message string

	// Type is the upstream's own error classification, if present.
	Type string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
}

// NetworkError represents a connection-level failure reaching the
// upstream (DNS, dial, reset). The upstream never produced a response.
type NetworkError struct {
	// Cause is the underlying transport error.
	Cause error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("upstream unreachable: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents an upstream request that did not complete
// within the configured timeout.
type TimeoutError struct {
	// Timeout is the configured request timeout.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream request timeout after %s", e.Timeout)
}

// ParseError represents an upstream response that could not be decoded.
// Note that malformed individual stream frames are not errors; the
// decoder drops those silently. ParseError covers whole-response
// failures on the non-streaming path.
type ParseError struct {
	// RawResponse is the body that failed to decode.
	RawResponse string

	// Cause is the underlying decode error.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("upstream response parse error: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError represents bad caller input detected before any
// upstream contact: an unknown model, a missing field, or a duplicate
// in-flight request on a session.
type ValidationError struct {
	// Field names the offending request field, when one applies.
	Field string

	// Message describes what is invalid.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
