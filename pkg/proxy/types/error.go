package types

// ErrorResponse is the JSON error body returned for all failures, on
// both the request/response surface and the streaming surfaces.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type classifies the failure: "validation", "rate_limit",
	// "upstream", "timeout", "network", or "internal". Validation and
	// rate_limit are caller faults; the rest are system faults.
	Type string `json:"type"`

	// Param names the request field that caused a validation error.
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error type constants. Callers branch on these instead of matching
// message strings.
const (
	// ErrorTypeValidation indicates bad caller input: an unknown model,
	// a malformed request, or a duplicate in-flight request (400).
	ErrorTypeValidation = "validation"

	// ErrorTypeRateLimit indicates admission was rejected (429).
	ErrorTypeRateLimit = "rate_limit"

	// ErrorTypeUpstream indicates a non-2xx or error payload from the
	// inference provider (502).
	ErrorTypeUpstream = "upstream"

	// ErrorTypeTimeout indicates the upstream did not respond in time (504).
	ErrorTypeTimeout = "timeout"

	// ErrorTypeNetwork indicates a connection-level failure reaching
	// the upstream (502).
	ErrorTypeNetwork = "network"

	// ErrorTypeInternal indicates an unclassified server failure (500).
	ErrorTypeInternal = "internal"
)

// Error code constants for common scenarios.
const (
	CodeInvalidJSON         = "invalid_json"
	CodeMissingField        = "missing_field"
	CodeInvalidValue        = "invalid_value"
	CodeModelNotFound       = "model_not_found"
	CodeDuplicateRequest    = "duplicate_request"
	CodeRequestTooLarge     = "request_too_large"
	CodeRateLimited         = "rate_limited"
	CodeUpstreamError       = "upstream_error"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeUpstreamTimeout     = "upstream_timeout"
	CodeInternalError       = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewValidationError creates an error response for bad caller input (400).
func NewValidationError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeValidation, param, code)
}

// NewRateLimitError creates an error response for rejected admission (429).
func NewRateLimitError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeRateLimit, "", CodeRateLimited)
}

// NewInternalError creates an error response for unclassified failures (500).
func NewInternalError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInternal, "", CodeInternalError)
}

// HTTPStatusCode returns the HTTP status for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeValidation:
		return 400
	case ErrorTypeRateLimit:
		return 429
	case ErrorTypeUpstream, ErrorTypeNetwork:
		return 502
	case ErrorTypeTimeout:
		return 504
	default:
		return 500
	}
}

// CallerFault reports whether the failure is the caller's (validation,
// rate limit) rather than the system's. Callers use this to branch
// without inspecting message text.
func (e *ErrorDetail) CallerFault() bool {
	return e.Type == ErrorTypeValidation || e.Type == ErrorTypeRateLimit
}
