// Package proxy implements the request/response surface shared by the
// HTTP handlers: request parsing, response writing, SSE framing, and
// the mapping from internal typed errors to the caller-facing taxonomy.
package proxy

import (
	"errors"

	"helios-ai/relay/pkg/proxy/types"
	"helios-ai/relay/pkg/upstream"
)

// MapError translates an internal error into the caller-facing error
// body. The mapping is a type switch, never message-string matching,
// so callers can rely on the taxonomy to branch on fault ownership.
func MapError(err error) *types.ErrorResponse {
	var verr *upstream.ValidationError
	if errors.As(err, &verr) {
		code := types.CodeInvalidValue
		if verr.Field == "model" {
			code = types.CodeModelNotFound
		}
		return types.NewValidationError(verr.Message, verr.Field, code)
	}

	var uerr *upstream.UpstreamError
	if errors.As(err, &uerr) {
		return types.NewErrorResponse(uerr.Message, types.ErrorTypeUpstream, "", types.CodeUpstreamError)
	}

	var terr *upstream.TimeoutError
	if errors.As(err, &terr) {
		return types.NewErrorResponse(terr.Error(), types.ErrorTypeTimeout, "", types.CodeUpstreamTimeout)
	}

	var nerr *upstream.NetworkError
	if errors.As(err, &nerr) {
		return types.NewErrorResponse(
			"upstream inference service is unreachable",
			types.ErrorTypeNetwork, "", types.CodeUpstreamUnavailable,
		)
	}

	var perr *upstream.ParseError
	if errors.As(err, &perr) {
		return types.NewErrorResponse(
			"upstream returned an unreadable response",
			types.ErrorTypeUpstream, "", types.CodeUpstreamError,
		)
	}

	return types.NewInternalError("internal server error")
}
