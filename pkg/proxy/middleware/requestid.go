// Package middleware provides the HTTP middleware chain: request
// identifiers, panic recovery, access logging, and CORS.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"helios-ai/relay/pkg/telemetry/logging"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request an identifier, honoring one supplied
// by the client, and echoes it in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := logging.WithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
