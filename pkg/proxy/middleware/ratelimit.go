package middleware

import (
	"encoding/json"
	"net"
	"net/http"

	"helios-ai/relay/pkg/proxy/types"
)

// Admitter is the per-origin admission check.
type Admitter interface {
	Allow(origin string) bool
}

// RateLimit rejects requests from origins over their admission budget
// with a 429 body. The origin is the remote host without the port.
func RateLimit(admitter Admitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if admitter != nil && !admitter.Allow(remoteHost(r.RemoteAddr)) {
				errResp := types.NewRateLimitError("request rate limit exceeded")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(errResp)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
