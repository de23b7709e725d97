package middleware

import (
	"net/http"
	"time"

	"github.com/benvon/sculptor/internal/request"
)

// DefaultRequestTimeout bounds routes that make no AI calls
const DefaultRequestTimeout = 30 * time.Second

const timeoutBody = `{"success":false,"error":"Service Unavailable","message":"Request timed out"}`

// Timeout bounds handler run time and answers 503 with the JSON error
// envelope when the deadline passes. WebSocket upgrades pass through since
// http.TimeoutHandler's writer cannot be hijacked; streamed turns carry
// their own deadline.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, timeout, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if request.IsWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			bounded.ServeHTTP(w, r)
		})
	}
}
