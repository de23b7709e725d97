package middleware

import (
	"fmt"
	"net/http"
)

// DefaultMaxRequestSize bounds JSON bodies on routes that take no documents or audio
const DefaultMaxRequestSize int64 = 1 << 20

// MaxRequestSize caps request bodies. A declared Content-Length over the
// limit is rejected up front; otherwise the body reader enforces it and the
// decoding handler reports the overflow.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, r, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytes))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
