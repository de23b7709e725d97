package middleware

import (
	"mime"
	"net/http"
)

// ContentType requires application/json on POST, PUT and PATCH requests that
// carry a body. Bodiless action requests such as sculpt pass through.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Content-Type")
		if header == "" {
			writeError(w, r, http.StatusBadRequest, "Content-Type header is required")
			return
		}
		if mediaType, _, err := mime.ParseMediaType(header); err != nil || mediaType != "application/json" {
			writeError(w, r, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		next.ServeHTTP(w, r)
	})
}
