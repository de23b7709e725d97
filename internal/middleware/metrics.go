package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/sculptor/internal/metrics"
	"github.com/gorilla/mux"
)

// Metrics records request counts and latency. The path label is the matched
// route template so ids never reach the label set.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := newResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		metrics.ObserveHTTP(r.Method, routeTemplate(r), strconv.Itoa(wrapped.statusCode), time.Since(start))
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
