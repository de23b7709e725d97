// Package metrics holds the Prometheus collectors shared by the API, the worker
// and the career engines. Label sets are kept small and bounded:
//
//   - provider:  configured AI provider name ("openai", "gemini")
//   - operation: fixed operation names (chat_stream, complete, generate_json, ...)
//   - outcome:   "ok" or "error"
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	aiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sculptor_ai_requests_total",
			Help: "Total number of AI provider calls.",
		},
		[]string{"provider", "operation", "outcome"},
	)

	aiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sculptor_ai_request_duration_seconds",
			Help:    "Duration of AI provider calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "operation"},
	)

	streamFragments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sculptor_stream_fragments_total",
			Help: "Total number of streamed completion fragments applied to sessions.",
		},
	)

	remoteSync = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sculptor_remote_sync_total",
			Help: "Best-effort remote writes by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	dlqPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sculptor_sync_dlq_purged_total",
			Help: "Dead-lettered sync jobs removed after the retention window.",
		},
	)

	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(aiRequests, aiLatency, streamFragments, remoteSync, dlqPurged, httpReqs, httpLat)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveAI records one provider call
func ObserveAI(provider, operation string, started time.Time, err error) {
	aiRequests.WithLabelValues(provider, operation, outcome(err)).Inc()
	aiLatency.WithLabelValues(provider, operation).Observe(time.Since(started).Seconds())
}

// ObserveFragment counts one applied stream fragment
func ObserveFragment() {
	streamFragments.Inc()
}

// ObserveSync records the outcome of one best-effort remote write
func ObserveSync(operation string, err error) {
	remoteSync.WithLabelValues(operation, outcome(err)).Inc()
}

// ObserveDLQPurge counts dead-lettered sync jobs dropped by one purge
func ObserveDLQPurge(n int) {
	dlqPurged.Add(float64(n))
}

// ObserveHTTP records one served request
func ObserveHTTP(method, path, status string, elapsed time.Duration) {
	httpReqs.WithLabelValues(method, path, status).Inc()
	httpLat.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
