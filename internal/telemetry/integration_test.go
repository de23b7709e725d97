package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Engine spans started from the request context must nest under the route
// span, and an inbound traceparent must carry through to both.
func TestEngineSpansNestUnderRequestSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("sculptor-api"))
	r.HandleFunc("/api/v1/sessions/{id}/sculpt", func(w http.ResponseWriter, r *http.Request) {
		_, span := otel.Tracer("career/SculptEngine").Start(r.Context(), "Sculpt")
		span.End()
		w.WriteHeader(http.StatusOK)
	}).Methods("POST")

	const inboundTrace = "4bf92f3577b34da6a3ce929d0e0e4736"
	tests := []struct {
		name        string
		traceParent string
	}{
		{name: "new trace"},
		{name: "inbound trace", traceParent: "00-" + inboundTrace + "-00f067aa0ba902b7-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			req := httptest.NewRequest("POST", "/api/v1/sessions/0190b3c4-0000-7000-8000-000000000001/sculpt", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", rr.Code)
			}

			spans := exporter.GetSpans()
			if len(spans) != 2 {
				t.Fatalf("Expected engine and route spans, got %d", len(spans))
			}
			engine, route := spans[0], spans[1]
			if route.Name != "/api/v1/sessions/{id}/sculpt" {
				t.Errorf("Expected route span named after the template, got %q", route.Name)
			}
			if engine.Parent.SpanID() != route.SpanContext.SpanID() {
				t.Error("Expected engine span to be a child of the route span")
			}
			if tt.traceParent != "" && route.SpanContext.TraceID().String() != inboundTrace {
				t.Errorf("Expected inbound trace %s, got %s", inboundTrace, route.SpanContext.TraceID())
			}
		})
	}
}
