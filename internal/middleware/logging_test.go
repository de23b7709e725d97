package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	user := models.UserFromClaims(&models.JWTClaims{Iss: "https://issuer", Sub: "ada"})

	tests := []struct {
		name       string
		method     string
		path       string
		status     int
		user       *models.User
		wantStatus int64
		wantUser   bool
	}{
		{name: "implicit ok", method: "GET", path: "/api/v1/sessions", wantStatus: http.StatusOK, user: user, wantUser: true},
		{name: "created", method: "POST", path: "/api/v1/sessions", status: http.StatusCreated, user: user, wantStatus: http.StatusCreated, wantUser: true},
		{name: "anonymous", method: "GET", path: "/healthz", status: http.StatusServiceUnavailable, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.InfoLevel)
			handler := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte("{}"))
			}))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.user != nil {
				req = req.WithContext(request.WithUser(req.Context(), tt.user))
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected one http_request entry, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["status_code"] != tt.wantStatus {
				t.Errorf("Expected status_code %d, got %v", tt.wantStatus, fields["status_code"])
			}
			if fields["path"] != tt.path || fields["method"] != tt.method {
				t.Errorf("Expected %s %s, got %v %v", tt.method, tt.path, fields["method"], fields["path"])
			}
			if _, ok := fields["user_id"]; ok != tt.wantUser {
				t.Errorf("Expected user_id present = %v, got %v", tt.wantUser, fields["user_id"])
			}
		})
	}
}

func TestAudit(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusOK, http.StatusUnauthorized, http.StatusForbidden} {
		core, logs := observer.New(zap.WarnLevel)
		handler := Audit(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		req := httptest.NewRequest("GET", "/api/v1/sessions/x/stream", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		events := logs.FilterMessage("security_event").All()
		if status == http.StatusOK {
			if len(events) != 0 {
				t.Errorf("Expected no security event for %d, got %d", status, len(events))
			}
			continue
		}
		if len(events) != 1 || events[0].ContextMap()["ip"] != "203.0.113.7" {
			t.Errorf("Expected one security event with client ip for %d, got %v", status, events)
		}
	}
}

func TestLogging_PreservesHijacker(t *testing.T) {
	t.Parallel()

	var hijackable bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hijackable = w.(http.Hijacker)
		_, flushable := w.(http.Flusher)
		if !flushable {
			t.Error("Expected wrapped writer to implement http.Flusher")
		}
	})

	Logging(nil)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/sessions/x/stream", nil))

	if !hijackable {
		t.Error("Expected wrapped writer to implement http.Hijacker")
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)
	_, _ = rw.Write([]byte("body"))
	rw.WriteHeader(http.StatusTeapot)

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected implicit 200 to be kept, got %d", rw.statusCode)
	}
}
