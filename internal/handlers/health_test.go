package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mode       string
		check      HealthCheck
		wantStatus int
		wantChecks bool
	}{
		{name: "basic", wantStatus: http.StatusOK},
		{name: "extended healthy", mode: "extended", check: func(ctx context.Context) error { return nil }, wantStatus: http.StatusOK, wantChecks: true},
		{name: "extended unhealthy", mode: "extended", check: func(ctx context.Context) error { return errors.New("down") }, wantStatus: http.StatusServiceUnavailable, wantChecks: true},
		{name: "basic ignores failing checks", check: func(ctx context.Context) error { return errors.New("down") }, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(WithCheck("database", tt.check))
			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest("GET", "/healthz?mode="+tt.mode, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if tt.wantChecks && resp.Checks["database"] == "" {
				t.Error("Expected database check result")
			}
			if !tt.wantChecks && resp.Checks != nil {
				t.Errorf("Expected no checks in basic mode, got %v", resp.Checks)
			}
		})
	}
}
