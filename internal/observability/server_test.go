package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServer_HealthAndReadiness(t *testing.T) {
	s := NewServer(":0")
	h := s.Handler()

	tests := []struct {
		name     string
		path     string
		ready    bool
		expected int
	}{
		{"healthz", "/healthz", false, http.StatusOK},
		{"readyz before ready", "/readyz", false, http.StatusServiceUnavailable},
		{"readyz when ready", "/readyz", true, http.StatusOK},
		{"metrics", "/metrics", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetReady(tt.ready)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.expected {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.expected)
			}
		})
	}
}

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), false, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("expected no-op shutdown, got %v", err)
	}
}
