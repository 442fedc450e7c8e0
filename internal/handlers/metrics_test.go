package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sdc-indexer/internal/metrics"
)

func TestMetricsHandler(t *testing.T) {
	metrics.InitializeMetrics()
	handler := New(Options{}).MetricsHandler()

	tests := []struct {
		name            string
		accept          string
		wantContentType string
	}{
		{"text format", "", "text/plain"},
		{"openmetrics", "application/openmetrics-text; version=1.0.0", "application/openmetrics-text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, tt.wantContentType) {
				t.Errorf("Content-Type = %q, want prefix %q", got, tt.wantContentType)
			}

			body := w.Body.String()
			for _, name := range []string{
				"sdc_indexer_catalog_upserts_total",
				"sdc_indexer_queue_overflows_total",
				"sdc_indexer_supervisor_state",
				"sdc_indexer_filesystem_entries_total",
				"go_goroutines",
			} {
				if !strings.Contains(body, name) {
					t.Errorf("metrics missing %q", name)
				}
			}
		})
	}
}
