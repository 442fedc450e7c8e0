package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sdc-indexer/internal/indexer"
	"sdc-indexer/internal/supervisor"
)

type mockReconcile struct {
	indexing bool
	last     time.Time
	progress indexer.IndexProgress
}

func (m *mockReconcile) IsIndexing() bool                   { return m.indexing }
func (m *mockReconcile) LastIndexTime() time.Time           { return m.last }
func (m *mockReconcile) GetProgress() indexer.IndexProgress { return m.progress }

type mockDelta struct {
	progress supervisor.Progress
}

func (m *mockDelta) GetProgress() supervisor.Progress { return m.progress }

func TestProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		opts          Options
		wantReconcile bool
		wantDelta     bool
	}{
		{"nothing running", Options{}, false, false},
		{
			"reconcile only",
			Options{Reconcile: &mockReconcile{progress: indexer.IndexProgress{Phase: "scanning", FilesScanned: 12, IsIndexing: true}}},
			true, false,
		},
		{
			"delta only",
			Options{Delta: &mockDelta{progress: supervisor.Progress{State: "running", Counts: supervisor.Counts{Handled: 4}}}},
			false, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(tt.opts)
			req := httptest.NewRequest(http.MethodGet, "/progress", http.NoBody)
			w := httptest.NewRecorder()
			h.Progress(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var body ProgressResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if (body.Reconcile != nil) != tt.wantReconcile {
				t.Errorf("reconcile present = %v, want %v", body.Reconcile != nil, tt.wantReconcile)
			}
			if (body.Delta != nil) != tt.wantDelta {
				t.Errorf("delta present = %v, want %v", body.Delta != nil, tt.wantDelta)
			}
			if tt.wantReconcile && body.Reconcile.FilesScanned != 12 {
				t.Errorf("filesScanned = %d", body.Reconcile.FilesScanned)
			}
			if tt.wantDelta && body.Delta.Handled != 4 {
				t.Errorf("handled = %d", body.Delta.Handled)
			}
		})
	}
}

func TestRouter(t *testing.T) {
	t.Parallel()

	h := New(Options{Delta: &mockDelta{progress: supervisor.Progress{State: "running"}}})
	r := NewRouter(h)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/progress", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodHead, "/livez", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodPost, "/progress", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/files", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
	}
}

func TestServer(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", New(Options{}))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go srv.Serve()
	defer srv.Shutdown()

	resp, err := http.Get("http://" + srv.Addr() + "/livez")
	if err != nil {
		t.Fatalf("GET /livez: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d body %s", resp.StatusCode, body)
	}
}
