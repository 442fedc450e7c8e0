package handlers

import (
	"net/http"
	"runtime"
	"time"

	"sdc-indexer/internal/indexer"
	"sdc-indexer/internal/startup"
	"sdc-indexer/internal/supervisor"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Ready       bool   `json:"ready"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	Indexing    bool   `json:"indexing"`
	LastIndexed string `json:"lastIndexed,omitempty"`
	DeltaState  string `json:"deltaState,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Catalog summary
	ScienceFiles   int `json:"scienceFiles,omitempty"`
	AncillaryFiles int `json:"ancillaryFiles,omitempty"`
}

// ProgressResponse is the body of /progress.
type ProgressResponse struct {
	Reconcile *indexer.IndexProgress `json:"reconcile,omitempty"`
	Delta     *supervisor.Progress   `json:"delta,omitempty"`
}

// HealthCheck returns the health status of the indexer. With a delta
// supervisor attached it is ready only while the supervisor is running.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if h.reconcile != nil {
		response.Indexing = h.reconcile.IsIndexing()
		if last := h.reconcile.LastIndexTime(); !last.IsZero() {
			response.LastIndexed = last.Format(time.RFC3339)
		}
	}

	if h.delta != nil {
		state := h.delta.GetProgress().State
		response.DeltaState = state
		switch state {
		case supervisor.Running.String():
		case supervisor.Idle.String(), supervisor.Starting.String():
			response.Status = statusStarting
			response.Ready = false
		default:
			response.Status = statusDegraded
			response.Ready = false
		}
	}

	if h.stats != nil {
		stats := h.stats.GetStats()
		response.ScienceFiles = stats.ScienceFiles
		response.AncillaryFiles = stats.AncillaryFiles
	}

	code := http.StatusOK
	if !response.Ready {
		code = http.StatusServiceUnavailable
	}
	respond(w, r, code, response)
}

// LivenessCheck answers 200 while the process serves HTTP, whatever the
// state of the indexers.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// Progress returns the counters of whichever indexers run in this process.
func (h *Handlers) Progress(w http.ResponseWriter, r *http.Request) {
	var response ProgressResponse
	if h.reconcile != nil {
		p := h.reconcile.GetProgress()
		response.Reconcile = &p
	}
	if h.delta != nil {
		p := h.delta.GetProgress()
		response.Delta = &p
	}

	respond(w, r, http.StatusOK, response)
}
