package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"sdc-indexer/internal/indexer"
	"sdc-indexer/internal/logging"
	"sdc-indexer/internal/metrics"
	"sdc-indexer/internal/supervisor"
)

// ReconcileStatus reports on the full reconciler.
type ReconcileStatus interface {
	IsIndexing() bool
	LastIndexTime() time.Time
	GetProgress() indexer.IndexProgress
}

// DeltaStatus reports on the delta indexing supervisor.
type DeltaStatus interface {
	GetProgress() supervisor.Progress
}

// Options wires the handlers to the running components. Any field may be
// nil when the component is not running in this process.
type Options struct {
	Reconcile ReconcileStatus
	Delta     DeltaStatus
	Stats     metrics.StatsProvider
}

type Handlers struct {
	reconcile ReconcileStatus
	delta     DeltaStatus
	stats     metrics.StatsProvider
	startTime time.Time
}

func New(opts Options) *Handlers {
	return &Handlers{
		reconcile: opts.Reconcile,
		delta:     opts.Delta,
		stats:     opts.Stats,
		startTime: time.Now(),
	}
}

// components lists which indexers this process exposes.
func (h *Handlers) components() []string {
	var out []string
	if h.reconcile != nil {
		out = append(out, "full-index")
	}
	if h.delta != nil {
		out = append(out, "delta-index")
	}
	return out
}

// respond writes v as an uncached JSON body with the given status. HEAD
// requests get the headers only.
func respond(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response for %s: %v", r.URL.Path, err)
	}
}
