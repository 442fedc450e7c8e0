// Package handlers serves the indexer's HTTP endpoints.
//
// The endpoint is optional and read-only. It exposes:
//   - /metrics: Prometheus metrics
//   - /progress: full reconciliation and delta indexing counters as JSON
//   - /healthz, /livez: health and liveness probes
//   - /version: build information
package handlers
