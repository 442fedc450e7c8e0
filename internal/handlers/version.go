package handlers

import (
	"net/http"
	"time"

	"sdc-indexer/internal/startup"
)

// VersionResponse is the body of /version.
type VersionResponse struct {
	startup.BuildInfo
	Uptime     string   `json:"uptime"`
	Components []string `json:"components"`
}

// GetVersion returns build information, uptime and the indexers this
// process runs.
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, VersionResponse{
		BuildInfo:  startup.GetBuildInfo(),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Components: h.components(),
	})
}
