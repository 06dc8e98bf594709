package daemon

import (
	"net/http"
	"os"
	"time"
)

// Health reports liveness plus enough identity for the CLI to tell
// which daemon it reached after an autostart.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"ok":      true,
		"version": a.Version,
		"pid":     os.Getpid(),
	}
	if !a.Started.IsZero() {
		payload["uptime_ms"] = time.Since(a.Started).Milliseconds()
	}
	writeJSON(w, http.StatusOK, payload)
}
