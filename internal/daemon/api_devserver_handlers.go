package daemon

import (
	"encoding/json"
	"errors"
	"net/http"

	"overseer/internal/devserver"
)

func (a *API) DevServerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, a.DevServer.State())
}

func (a *API) DevServerStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.DevServer.Start(); err != nil {
		writeServiceError(w, unavailableError("dev server start failed", err))
		return
	}
	writeJSON(w, http.StatusOK, a.DevServer.State())
}

func (a *API) DevServerStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	a.DevServer.Stop()
	writeJSON(w, http.StatusOK, a.DevServer.State())
}

func (a *API) DevServerRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.DevServer.Restart(); err != nil {
		if errors.Is(err, devserver.ErrNoProcess) {
			writeServiceError(w, invalidError("no dev server process to restart", nil))
			return
		}
		writeServiceError(w, unavailableError("dev server restart failed", err))
		return
	}
	writeJSON(w, http.StatusOK, a.DevServer.State())
}

// DevServerLogs returns the recent log buffer. With `follow=1` it
// upgrades to SSE and streams the buffer followed by live lines.
func (a *API) DevServerLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	if !isFollowRequest(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"lines": a.DevServer.RecentLogs(),
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	ch, cancel := a.DevServer.SubscribeLogs()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	for _, line := range a.DevServer.RecentLogs() {
		writeLogEvent(w, line)
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-ch:
			if !ok {
				return
			}
			writeLogEvent(w, line)
			flusher.Flush()
		}
	}
}

func writeLogEvent(w http.ResponseWriter, line devserver.LogLine) {
	data, err := json.Marshal(line)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n\n"))
}
