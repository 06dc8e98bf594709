package daemon

import (
	"encoding/json"
	"net/http"

	"overseer/internal/logging"
)

// StreamEvents serves the event bus over SSE. A listener attaching
// while nothing is in flight receives an immediate terminal event;
// `reconnect=1` replays the current stream's buffered events first.
// The subscription survives stream boundaries, so a single connection
// observes every subsequent stream until the client disconnects.
func (a *API) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	replay := parseBoolQueryValue(r.URL.Query().Get("reconnect"))
	ch, cancel := a.Stream.Subscribe(replay)
	defer cancel()

	reqID := logging.NewRequestID()
	if a.Logger != nil && a.Logger.Enabled(logging.Debug) {
		a.Logger.Debug("event_stream_open",
			logging.F("req_id", reqID),
			logging.F("replay", replay),
		)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	_, _ = w.Write([]byte(":\n\n"))
	flusher.Flush()

	ctx := r.Context()
	var count int
	for {
		select {
		case <-ctx.Done():
			if a.Logger != nil && a.Logger.Enabled(logging.Debug) {
				a.Logger.Debug("event_stream_close",
					logging.F("req_id", reqID),
					logging.F("count", count),
				)
			}
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			count++
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(data)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

// StreamAbort cancels the in-flight stream and rejects every pending
// confirmation. Idempotent: aborting with nothing active is a no-op.
func (a *API) StreamAbort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	a.Stream.Abort()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) StreamStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": a.Stream.Active()})
}
