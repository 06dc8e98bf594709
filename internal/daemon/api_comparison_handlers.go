package daemon

import (
	"encoding/json"
	"net/http"
	"strings"

	"overseer/internal/comparison"
	"overseer/internal/logging"
)

// ComparisonState reports the current comparison document, or an empty
// object when no comparison is in progress.
func (a *API) ComparisonState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	state := a.Comparison.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"comparison": state,
		"active":     state != nil,
	})
}

// ComparisonRuns starts a comparison session or adds another run to the
// one in progress. The first call carries the prompt; later calls reuse
// the recorded one.
func (a *API) ComparisonRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req ComparisonRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid json body",
		})
		return
	}

	if a.Comparison.State() == nil {
		state, err := a.Comparison.Init(req.Prompt, req.ModelID, req.ModelLabel, req.ProviderID, req.ProviderLabel)
		if err != nil {
			writeServiceError(w, invalidError(err.Error(), nil))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comparison": state})
		return
	}

	run, err := a.Comparison.CreateRun(req.ModelID, req.ModelLabel, req.ProviderID, req.ProviderLabel)
	if err != nil {
		writeServiceError(w, invalidError(err.Error(), nil))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

// ComparisonRunByID routes POST /api/comparison/runs/{id}/{switch,
// select,complete} and DELETE /api/comparison/runs/{id}.
func (a *API) ComparisonRunByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/comparison/runs/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			writeMethodNotAllowed(w)
			return
		}
		if err := a.Comparison.DeleteRun(id); err != nil {
			writeServiceError(w, invalidError(err.Error(), nil))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	switch parts[1] {
	case "switch":
		if err := a.Comparison.SwitchRun(id); err != nil {
			writeServiceError(w, invalidError(err.Error(), nil))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "select":
		// Finalize is best effort end to end: whatever could be cleaned
		// up already was, so the caller always gets 200.
		if err := a.Comparison.SelectRun(id); err != nil {
			a.Logger.Warn("comparison_select_failed", logging.F("run_id", id), logging.F("error", err))
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case "complete":
		var req CompleteRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid json body",
			})
			return
		}
		stats := comparison.RunStats{
			DurationMs: req.DurationMs,
			TokenUsage: req.TokenUsage,
		}
		if err := a.Comparison.MarkComplete(id, req.Success, stats); err != nil {
			writeServiceError(w, invalidError(err.Error(), nil))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

// ComparisonAbort discards the whole comparison and returns the working
// tree to the baseline branch.
func (a *API) ComparisonAbort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.Comparison.Abort(); err != nil {
		writeServiceError(w, unavailableError("comparison abort failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
