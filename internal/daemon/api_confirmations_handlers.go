package daemon

import (
	"encoding/json"
	"net/http"
	"strings"

	"overseer/internal/types"
)

// Confirmations lists the pending tool confirmations, oldest first.
func (a *API) Confirmations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"confirmations": a.Gate.Pending(),
		"auto_approve": map[string]bool{
			string(types.ToolCategoryShell): a.Gate.AutoApproved(types.ToolCategoryShell),
			string(types.ToolCategoryFile):  a.Gate.AutoApproved(types.ToolCategoryFile),
		},
	})
}

// ConfirmationAction routes POST /api/confirmations/{id} and the bulk
// keywords approve-all, reject-all, and auto-approve.
func (a *API) ConfirmationAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/confirmations/"), "/")
	if id == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	switch id {
	case "approve-all":
		a.Gate.ApproveAll()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	case "reject-all":
		a.Gate.RejectAll()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	case "auto-approve":
		var req AutoApproveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid json body",
			})
			return
		}
		category := types.ToolCategory(req.Category)
		if category != types.ToolCategoryShell && category != types.ToolCategoryFile {
			writeServiceError(w, invalidError("unknown tool category", nil))
			return
		}
		a.Gate.SetAutoApprove(category, req.Enabled)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	var req ResolveConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid json body",
		})
		return
	}
	found := a.Gate.Resolve(id, req.Approved)
	writeJSON(w, http.StatusOK, map[string]any{"found": found})
}
