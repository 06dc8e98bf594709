package daemon

import (
	"encoding/json"
	"net/http"
	"strings"

	"overseer/internal/stream"
)

// Chat submits a prompt to the stream supervisor. Any in-flight stream
// is cancelled by the supervisor before the new one starts.
func (a *API) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid json body",
		})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeServiceError(w, invalidError("prompt is required", nil))
		return
	}

	requestID, err := a.Stream.Submit(stream.ChatRequest{
		Prompt:     req.Prompt,
		Context:    req.Context,
		ModelID:    req.ModelID,
		ProviderID: req.ProviderID,
	})
	if err != nil {
		writeServiceError(w, unavailableError("failed to start stream", err))
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{RequestID: requestID})
}

// ChatHistory reads or clears the stored conversation.
func (a *API) ChatHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		modelID, providerID := a.Session.Pairing()
		writeJSON(w, http.StatusOK, map[string]any{
			"messages":    a.Session.History(),
			"model_id":    modelID,
			"provider_id": providerID,
		})
	case http.MethodDelete:
		a.Stream.Abort()
		a.Session.Reset()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) Providers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": a.Registry.List(),
	})
}
