package daemon

import "net/http"

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.Health)
	mux.HandleFunc("/api/chat", a.Chat)
	mux.HandleFunc("/api/chat/history", a.ChatHistory)
	mux.HandleFunc("/api/stream", a.StreamEvents)
	mux.HandleFunc("/api/stream/abort", a.StreamAbort)
	mux.HandleFunc("/api/stream/status", a.StreamStatus)
	mux.HandleFunc("/api/providers", a.Providers)
	mux.HandleFunc("/api/confirmations", a.Confirmations)
	mux.HandleFunc("/api/confirmations/", a.ConfirmationAction)
	mux.HandleFunc("/api/comparison", a.ComparisonState)
	mux.HandleFunc("/api/comparison/runs", a.ComparisonRuns)
	mux.HandleFunc("/api/comparison/runs/", a.ComparisonRunByID)
	mux.HandleFunc("/api/comparison/abort", a.ComparisonAbort)
	mux.HandleFunc("/api/devserver/status", a.DevServerStatus)
	mux.HandleFunc("/api/devserver/start", a.DevServerStart)
	mux.HandleFunc("/api/devserver/stop", a.DevServerStop)
	mux.HandleFunc("/api/devserver/restart", a.DevServerRestart)
	mux.HandleFunc("/api/devserver/logs", a.DevServerLogs)
	mux.HandleFunc("/api/shutdown", a.ShutdownDaemon)
}
