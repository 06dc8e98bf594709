package types

import "time"

type DevServerStatus string

const (
	DevServerStopped    DevServerStatus = "stopped"
	DevServerStarting   DevServerStatus = "starting"
	DevServerRunning    DevServerStatus = "running"
	DevServerRestarting DevServerStatus = "restarting"
	DevServerCrashed    DevServerStatus = "crashed"
)

// DevServerState is a point-in-time snapshot of the supervised
// application process. Transitions happen only inside the supervisor.
type DevServerState struct {
	Status       DevServerStatus `json:"status"`
	PID          int             `json:"pid,omitempty"`
	Port         int             `json:"port"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	RestartCount int             `json:"restart_count"`
	LastError    string          `json:"last_error,omitempty"`
}
