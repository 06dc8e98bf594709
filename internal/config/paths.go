package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".overseer"

// DataDir returns the base per-user data directory.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the global TOML configuration file.
func ConfigPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "config.toml"), nil
}

// DaemonLogPath returns the log file used when the daemon runs in the
// background.
func DaemonLogPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "daemon.log"), nil
}

// ProjectStateDir returns the hidden per-project state directory.
func ProjectStateDir(projectRoot string) string {
	return filepath.Join(projectRoot, appDirName)
}

// ComparisonStatePath returns the persisted comparison document for a
// project.
func ComparisonStatePath(projectRoot string) string {
	return filepath.Join(ProjectStateDir(projectRoot), "comparison.json")
}

// HistoryPath returns the persisted chat history document for a project.
func HistoryPath(projectRoot string) string {
	return filepath.Join(ProjectStateDir(projectRoot), "history.json")
}
