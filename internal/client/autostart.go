package client

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"overseer/internal/config"
)

// EnsureDaemon verifies the daemon is reachable, launching a background
// instance and waiting for it when it is not.
func (c *Client) EnsureDaemon(ctx context.Context) error {
	if _, err := c.Health(ctx); err == nil {
		return nil
	}
	if err := StartBackgroundDaemon(); err != nil {
		return err
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
		if _, err := c.Health(ctx); err == nil {
			return nil
		}
	}
	return errors.New("daemon did not become ready")
}

// StartBackgroundDaemon re-executes the current binary as a detached
// daemon process, with its output appended to the daemon log file.
func StartBackgroundDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(exe, "daemon", "--background")
	applyDaemonSysProcAttr(cmd)

	logWriter := io.Discard
	var logFile *os.File
	if logPath, err := config.DaemonLogPath(); err == nil {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err == nil {
			if file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
				logWriter = file
				logFile = file
			}
		}
	}
	cmd.Stdout = logWriter
	cmd.Stderr = logWriter

	err = cmd.Start()
	if logFile != nil {
		_ = logFile.Close()
	}
	return err
}
