package devserver

import (
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"overseer/internal/logging"
	"overseer/internal/types"
)

func TestBackoffDelay(t *testing.T) {
	base := time.Second
	max := 10 * time.Second
	require.Equal(t, time.Second, backoffDelay(1, base, max))
	require.Equal(t, 2*time.Second, backoffDelay(2, base, max))
	require.Equal(t, 4*time.Second, backoffDelay(3, base, max))
	require.Equal(t, 10*time.Second, backoffDelay(5, base, max))
	require.Equal(t, 10*time.Second, backoffDelay(30, base, max))
}

// listenOnFreePort serves a trivial HTTP responder so the supervisor's
// health probe observes a response.
func listenOnFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

func TestStartProbesUntilRunning(t *testing.T) {
	port := listenOnFreePort(t)
	s := NewSupervisor(Config{
		Command:        "sleep",
		Args:           []string{"60"},
		Dir:            t.TempDir(),
		Port:           port,
		ProbeInterval:  10 * time.Millisecond,
		StartupTimeout: 2 * time.Second,
	}, logging.Nop())
	defer s.Stop()

	require.NoError(t, s.Start())
	require.Equal(t, types.DevServerStarting, s.State().Status)

	require.Eventually(t, func() bool {
		return s.State().Status == types.DevServerRunning
	}, 2*time.Second, 10*time.Millisecond)
	state := s.State()
	require.NotZero(t, state.PID)
	require.NotNil(t, state.StartedAt)

	s.Stop()
	require.Equal(t, types.DevServerStopped, s.State().Status)
}

func TestRestartWithoutProcessFails(t *testing.T) {
	s := NewSupervisor(Config{Command: "sleep", Port: 0}, logging.Nop())
	require.ErrorIs(t, s.Restart(), ErrNoProcess)
}

func TestManualRestartResetsCrashCounter(t *testing.T) {
	s := NewSupervisor(Config{
		Command:        "sleep",
		Args:           []string{"60"},
		Dir:            t.TempDir(),
		Port:           1, // nothing listens; status stays starting
		ProbeInterval:  10 * time.Millisecond,
		StartupTimeout: 50 * time.Millisecond,
		GracePeriod:    time.Second,
	}, logging.Nop())
	defer s.Stop()

	require.NoError(t, s.Start())
	s.mu.Lock()
	s.crashes = 1
	s.mu.Unlock()

	require.NoError(t, s.Restart())
	s.mu.Lock()
	crashes := s.crashes
	s.mu.Unlock()
	require.Zero(t, crashes)
	require.Equal(t, 1, s.State().RestartCount)
}

func TestCrashClassificationAndWatchFallback(t *testing.T) {
	dir := t.TempDir()
	s := NewSupervisor(Config{
		Command:        "sh",
		Args:           []string{"-c", "exit 1"},
		Dir:            dir,
		Port:           1,
		ProbeInterval:  10 * time.Millisecond,
		StartupTimeout: 50 * time.Millisecond,
		BackoffBase:    20 * time.Millisecond,
		BackoffMax:     100 * time.Millisecond,
		WatchExts:      []string{".go"},
		WatchDebounce:  20 * time.Millisecond,
	}, logging.Nop())
	defer s.Stop()

	require.NoError(t, s.Start())

	// First crash gets exactly one automatic restart; when that crashes
	// too, restarting stops and the file watcher takes over.
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.crashes >= 2 && s.watcher != nil
	}, 3*time.Second, 10*time.Millisecond)

	state := s.State()
	require.Equal(t, types.DevServerCrashed, state.Status)
	require.Equal(t, 1, state.RestartCount)
	require.NotEmpty(t, state.LastError)

	// No further timer-based restarts while crashed.
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, 1, s.State().RestartCount)

	// A matching source change triggers one recovery attempt with the
	// crash counter reset.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o600))
	require.Eventually(t, func() bool {
		return s.State().RestartCount >= 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestIrrelevantFileChangeIgnored(t *testing.T) {
	dir := t.TempDir()
	fired := make(chan struct{}, 1)
	w, err := newFileWatcher(watchConfig{
		Root:       dir,
		Extensions: []string{".go"},
		IgnoreDirs: []string{"node_modules"},
		Debounce:   20 * time.Millisecond,
	}, func() { fired <- struct{}{} }, logging.Nop())
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	select {
	case <-fired:
		t.Fatal("watcher fired for non-matching extension")
	case <-time.After(150 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.go"), []byte("package app\n"), 0o600))
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not fire for matching change")
	}
}

func TestHealthyProbeResetsCrashCounter(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})}
	t.Cleanup(func() { _ = srv.Close() })

	s := NewSupervisor(Config{
		Command:        "sleep",
		Args:           []string{"60"},
		Dir:            t.TempDir(),
		Port:           port,
		ProbeInterval:  10 * time.Millisecond,
		StartupTimeout: 2 * time.Second,
	}, logging.Nop())
	defer s.Stop()

	require.NoError(t, s.Start())
	s.mu.Lock()
	s.crashes = 1
	s.mu.Unlock()

	// Probes fail until the listener starts serving, so the counter is
	// in place before the first healthy response arrives.
	go func() { _ = srv.Serve(ln) }()
	require.Eventually(t, func() bool {
		return s.State().Status == types.DevServerRunning
	}, 2*time.Second, 10*time.Millisecond)

	s.mu.Lock()
	crashes := s.crashes
	s.mu.Unlock()
	require.Zero(t, crashes)
}

func TestManualStartAfterCrashesDisarmsWatcher(t *testing.T) {
	dir := t.TempDir()
	s := NewSupervisor(Config{
		Command:        "sh",
		Args:           []string{"-c", "[ -f ok.marker ] && exec sleep 60; exit 1"},
		Dir:            dir,
		Port:           1,
		ProbeInterval:  10 * time.Millisecond,
		StartupTimeout: 50 * time.Millisecond,
		BackoffBase:    20 * time.Millisecond,
		BackoffMax:     100 * time.Millisecond,
		WatchExts:      []string{".go"},
		WatchDebounce:  20 * time.Millisecond,
	}, logging.Nop())
	defer s.Stop()

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.crashes >= 2 && s.watcher != nil && s.cmd == nil
	}, 3*time.Second, 10*time.Millisecond)

	// The marker makes the command viable; its extension is outside the
	// watch list, so only the manual start below can respawn it.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.marker"), []byte("1"), 0o600))

	require.NoError(t, s.Start())
	s.mu.Lock()
	crashes := s.crashes
	watcher := s.watcher
	s.mu.Unlock()
	require.Zero(t, crashes)
	require.Nil(t, watcher)
}
