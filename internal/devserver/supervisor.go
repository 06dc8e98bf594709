// Package devserver supervises the target application's own process:
// spawn, health probing, crash classification, and recovery. The first
// crash earns one automatic backoff restart; repeated crashes switch to
// waiting for a source change, on the theory that someone is applying a
// fix.
package devserver

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	xansi "github.com/charmbracelet/x/ansi"

	"overseer/internal/logging"
	"overseer/internal/types"
)

type Config struct {
	Command        string
	Args           []string
	Dir            string
	Port           int
	StartupTimeout time.Duration
	ProbeInterval  time.Duration
	GracePeriod    time.Duration
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	WatchExts      []string
	WatchIgnore    []string
	WatchDebounce  time.Duration
}

func (c Config) withDefaults() Config {
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = 10 * time.Second
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 250 * time.Millisecond
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 3 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 10 * time.Second
	}
	return c
}

var ErrNoProcess = errors.New("no dev server process")

type Supervisor struct {
	mu           sync.Mutex
	cfg          Config
	state        types.DevServerState
	cmd          *exec.Cmd
	waitDone     chan struct{}
	crashes      int
	restarting   bool
	restartTimer *time.Timer
	watcher      *fileWatcher
	logs         *logHub
	logger       logging.Logger
}

func NewSupervisor(cfg Config, logger logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.Nop()
	}
	cfg = cfg.withDefaults()
	return &Supervisor{
		cfg:    cfg,
		state:  types.DevServerState{Status: types.DevServerStopped, Port: cfg.Port},
		logs:   newLogHub(),
		logger: logger,
	}
}

// Start spawns the process and begins health probing. A startup-probe
// timeout is not a failure by itself: the status stays "starting" and a
// later crash signal is trusted instead.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return errors.New("dev server already running")
	}
	// A manual start supersedes any crash-recovery machinery armed for
	// the previous process.
	s.cancelTimerLocked()
	s.teardownWatcherLocked()
	s.crashes = 0
	return s.spawnLocked()
}

func (s *Supervisor) spawnLocked() error {
	if s.cfg.Command == "" {
		return errors.New("no dev server command configured")
	}
	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	cmd.Dir = s.cfg.Dir
	cmd.Env = append(os.Environ(), "PORT="+strconv.Itoa(s.cfg.Port))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		s.state.Status = types.DevServerCrashed
		s.state.LastError = err.Error()
		return err
	}

	s.cmd = cmd
	waitDone := make(chan struct{})
	s.waitDone = waitDone
	s.state.Status = types.DevServerStarting
	s.state.PID = cmd.Process.Pid
	s.state.StartedAt = nil
	s.logger.Info("devserver_spawned",
		logging.F("pid", cmd.Process.Pid),
		logging.F("port", s.cfg.Port),
	)

	go s.pipeLogs(stdout)
	go s.pipeLogs(stderr)
	go s.probeLoop(cmd)
	go func() {
		err := cmd.Wait()
		close(waitDone)
		s.onExit(cmd, err)
	}()
	return nil
}

func (s *Supervisor) pipeLogs(pipe interface{ Read([]byte) (int, error) }) {
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := xansi.Strip(scanner.Text())
		s.logs.Broadcast(LogLine{Line: line, At: time.Now().UTC()})
	}
}

// probeLoop polls the port with short-interval HTTP probes until any
// response is observed or the startup timeout elapses.
func (s *Supervisor) probeLoop(cmd *exec.Cmd) {
	client := &http.Client{Timeout: s.cfg.ProbeInterval * 2}
	url := fmt.Sprintf("http://127.0.0.1:%d/", s.cfg.Port)
	deadline := time.Now().Add(s.cfg.StartupTimeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			s.mu.Lock()
			if s.cmd == cmd && s.state.Status == types.DevServerStarting {
				now := time.Now().UTC()
				s.state.Status = types.DevServerRunning
				s.state.StartedAt = &now
				// A healthy process opens a fresh crash window: only
				// crashes in direct succession count against backoff.
				s.crashes = 0
				s.logger.Info("devserver_healthy", logging.F("port", s.cfg.Port))
			}
			s.mu.Unlock()
			return
		}
		s.mu.Lock()
		stale := s.cmd != cmd
		s.mu.Unlock()
		if stale {
			return
		}
		time.Sleep(s.cfg.ProbeInterval)
	}
	s.logger.Warn("devserver_probe_timeout", logging.F("port", s.cfg.Port))
}

// Restart is the manual restart path. It tears down the watcher, resets
// the consecutive-crash counter, and respawns.
func (s *Supervisor) Restart() error {
	s.mu.Lock()
	if s.cmd == nil {
		s.mu.Unlock()
		return ErrNoProcess
	}
	if s.restarting {
		s.mu.Unlock()
		return errors.New("restart already in progress")
	}
	s.restarting = true
	s.crashes = 0
	s.mu.Unlock()
	return s.restart()
}

// restart performs the shared restart sequence. Exactly one may be in
// flight; callers set s.restarting before entering.
func (s *Supervisor) restart() error {
	s.mu.Lock()
	s.cancelTimerLocked()
	s.teardownWatcherLocked()
	s.state.Status = types.DevServerRestarting
	cmd := s.cmd
	waitDone := s.waitDone
	s.mu.Unlock()

	if cmd != nil {
		s.terminate(cmd, waitDone)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmd = nil
	s.state.PID = 0
	s.restarting = false
	s.state.RestartCount++
	if err := s.spawnLocked(); err != nil {
		s.logger.Warn("devserver_restart_failed", logging.F("error", err))
		s.state.Status = types.DevServerCrashed
		s.state.LastError = err.Error()
		s.armWatcherLocked()
		return err
	}
	return nil
}

// terminate sends a graceful signal, waits up to the grace period for
// the spawn goroutine's Wait to observe the exit, then force-kills.
func (s *Supervisor) terminate(cmd *exec.Cmd, waitDone chan struct{}) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	if waitDone == nil {
		return
	}
	select {
	case <-waitDone:
	case <-time.After(s.cfg.GracePeriod):
		_ = cmd.Process.Kill()
		<-waitDone
	}
}

func (s *Supervisor) onExit(cmd *exec.Cmd, err error) {
	s.mu.Lock()
	if s.cmd != cmd {
		// A replaced process exiting during restart teardown.
		s.mu.Unlock()
		return
	}
	s.cmd = nil
	s.state.PID = 0
	if s.state.Status == types.DevServerRestarting || s.state.Status == types.DevServerStopped {
		// Intentional shutdown.
		s.mu.Unlock()
		return
	}

	if err != nil {
		s.state.LastError = err.Error()
	} else {
		s.state.LastError = "exited unexpectedly"
	}
	s.state.Status = types.DevServerCrashed
	s.crashes++
	crashes := s.crashes
	s.logger.Warn("devserver_crashed",
		logging.F("consecutive", crashes),
		logging.F("error", s.state.LastError),
	)

	if crashes == 1 {
		delay := backoffDelay(crashes, s.cfg.BackoffBase, s.cfg.BackoffMax)
		s.restartTimer = time.AfterFunc(delay, s.autoRestart)
		s.logger.Info("devserver_auto_restart_scheduled", logging.F("delay", delay))
	} else {
		// Second consecutive crash: stop retrying, wait for a fix.
		s.armWatcherLocked()
	}
	s.mu.Unlock()
}

func (s *Supervisor) autoRestart() {
	s.mu.Lock()
	if s.restarting || s.state.Status == types.DevServerStopped {
		s.mu.Unlock()
		return
	}
	s.restarting = true
	s.mu.Unlock()
	_ = s.restart()
}

// onWatchChange is the file-watch fallback: a source change resets the
// crash counter and earns one fresh restart attempt.
func (s *Supervisor) onWatchChange() {
	s.mu.Lock()
	if s.restarting || s.state.Status == types.DevServerStopped {
		s.mu.Unlock()
		return
	}
	s.restarting = true
	s.crashes = 0
	s.mu.Unlock()
	s.logger.Info("devserver_restart_on_file_change")
	_ = s.restart()
}

func (s *Supervisor) armWatcherLocked() {
	if s.watcher != nil {
		return
	}
	root := s.cfg.Dir
	if root == "" {
		root = "."
	}
	watcher, err := newFileWatcher(watchConfig{
		Root:       root,
		Extensions: s.cfg.WatchExts,
		IgnoreDirs: s.cfg.WatchIgnore,
		Debounce:   s.cfg.WatchDebounce,
	}, s.onWatchChange, s.logger)
	if err != nil {
		s.logger.Warn("devserver_watch_arm_failed", logging.F("error", err))
		return
	}
	s.watcher = watcher
	s.logger.Info("devserver_watch_armed", logging.F("root", root))
}

func (s *Supervisor) teardownWatcherLocked() {
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
}

func (s *Supervisor) cancelTimerLocked() {
	if s.restartTimer != nil {
		s.restartTimer.Stop()
		s.restartTimer = nil
	}
}

// Stop shuts the process down intentionally; no recovery is attempted.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.cancelTimerLocked()
	s.teardownWatcherLocked()
	s.state.Status = types.DevServerStopped
	cmd := s.cmd
	waitDone := s.waitDone
	s.cmd = nil
	s.state.PID = 0
	s.mu.Unlock()

	if cmd != nil {
		s.terminate(cmd, waitDone)
	}
}

func (s *Supervisor) State() types.DevServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) RecentLogs() []LogLine {
	return s.logs.Recent()
}

func (s *Supervisor) SubscribeLogs() (<-chan LogLine, func()) {
	return s.logs.Subscribe()
}

func backoffDelay(crashes int, base, max time.Duration) time.Duration {
	if crashes < 1 {
		crashes = 1
	}
	delay := base << (crashes - 1)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}
