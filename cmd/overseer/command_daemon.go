package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"overseer/internal/client"
	"overseer/internal/comparison"
	"overseer/internal/config"
	"overseer/internal/daemon"
	"overseer/internal/devserver"
	"overseer/internal/gate"
	"overseer/internal/logging"
	"overseer/internal/providers"
	"overseer/internal/session"
	"overseer/internal/store"
	"overseer/internal/stream"
)

func runDaemonCommand(args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	background := fs.Bool("background", false, "run in background (logs to file)")
	kill := fs.Bool("kill", false, "stop any running daemon and exit")
	force := fs.Bool("force", false, "stop any running daemon before starting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kill {
		return killDaemon()
	}
	if *force {
		if err := killDaemon(); err != nil {
			return err
		}
	}
	return runDaemon(*background)
}

func runDaemon(background bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOut, closeLog, err := daemonLogOutput(background)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}
	logger := logging.New(logOut, logging.ParseLevel(cfg.LogLevel()))

	projectDir, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(config.ProjectStateDir(projectDir), 0o755); err != nil {
		return err
	}

	registry := providers.NewRegistry(cfg.Providers)
	historyStore := store.NewFileHistoryStore(config.HistoryPath(projectDir))
	sess := session.New(registry.StatefulExternal, historyStore, logger)
	confirmations := gate.New(logger)
	supervisor := stream.NewSupervisor(sess, registry, providers.NewRegistryResolver(registry), confirmations, projectDir, logger)

	dev := devserver.NewSupervisor(devserver.Config{
		Command:        cfg.App.Command,
		Args:           cfg.App.Args,
		Dir:            projectDir,
		Port:           cfg.App.Port,
		StartupTimeout: time.Duration(cfg.App.StartupTimeoutMs) * time.Millisecond,
		WatchExts:      cfg.Watcher.Extensions,
		WatchIgnore:    cfg.Watcher.IgnoreDirs,
		WatchDebounce:  time.Duration(cfg.Watcher.DebounceMs) * time.Millisecond,
	}, logger)

	orchestrator := comparison.New(comparison.Options{
		Dir:          projectDir,
		Store:        store.NewFileComparisonStore(config.ComparisonStatePath(projectDir)),
		MaxRuns:      cfg.Comparison.MaxRuns,
		BranchPrefix: cfg.Comparison.BranchPrefix,
		// A run switch lands on a different branch with different code;
		// conversation history and pending confirmations no longer apply.
		OnRunSwitch: func() {
			sess.Reset()
			confirmations.Reset()
		},
		Logger: logger,
	})
	if err := orchestrator.Resume(); err != nil {
		logger.Warn("comparison_resume_failed", logging.F("error", err))
	}

	if cfg.App.AutoStart && strings.TrimSpace(cfg.App.Command) != "" {
		if err := dev.Start(); err != nil {
			logger.Warn("devserver_autostart_failed", logging.F("error", err))
		}
	}

	api := &daemon.API{
		Version:    buildVersion(),
		Started:    time.Now(),
		Stream:     supervisor,
		Session:    sess,
		Gate:       confirmations,
		Comparison: orchestrator,
		DevServer:  dev,
		Registry:   registry,
		Logger:     logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return daemon.New(cfg.DaemonAddress(), api, logger).Run(ctx)
}

func daemonLogOutput(background bool) (*os.File, func(), error) {
	if !background {
		return os.Stderr, nil, nil
	}
	logPath, err := config.DaemonLogPath()
	if err != nil {
		return nil, nil, err
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

func killDaemon() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.ShutdownDaemon(ctx); err == nil {
		return nil
	} else {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil
		}
		if isDaemonUnavailable(err) {
			return nil
		}
	}
	resp, err := c.Health(ctx)
	if err != nil {
		if isDaemonUnavailable(err) {
			return nil
		}
		return err
	}
	if resp == nil || resp.PID <= 0 {
		return nil
	}
	return terminatePID(resp.PID)
}

func terminatePID(pid int) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

func isDaemonUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "connection refused") || strings.Contains(lower, "connect: connection refused")
}
