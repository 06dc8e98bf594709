package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"overseer/internal/logging"
)

// Daemon owns the HTTP server fronting the stream supervisor, the
// confirmation gate, the comparison orchestrator, and the dev-server
// supervisor.
type Daemon struct {
	addr   string
	api    *API
	logger logging.Logger
	server *http.Server
}

func New(addr string, api *API, logger logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Daemon{addr: addr, api: api, logger: logger}
}

// Run serves the API until ctx is cancelled or the server stops. On the
// way out it aborts any in-flight stream and stops the dev server so no
// child process outlives the daemon.
func (d *Daemon) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	d.api.RegisterRoutes(mux)

	d.server = &http.Server{
		Addr:    d.addr,
		Handler: LoggingMiddleware(d.logger, mux),
	}
	d.api.Shutdown = d.server.Shutdown

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("daemon_listening", logging.F("addr", d.addr))
		errCh <- d.server.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		runErr = d.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	d.teardown()
	return runErr
}

func (d *Daemon) teardown() {
	if d.api.Stream != nil {
		d.api.Stream.Abort()
	}
	if d.api.DevServer != nil {
		d.api.DevServer.Stop()
	}
	d.logger.Info("daemon_stopped")
}
