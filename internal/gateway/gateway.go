// Package gateway serves the console's JSON HTTP API: health, status and
// prometheus metrics, plus the configuration, approvals, cron and history
// routes operating on one console session. It binds to loopback by
// default.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/sclaw-console/internal/config"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/console"
	"github.com/flemzord/sclaw-console/internal/history"
	"github.com/flemzord/sclaw-console/internal/security"
)

// Connectivity reports whether the gateway connection is up.
type Connectivity interface {
	Connected() bool
}

// Options configures a Server.
type Options struct {
	HTTP    config.HTTPConfig
	Session *console.Session
	// History is optional; /api/history is not mounted without it.
	History  history.Store
	Metrics  *Metrics
	Redactor *security.Redactor
	// Gateway is optional and only feeds /health.
	Gateway Connectivity
	// Narrow is optional; /api/live is not mounted without it.
	Narrow  NarrowOps
	Apply   configsync.ApplyOptions
	Version string
	Logger  *slog.Logger
}

// Server is the console HTTP server.
type Server struct {
	opts      Options
	logger    *slog.Logger
	limiter   *security.RateLimiter
	server    *http.Server
	startedAt time.Time
}

// New creates a Server. It does not listen until Start.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Redactor == nil {
		opts.Redactor = security.NewRedactor()
	}
	return &Server{
		opts:      opts,
		logger:    logger.With("component", "http"),
		limiter:   security.NewRateLimiter(opts.HTTP.WritesPerMinute, time.Minute),
		startedAt: time.Now(),
	}
}

// Handler returns the routed handler. Start uses the same handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start listens on the configured bind address and serves in the
// background.
func (s *Server) Start(ctx context.Context) error {
	if !s.opts.HTTP.Auth.IsConfigured() {
		s.logger.Warn("no http auth configured, only /health is served")
	}

	s.server = &http.Server{
		Addr:         s.opts.HTTP.Bind,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.HTTP.ReadTimeout,
		WriteTimeout: s.opts.HTTP.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.HTTP.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		s.logger.Info("console api listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("console api serve error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	timeout := s.opts.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("console api shutting down")
	return s.server.Shutdown(shutdownCtx)
}
