package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/flemzord/sclaw-console/internal/config"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/console"
	"github.com/flemzord/sclaw-console/internal/cron"
	"github.com/flemzord/sclaw-console/internal/gateway"
	"github.com/flemzord/sclaw-console/internal/history"
	"github.com/flemzord/sclaw-console/internal/rpc"
	"github.com/flemzord/sclaw-console/internal/security"
	"github.com/flemzord/sclaw-console/internal/telemetry"
)

// Options configures New.
type Options struct {
	Config  *config.Config
	Version string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer
}

// App owns every long-lived component of the console: the gateway
// connection, the session, the snapshot history, the scheduler and the
// HTTP API.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	redactor  *security.Redactor
	telemetry *telemetry.Setup
	metrics   *gateway.Metrics
	conn      *rpc.Reconnector
	history   history.Store
	session   *console.Session
	scheduler *cron.Scheduler
	server    *gateway.Server
}

// New builds the application from a validated configuration. Nothing
// talks to the gateway until Start or the first session call.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}

	redactor := security.NewRedactor()
	redactor.AddLiteral(cfg.Gateway.Token)
	redactor.AddLiteral(cfg.HTTP.Auth.BearerToken)
	redactor.AddLiteral(cfg.HTTP.Auth.BasicPass)
	logger := security.NewLogger(slog.NewTextHandler(out, &slog.HandlerOptions{Level: opts.LogLevel}), redactor)

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		redactor:  redactor,
		telemetry: tel,
		metrics:   gateway.NewMetrics(),
	}
	a.conn = rpc.NewReconnector(rpc.Options{
		URL:           cfg.Gateway.URL,
		Token:         cfg.Gateway.Token,
		ClientVersion: opts.Version,
		DialTimeout:   cfg.Gateway.DialTimeout,
		CallTimeout:   cfg.Gateway.CallTimeout,
		Logger:        logger,
		Tracer:        tel.Tracer(),
		Observer:      a.metrics,
	})

	a.history, err = openHistory(ctx, cfg.History, logger)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}
	api := rpc.NewAPI(a.conn)
	a.session = wireSession(api, cfg.Gateway.CallTimeout, history.NewRecorder(a.history, cfg.History.Limit, logger), a.metrics, redactor, logger)

	a.scheduler, err = wireScheduler(cfg.History, a.history, a.session.Cron, logger)
	if err != nil {
		_ = a.history.Close()
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	a.server = gateway.New(gateway.Options{
		HTTP:     cfg.HTTP,
		Session:  a.session,
		History:  a.history,
		Metrics:  a.metrics,
		Redactor: redactor,
		Gateway:  a.conn,
		Narrow:   api,
		Apply:    configsync.ApplyOptions{RestartDelay: cfg.Apply.RestartDelay},
		Version:  opts.Version,
		Logger:   logger,
	})
	return a, nil
}

// Logger returns the redacting application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Session returns the console session.
func (a *App) Session() *console.Session { return a.session }

// History returns the snapshot history store.
func (a *App) History() history.Store { return a.history }

// Caller returns the gateway connection for raw RPC calls.
func (a *App) Caller() rpc.Caller { return a.conn }

// Redactor returns the redactor fed with every loaded document.
func (a *App) Redactor() *security.Redactor { return a.redactor }

// Handler returns the HTTP API handler.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Load fetches the configuration and approvals from the gateway and
// registers the document's secrets with the redactor.
func (a *App) Load(ctx context.Context) error {
	err := a.session.Load(ctx)
	if snap, ok := a.session.Config.Snapshot(); ok {
		a.redactor.RegisterDocument(snap.Document)
	}
	return err
}

// Start loads the session and starts the scheduler and the HTTP API. An
// unreachable gateway is not fatal: the API reports it through /health
// and the session can be reloaded later.
func (a *App) Start(ctx context.Context) error {
	if err := a.Load(ctx); err != nil {
		a.logger.Warn("initial load failed", "url", a.cfg.Gateway.URL, "error", err)
	}
	if err := a.scheduler.Start(); err != nil {
		return err
	}
	if err := a.server.Start(ctx); err != nil {
		_ = a.scheduler.Stop(ctx)
		return err
	}
	return nil
}

// Stop releases every component. It is safe to call without Start.
func (a *App) Stop(ctx context.Context) error {
	return errors.Join(
		a.server.Stop(ctx),
		a.scheduler.Stop(ctx),
		a.conn.Close(),
		a.history.Close(),
		a.telemetry.Shutdown(ctx),
	)
}
