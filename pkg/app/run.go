// Package app provides the shared entry point of the sclaw-console binary:
// it wires the gateway connection, the console session, the snapshot
// history, the scheduler and the HTTP API, and runs them until a signal.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flemzord/sclaw-console/internal/config"
	"github.com/flemzord/sclaw-console/internal/reload"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.Find searches the standard locations.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// LoadConfig resolves, loads and validates the configuration. A .env file
// in the working directory is loaded first so ${VAR} references resolve.
func LoadConfig(explicit string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, "", err
	}
	path, err := config.Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, path, nil
}

// Run loads configuration, starts the console, and blocks until a shutdown
// signal is received. SIGHUP reloads the session from the gateway,
// discarding unsaved edits. A change to the configuration file rebuilds
// the console with the new settings; an invalid file keeps the running one.
func Run(params RunParams) error {
	cfg, path, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	application, err := start(ctx, cfg, params)
	if err != nil {
		return err
	}
	logger := application.Logger()
	logger.Info("sclaw-console started", "version", params.Version, "commit", params.Commit, "config", path)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watcher := reload.NewWatcher(path, 0, logger)
	watcher.Start(ctx)
	defer watcher.Stop()

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("SIGHUP received, reloading session")
				if err := application.Load(ctx); err != nil {
					logger.Error("reload failed", "error", err)
				}
				continue
			}
			logger.Info("shutdown signal received", "signal", sig.String())
			if err := application.Stop(ctx); err != nil {
				logger.Error("shutdown failed", "error", err)
				return err
			}
			logger.Info("shutdown complete")
			return nil

		case changed := <-watcher.Changes():
			logger.Info("config file changed, restarting console", "path", changed)
			next, err := restart(ctx, application, changed, params)
			if err != nil {
				logger.Error("restart failed", "error", err)
			}
			if next != nil {
				application = next
				logger = next.Logger()
			}
		}
	}
}

func start(ctx context.Context, cfg *config.Config, params RunParams) (*App, error) {
	a, err := New(ctx, Options{
		Config:   cfg,
		Version:  params.Version,
		LogLevel: params.LogLevel,
	})
	if err != nil {
		return nil, err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(ctx)
		return nil, err
	}
	return a, nil
}

// restart validates the file at path and swaps the running console for one
// built from it. When the file is invalid it returns nil and the running
// console stays up. When the new console fails to start, the previous
// configuration is started again. Unsaved edits of the old session are
// lost.
func restart(ctx context.Context, current *App, path string, params RunParams) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if current.session.IsDirty() {
		current.logger.Warn("discarding unsaved edits on restart")
	}
	if err := current.Stop(ctx); err != nil {
		current.logger.Warn("stopping previous console", "error", err)
	}
	next, err := start(ctx, cfg, params)
	if err == nil {
		return next, nil
	}
	// Bring the previous configuration back up.
	prev, perr := start(ctx, current.cfg, params)
	return prev, errors.Join(err, perr)
}
