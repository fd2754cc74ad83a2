package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/flemzord/sclaw-console/internal/approvals"
	"github.com/flemzord/sclaw-console/internal/config"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/console"
	"github.com/flemzord/sclaw-console/internal/cron"
	"github.com/flemzord/sclaw-console/internal/gateway"
	"github.com/flemzord/sclaw-console/internal/history"
	"github.com/flemzord/sclaw-console/internal/rpc"
	"github.com/flemzord/sclaw-console/internal/security"
	"github.com/flemzord/sclaw-console/modules/history/sqlite"
)

// openHistory opens the SQLite history at cfg.Path, or an in-memory store
// when no path is configured.
func openHistory(ctx context.Context, cfg config.HistoryConfig, logger *slog.Logger) (history.Store, error) {
	if cfg.Path == "" {
		logger.Debug("history: no path configured, keeping snapshots in memory")
		return history.NewMemoryStore(), nil
	}
	store, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Path})
	if err != nil {
		return nil, err
	}
	logger.Info("history: opened", "path", cfg.Path, "limit", cfg.Limit)
	return store, nil
}

// wireSession builds the config, approvals and cron stores over api. Every
// committed document is recorded in history and its secrets registered
// with the redactor; every write attempt is counted.
func wireSession(
	api *rpc.API,
	loadTimeout time.Duration,
	recorder *history.Recorder,
	metrics *gateway.Metrics,
	redactor *security.Redactor,
	logger *slog.Logger,
) *console.Session {
	cfgStore := configsync.New(api, configsync.Options{
		Logger:      logger,
		LoadTimeout: loadTimeout,
		OnCommit: func(op string, snap configsync.Snapshot) {
			redactor.RegisterDocument(snap.Document)
			recorder.OnCommit(op, snap)
		},
		OnWrite: metrics.ObserveWrite,
	})
	apprStore := approvals.New(api, approvals.Options{
		Logger:  logger,
		OnWrite: metrics.ObserveApprovalsWrite,
	})
	return console.New(cfgStore, apprStore, cron.NewPanel(api, logger), logger)
}

// wireScheduler registers the background tasks: history pruning and the
// periodic cron panel refresh.
func wireScheduler(cfg config.HistoryConfig, store history.Store, panel *cron.Panel, logger *slog.Logger) (*cron.Scheduler, error) {
	s := cron.NewScheduler(logger)
	if err := s.Register(&cron.HistoryPruneTask{
		Store:        store,
		Keep:         cfg.Limit,
		Logger:       logger,
		ScheduleExpr: cfg.PruneSchedule,
	}); err != nil {
		return nil, err
	}
	if err := s.Register(&cron.RefreshTask{Panel: panel, Logger: logger}); err != nil {
		return nil, err
	}
	return s, nil
}
