package cron

import (
	"context"
	"fmt"
	"log/slog"
)

// Pruner is the subset of history.Store used by HistoryPruneTask.
type Pruner interface {
	Prune(ctx context.Context, keep int) (int, error)
}

// HistoryPruneTask trims the snapshot history to the newest Keep entries.
type HistoryPruneTask struct {
	Store        Pruner
	Keep         int
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 * * * *"
}

// Compile-time interface check.
var _ Task = (*HistoryPruneTask)(nil)

// Name implements Task.
func (t *HistoryPruneTask) Name() string { return "history_prune" }

// Schedule implements Task.
func (t *HistoryPruneTask) Schedule() string {
	if t.ScheduleExpr != "" {
		return t.ScheduleExpr
	}
	return "0 * * * *"
}

// Run prunes the history store.
func (t *HistoryPruneTask) Run(ctx context.Context) error {
	if t.Keep <= 0 {
		return nil
	}
	removed, err := t.Store.Prune(ctx, t.Keep)
	if err != nil {
		return fmt.Errorf("cron: history prune: %w", err)
	}
	if removed > 0 && t.Logger != nil {
		t.Logger.Info("pruned snapshot history", "removed", removed, "keep", t.Keep)
	}
	return nil
}

// RefreshTask periodically reloads the cron panel so the job states shown
// by the console stay current.
type RefreshTask struct {
	Panel        *Panel
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"
}

// Compile-time interface check.
var _ Task = (*RefreshTask)(nil)

// Name implements Task.
func (t *RefreshTask) Name() string { return "cron_refresh" }

// Schedule implements Task.
func (t *RefreshTask) Schedule() string {
	if t.ScheduleExpr != "" {
		return t.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run refreshes the panel.
func (t *RefreshTask) Run(ctx context.Context) error {
	if err := t.Panel.Refresh(ctx); err != nil {
		return err
	}
	if t.Logger != nil {
		t.Logger.Debug("cron jobs refreshed", "count", len(t.Panel.Jobs()))
	}
	return nil
}
