package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/flemzord/sclaw-console/internal/configsync"
)

const recordTimeout = 5 * time.Second

// Recorder writes committed snapshots into a Store and keeps it bounded.
type Recorder struct {
	store  Store
	limit  int
	logger *slog.Logger
}

// NewRecorder creates a Recorder. A positive limit prunes the store after
// every record.
func NewRecorder(store Store, limit int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  store,
		limit:  limit,
		logger: logger.With("component", "history"),
	}
}

// Record stores snap as committed by op.
func (r *Recorder) Record(ctx context.Context, op string, snap configsync.Snapshot) error {
	e, err := EntryFromSnapshot(op, snap)
	if err != nil {
		return err
	}
	id, err := r.store.Record(ctx, e)
	if err != nil {
		return err
	}
	r.logger.Debug("snapshot recorded", "id", id, "op", op, "hash", snap.Hash)

	if r.limit > 0 {
		removed, err := r.store.Prune(ctx, r.limit)
		if err != nil {
			return err
		}
		if removed > 0 {
			r.logger.Debug("history pruned", "removed", removed)
		}
	}
	return nil
}

// OnCommit adapts Record to configsync.Options.OnCommit. Failures are only
// logged.
func (r *Recorder) OnCommit(op string, snap configsync.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.Record(ctx, op, snap); err != nil {
		r.logger.Warn("history record failed", "op", op, "error", err)
	}
}
