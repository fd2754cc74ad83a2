// Package reload watches the console configuration file and reports when
// its content changes, so the running console can be rebuilt in place.
package reload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is used when NewWatcher gets a non-positive interval.
const DefaultPollInterval = 5 * time.Second

// Watcher polls a file and emits its path whenever the content differs
// from the last seen content. A missing or unreadable file is skipped
// until it reappears, so editors that replace the file atomically do not
// produce spurious events.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger

	changes chan string
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		interval: interval,
		logger:   logger.With("component", "reload"),
		changes:  make(chan string, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start records the current content and begins polling. Only the first
// call has an effect.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		last, _ := fingerprint(w.path)
		go w.poll(ctx, last)
	})
}

// Changes delivers the watched path after each content change. Changes
// seen while an event is still pending are coalesced into it.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Stop ends polling. Safe to call multiple times and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) poll(ctx context.Context, last string) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			current, ok := fingerprint(w.path)
			if !ok || current == last {
				continue
			}
			last = current
			w.logger.Debug("config file changed", "path", w.path)
			select {
			case w.changes <- w.path:
			default:
			}
		}
	}
}

func fingerprint(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), true
}
