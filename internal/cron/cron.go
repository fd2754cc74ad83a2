// Package cron covers both sides of scheduling in the console: the remote
// cron job panel (jobs the gateway runs for its agents, validated locally
// before submission) and a small scheduler for the console's own periodic
// tasks such as history pruning.
package cron

import "context"

// Task defines a periodic background task run by the console itself.
type Task interface {
	// Name returns a unique identifier for this task (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "*/5 * * * *").
	Schedule() string

	// Run executes the task. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}
