package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/flemzord/sclaw-console/internal/configsync"
)

// Errors returned by the Panel.
var (
	ErrUnknownJob = errors.New("cron: unknown job")
	ErrEmptyJobID = errors.New("cron: job id is required")
)

// Remote is the subset of the gateway API the panel uses. Each method maps
// to one narrow cron.* operation; none of them touch the config document.
type Remote interface {
	ListCronJobs(ctx context.Context) ([]Job, error)
	AddCronJob(ctx context.Context, job Job) (Job, error)
	UpdateCronJob(ctx context.Context, id string, patch map[string]any) (Job, error)
	RemoveCronJob(ctx context.Context, id string) error
	RunCronJob(ctx context.Context, id string) error
}

// Panel caches the gateway's cron job list and submits edits one at a time.
type Panel struct {
	remote Remote
	logger *slog.Logger
	busy   atomic.Bool

	mu     sync.Mutex
	jobs   []Job
	loaded bool
}

// NewPanel creates a Panel. A nil logger uses slog.Default().
func NewPanel(remote Remote, logger *slog.Logger) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{remote: remote, logger: logger.With("component", "cron")}
}

// Refresh reloads the job list from the gateway.
func (p *Panel) Refresh(ctx context.Context) error {
	jobs, err := p.remote.ListCronJobs(ctx)
	if err != nil {
		return fmt.Errorf("cron: list: %w", err)
	}
	p.mu.Lock()
	p.jobs = jobs
	p.loaded = true
	p.mu.Unlock()
	return nil
}

// Loaded reports whether Refresh succeeded at least once.
func (p *Panel) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Jobs returns a copy of the cached job list.
func (p *Panel) Jobs() []Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.jobs)
}

// Job returns the cached job with the given id.
func (p *Panel) Job(id string) (Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.index(id)
	if i < 0 {
		return Job{}, false
	}
	return p.jobs[i], true
}

// Add validates job and submits it. The gateway assigns the id.
func (p *Panel) Add(ctx context.Context, job Job) (Job, error) {
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	job.ID = ""
	job.State = nil

	var added Job
	err := p.guard(func() error {
		var err error
		added, err = p.remote.AddCronJob(ctx, job)
		if err != nil {
			return fmt.Errorf("cron: add: %w", err)
		}
		p.mu.Lock()
		p.jobs = append(p.jobs, added)
		p.mu.Unlock()
		return nil
	})
	if err == nil {
		p.logger.Info("cron job added", "id", added.ID, "name", added.Name)
	}
	return added, err
}

// SetEnabled toggles a job.
func (p *Panel) SetEnabled(ctx context.Context, id string, enabled bool) (Job, error) {
	return p.update(ctx, id, map[string]any{"enabled": enabled})
}

// Update validates the merged job and sends the patch.
func (p *Panel) Update(ctx context.Context, id string, job Job) (Job, error) {
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return p.update(ctx, id, map[string]any{
		"name":          job.Name,
		"description":   job.Description,
		"enabled":       job.Enabled,
		"agentId":       job.AgentID,
		"schedule":      job.Schedule,
		"sessionTarget": job.SessionTarget,
		"payload":       job.Payload,
	})
}

func (p *Panel) update(ctx context.Context, id string, patch map[string]any) (Job, error) {
	if id == "" {
		return Job{}, ErrEmptyJobID
	}
	var updated Job
	err := p.guard(func() error {
		var err error
		updated, err = p.remote.UpdateCronJob(ctx, id, patch)
		if err != nil {
			return fmt.Errorf("cron: update %s: %w", id, err)
		}
		p.mu.Lock()
		if i := p.index(id); i >= 0 {
			p.jobs[i] = updated
		} else {
			p.jobs = append(p.jobs, updated)
		}
		p.mu.Unlock()
		return nil
	})
	return updated, err
}

// Remove deletes a job.
func (p *Panel) Remove(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyJobID
	}
	return p.guard(func() error {
		if err := p.remote.RemoveCronJob(ctx, id); err != nil {
			return fmt.Errorf("cron: remove %s: %w", id, err)
		}
		p.mu.Lock()
		if i := p.index(id); i >= 0 {
			p.jobs = slices.Delete(p.jobs, i, i+1)
		}
		p.mu.Unlock()
		p.logger.Info("cron job removed", "id", id)
		return nil
	})
}

// Run asks the gateway to fire a job immediately.
func (p *Panel) Run(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyJobID
	}
	if err := p.remote.RunCronJob(ctx, id); err != nil {
		return fmt.Errorf("cron: run %s: %w", id, err)
	}
	return nil
}

// guard serializes mutations. A second concurrent mutation fails with
// configsync.ErrBusy without reaching the gateway.
func (p *Panel) guard(fn func() error) error {
	if !p.busy.CompareAndSwap(false, true) {
		return configsync.ErrBusy
	}
	defer p.busy.Store(false)
	return fn()
}

// index returns the position of id in the cache. Must be called with mu held.
func (p *Panel) index(id string) int {
	return slices.IndexFunc(p.jobs, func(j Job) bool { return j.ID == id })
}
