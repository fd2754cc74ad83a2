// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/sclaw-console/internal/cron"
)

// MockTask is a configurable test double for cron.Task.
type MockTask struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu       sync.Mutex
	calls    int
	lastCall time.Time
}

// Compile-time interface check.
var _ cron.Task = (*MockTask)(nil)

// Name implements cron.Task.
func (m *MockTask) Name() string { return m.NameVal }

// Schedule implements cron.Task.
func (m *MockTask) Schedule() string { return m.ScheduleVal }

// Run implements cron.Task and increments the call counter.
func (m *MockTask) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.lastCall = time.Now()
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockTask) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastCall returns the time of the last Run call.
func (m *MockTask) LastCall() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCall
}

// MockRemote is an in-memory cron.Remote.
type MockRemote struct {
	// Err, when set, is returned by every call.
	Err error
	// Block, when set, makes AddCronJob wait until it is closed.
	Block chan struct{}

	Calls atomic.Int32
	Runs  atomic.Int32

	mu   sync.Mutex
	jobs []cron.Job
	next int
}

// Compile-time interface check.
var _ cron.Remote = (*MockRemote)(nil)

// NewMockRemote creates a remote holding jobs.
func NewMockRemote(jobs ...cron.Job) *MockRemote {
	return &MockRemote{jobs: jobs, next: len(jobs) + 1}
}

// ListCronJobs implements cron.Remote.
func (m *MockRemote) ListCronJobs(_ context.Context) ([]cron.Job, error) {
	m.Calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.jobs), nil
}

// AddCronJob implements cron.Remote.
func (m *MockRemote) AddCronJob(ctx context.Context, job cron.Job) (cron.Job, error) {
	m.Calls.Add(1)
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return cron.Job{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return cron.Job{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = fmt.Sprintf("job-%d", m.next)
	m.next++
	m.jobs = append(m.jobs, job)
	return job, nil
}

// UpdateCronJob implements cron.Remote. Only the enabled and name fields
// of the patch are applied.
func (m *MockRemote) UpdateCronJob(_ context.Context, id string, patch map[string]any) (cron.Job, error) {
	m.Calls.Add(1)
	if m.Err != nil {
		return cron.Job{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.jobs {
		if m.jobs[i].ID != id {
			continue
		}
		if v, ok := patch["enabled"].(bool); ok {
			m.jobs[i].Enabled = v
		}
		if v, ok := patch["name"].(string); ok {
			m.jobs[i].Name = v
		}
		return m.jobs[i], nil
	}
	return cron.Job{}, cron.ErrUnknownJob
}

// RemoveCronJob implements cron.Remote.
func (m *MockRemote) RemoveCronJob(_ context.Context, id string) error {
	m.Calls.Add(1)
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.jobs, func(j cron.Job) bool { return j.ID == id })
	if i < 0 {
		return cron.ErrUnknownJob
	}
	m.jobs = slices.Delete(m.jobs, i, i+1)
	return nil
}

// RunCronJob implements cron.Remote.
func (m *MockRemote) RunCronJob(_ context.Context, _ string) error {
	m.Calls.Add(1)
	m.Runs.Add(1)
	return m.Err
}
