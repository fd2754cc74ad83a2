package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs registered tasks on their cron expressions.
// A task whose previous tick is still running skips the new one.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	tasks  []Task
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. Tasks must be registered before Start().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		locks:  make(map[string]*sync.Mutex),
		logger: logger.With("component", "scheduler"),
	}
}

// Register adds a task. Must be called before Start().
// Returns an error if a task with the same name is already registered or
// its schedule does not parse.
func (s *Scheduler) Register(t Task) error {
	if _, err := ParseSchedule(t.Schedule()); err != nil {
		return fmt.Errorf("cron: invalid schedule for task %q: %w", t.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := t.Name()
	if _, exists := s.locks[name]; exists {
		return fmt.Errorf("cron: duplicate task name %q", name)
	}
	s.locks[name] = &sync.Mutex{}
	s.tasks = append(s.tasks, t)
	return nil
}

// Tasks returns the registered task names in registration order.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.Name()
	}
	return names
}

// Start begins executing registered tasks.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("cron: scheduler already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = cron.New(cron.WithParser(parser))

	for _, t := range s.tasks {
		task, lock := t, s.locks[t.Name()]
		if _, err := s.cron.AddFunc(task.Schedule(), func() { s.run(ctx, task, lock) }); err != nil {
			cancel()
			s.cron = nil
			return fmt.Errorf("cron: invalid schedule for task %q: %w", task.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "tasks", len(s.tasks))
	return nil
}

// RunNow executes the named task once, outside its schedule. It honours the
// same overlap guard as scheduled ticks and reports whether the task ran.
func (s *Scheduler) RunNow(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	var task Task
	for _, t := range s.tasks {
		if t.Name() == name {
			task = t
			break
		}
	}
	lock := s.locks[name]
	s.mu.Unlock()

	if task == nil {
		return false, fmt.Errorf("cron: unknown task %q", name)
	}
	if !lock.TryLock() {
		return false, nil
	}
	defer lock.Unlock()
	return true, task.Run(ctx)
}

func (s *Scheduler) run(ctx context.Context, task Task, lock *sync.Mutex) {
	// TryLock is atomic: no race between check and acquire.
	if !lock.TryLock() {
		s.logger.Warn("task still running, skipping tick", "task", task.Name())
		return
	}
	defer lock.Unlock()

	s.logger.Debug("task started", "task", task.Name())
	if err := task.Run(ctx); err != nil {
		s.logger.Error("task failed", "task", task.Name(), "error", err)
		return
	}
	s.logger.Debug("task completed", "task", task.Name())
}

// Stop shuts down the scheduler, waiting for in-flight tasks.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
		s.logger.Info("scheduler stopped")
	}
	return nil
}
