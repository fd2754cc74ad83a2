package cron_test

import (
	"context"
	"testing"

	"github.com/flemzord/sclaw-console/internal/cron"
	"github.com/flemzord/sclaw-console/internal/cron/crontest"
	"github.com/flemzord/sclaw-console/internal/history"
)

func TestHistoryPruneTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := history.NewMemoryStore()
	for range 4 {
		if _, err := store.Record(ctx, history.Entry{Op: "save", Raw: "{}"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	task := &cron.HistoryPruneTask{Store: store, Keep: 1}
	if task.Schedule() != "0 * * * *" {
		t.Errorf("default schedule = %q", task.Schedule())
	}
	if err := task.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	entries, _ := store.List(ctx, 0)
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestRefreshTask(t *testing.T) {
	t.Parallel()

	remote := crontest.NewMockRemote(cron.Job{ID: "job-1", Name: "existing"})
	panel := cron.NewPanel(remote, nil)
	task := &cron.RefreshTask{Panel: panel, ScheduleExpr: "*/1 * * * *"}

	s := cron.NewScheduler(nil)
	if err := s.Register(task); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ran, err := s.RunNow(context.Background(), "cron_refresh")
	if err != nil || !ran {
		t.Fatalf("RunNow = %v, %v", ran, err)
	}
	if got := panel.Jobs(); len(got) != 1 || got[0].ID != "job-1" {
		t.Errorf("jobs = %+v", got)
	}
}
