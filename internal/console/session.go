// Package console ties the configuration store, the exec-approvals store
// and the cron panel into one editing session with a combined save and
// apply.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/sclaw-console/internal/approvals"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/flemzord/sclaw-console/internal/cron"
)

// Session is one operator's view of a gateway.
type Session struct {
	Config    *configsync.Store
	Approvals *approvals.Store
	// Cron is optional.
	Cron *cron.Panel

	logger *slog.Logger
}

// New creates a session over the given stores.
func New(cfg *configsync.Store, appr *approvals.Store, panel *cron.Panel, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		Config:    cfg,
		Approvals: appr,
		Cron:      panel,
		logger:    logger.With("component", "session"),
	}
}

// Load fetches the configuration, the approvals file and the cron jobs.
// Each part loads independently; failures are joined.
func (s *Session) Load(ctx context.Context) error {
	var errs []error
	if err := s.Config.Load(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Approvals.Load(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.Cron != nil {
		if err := s.Cron.Refresh(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reload drops every unsaved edit and loads again.
func (s *Session) Reload(ctx context.Context) error {
	s.logger.Info("reloading session")
	return s.Load(ctx)
}

// Discard drops unsaved edits without contacting the gateway.
func (s *Session) Discard() {
	s.Config.Discard()
	s.Approvals.Discard()
}

// IsDirty reports whether any configuration domain or the approvals file
// has unsaved edits.
func (s *Session) IsDirty() bool {
	return s.Config.IsDirtyOverall() || s.Approvals.IsDirty()
}

// Save writes the approvals file if dirty, then the configuration if dirty.
// The two writes are independent: a failure of one does not prevent the
// other, and both errors are returned.
func (s *Session) Save(ctx context.Context) error {
	var errs []error
	if s.Approvals.IsDirty() {
		if err := s.Approvals.Save(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Config.IsDirtyOverall() {
		if err := s.Config.Save(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		s.logger.Info("session saved")
	}
	return errors.Join(errs...)
}

// Apply saves the approvals file if dirty, then applies the configuration,
// which restarts the gateway. The apply runs even when the approvals save
// failed.
func (s *Session) Apply(ctx context.Context, opts configsync.ApplyOptions) error {
	var errs []error
	if s.Approvals.IsDirty() {
		if err := s.Approvals.Save(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.Config.Apply(ctx, opts); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		s.logger.Info("configuration applied", "restart_delay", opts.RestartDelay)
	}
	return errors.Join(errs...)
}

// Status summarizes the session for display.
type Status struct {
	Loaded          bool                `json:"loaded"`
	Path            string              `json:"path,omitempty"`
	Hash            string              `json:"hash,omitempty"`
	Valid           bool                `json:"valid"`
	Issues          []configsync.Issue  `json:"issues,omitempty"`
	WriteState      string              `json:"write_state"`
	Dirty           []configsync.Domain `json:"dirty"`
	ApprovalsTarget string              `json:"approvals_target"`
	ApprovalsLoaded bool                `json:"approvals_loaded"`
	ApprovalsDirty  bool                `json:"approvals_dirty"`
	CronJobs        int                 `json:"cron_jobs"`
}

// Status returns the current session status.
func (s *Session) Status() Status {
	st := Status{
		WriteState:      s.Config.State().String(),
		Dirty:           s.Config.Dirty(),
		ApprovalsTarget: s.Approvals.Target().String(),
		ApprovalsLoaded: s.Approvals.Loaded(),
		ApprovalsDirty:  s.Approvals.IsDirty(),
	}
	if st.Dirty == nil {
		st.Dirty = []configsync.Domain{}
	}
	if snap, ok := s.Config.Snapshot(); ok {
		st.Loaded = true
		st.Path = snap.Path
		st.Hash = snap.Hash
		st.Valid = snap.Valid
		st.Issues = snap.Issues
	}
	if s.Cron != nil {
		st.CronJobs = len(s.Cron.Jobs())
	}
	return st
}

// String renders a one-line summary.
func (st Status) String() string {
	if !st.Loaded {
		return "not loaded"
	}
	return fmt.Sprintf("hash=%s state=%s dirty=%d approvals(%s) dirty=%t",
		st.Hash, st.WriteState, len(st.Dirty), st.ApprovalsTarget, st.ApprovalsDirty)
}
