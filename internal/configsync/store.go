// Package configsync keeps the console's cached copy of the gateway
// configuration, the per-panel draft projections edited against it, and
// the compare-and-swap cycle that writes drafts back.
package configsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"golang.org/x/sync/singleflight"
)

// WriteState is the state of the most recent write attempt.
type WriteState int32

// Write states.
const (
	StateIdle WriteState = iota
	StateSending
	StateCommitted
	StateRejected
)

func (s WriteState) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateCommitted:
		return "committed"
	case StateRejected:
		return "rejected"
	default:
		return "idle"
	}
}

// Write operation names, as reported to Options.OnWrite.
const (
	OpSave  = "save"
	OpApply = "apply"
	OpPatch = "patch"
)

// Options configures a Store.
type Options struct {
	Logger *slog.Logger
	// OnCommit is called with the new snapshot after a write is confirmed
	// and reloaded. After an apply the snapshot carries no hash.
	OnCommit func(op string, snap Snapshot)
	// OnWrite is called once per write attempt that reached the gateway.
	OnWrite func(op string, err error)
	// LoadTimeout bounds one shared config.get. Defaults to
	// DefaultLoadTimeout.
	LoadTimeout time.Duration
}

// DefaultLoadTimeout is the Options.LoadTimeout default.
const DefaultLoadTimeout = 30 * time.Second

// Store holds the snapshot and the draft projections of one console
// session. The mutex is never held across a remote call.
type Store struct {
	remote Remote
	logger *slog.Logger
	opts   Options
	loads  singleflight.Group

	saving   atomic.Bool
	applying atomic.Bool
	patching atomic.Bool

	mu       sync.Mutex
	snap     *Snapshot
	drafts   *Drafts
	baseline *Drafts
	state    WriteState
}

// New creates a Store backed by remote.
func New(remote Remote, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		remote: remote,
		logger: logger.With("component", "configsync"),
		opts:   opts,
	}
}

// Load fetches the document and replaces the snapshot and every draft,
// discarding unsaved edits. Concurrent calls share one remote request,
// which runs detached from any single caller's cancellation and is bounded
// by Options.LoadTimeout. A caller whose ctx ends first returns ctx.Err()
// while the shared request carries on for the others.
func (s *Store) Load(ctx context.Context) error {
	ch := s.loads.DoChan("load", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout())
		defer cancel()
		snap, err := s.fetch(fctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.install(snap)
		s.mu.Unlock()
		s.logger.Debug("config loaded", "hash", snap.Hash, "valid", snap.Valid)
		return nil, nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) loadTimeout() time.Duration {
	if s.opts.LoadTimeout > 0 {
		return s.opts.LoadTimeout
	}
	return DefaultLoadTimeout
}

func (s *Store) fetch(ctx context.Context) (*Snapshot, error) {
	rc, err := s.remote.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("configsync: load: %w", err)
	}
	doc, err := confdoc.Parse([]byte(rc.Raw))
	if err != nil {
		return nil, fmt.Errorf("configsync: load: %w", err)
	}
	return &Snapshot{
		Document: doc,
		Hash:     rc.Hash,
		Path:     rc.Path,
		Exists:   rc.Exists,
		Valid:    rc.Valid,
		Issues:   rc.Issues,
		LoadedAt: time.Now().UTC(),
	}, nil
}

// install must be called with mu held.
func (s *Store) install(snap *Snapshot) {
	s.snap = snap
	s.baseline = Extract(snap.Document)
	s.drafts = s.baseline.Clone()
	s.state = StateIdle
}

// Snapshot returns a copy of the current snapshot. ok is false before the
// first Load.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return Snapshot{}, false
	}
	return s.snap.Clone(), true
}

// Drafts returns a copy of the current drafts, or nil before Load.
func (s *Store) Drafts() *Drafts {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drafts == nil {
		return nil
	}
	return s.drafts.Clone()
}

// Discard drops every unsaved edit.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseline != nil {
		s.drafts = s.baseline.Clone()
	}
}

// State returns the state of the most recent write attempt.
func (s *Store) State() WriteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsDirty reports whether dom differs from its baseline.
func (s *Store) IsDirty(dom Domain) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDirtyLocked(dom)
}

func (s *Store) isDirtyLocked(dom Domain) bool {
	if s.drafts == nil {
		return false
	}
	return !equalDomain(s.drafts, s.baseline, dom)
}

// Dirty lists the domains with unsaved edits.
func (s *Store) Dirty() []Domain {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked()
}

func (s *Store) dirtyLocked() []Domain {
	var out []Domain
	for _, dom := range Domains {
		if s.isDirtyLocked(dom) {
			out = append(out, dom)
		}
	}
	return out
}

// IsDirtyOverall reports whether any domain has unsaved edits.
func (s *Store) IsDirtyOverall() bool {
	return len(s.Dirty()) > 0
}

// Save writes every dirty domain with config.set, then reloads. Domains
// edited while the write was in flight keep their edits. On failure all
// drafts are left as they were.
func (s *Store) Save(ctx context.Context) error {
	if !s.saving.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.saving.Store(false)

	p, err := s.prepare(func(dirty []Domain) []Domain { return dirty })
	if err != nil {
		return err
	}
	raw, err := confdoc.Marshal(p.doc)
	if err != nil {
		return fmt.Errorf("configsync: save: %w", err)
	}
	_, err = s.remote.SetConfig(ctx, string(raw), p.hash)
	return s.finish(ctx, OpSave, p, err, true)
}

// Apply writes every dirty domain with config.apply, which restarts the
// gateway. A second call while one is in flight returns ErrBusy without
// contacting the gateway. Apply does not reload: the session is expected
// to reconnect, and the snapshot hash is dropped until then.
func (s *Store) Apply(ctx context.Context, opts ApplyOptions) error {
	if !s.applying.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.applying.Store(false)

	p, err := s.prepare(func(dirty []Domain) []Domain { return dirty })
	if err != nil {
		return err
	}
	raw, err := confdoc.Marshal(p.doc)
	if err != nil {
		return fmt.Errorf("configsync: apply: %w", err)
	}
	err = s.remote.ApplyConfig(ctx, string(raw), p.hash, opts)
	return s.finish(ctx, OpApply, p, err, false)
}

// SaveSkills writes only the skills domain as a merge patch with
// config.patch, then reloads. It is a no-op when skills are clean.
func (s *Store) SaveSkills(ctx context.Context) error {
	if !s.patching.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.patching.Store(false)

	p, err := s.prepare(func(dirty []Domain) []Domain {
		for _, d := range dirty {
			if d == DomainSkills {
				return []Domain{DomainSkills}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(p.domains) == 0 {
		return nil
	}
	patch := confdoc.CreateMergePatch(p.base, p.doc)
	raw, err := confdoc.Marshal(patch)
	if err != nil {
		return fmt.Errorf("configsync: patch: %w", err)
	}
	_, err = s.remote.PatchConfig(ctx, string(raw), p.hash)
	return s.finish(ctx, OpPatch, p, err, true)
}

// pending is a write captured under the lock.
type pending struct {
	domains []Domain
	doc     confdoc.Document
	base    confdoc.Document
	hash    string
	// ref holds, per domain, the value a draft must still have for the
	// write to cover it: the submitted draft for included domains and the
	// old baseline for the rest.
	ref *Drafts
}

func (s *Store) prepare(include func(dirty []Domain) []Domain) (*pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil {
		return nil, ErrNoSnapshot
	}
	domains := include(s.dirtyLocked())
	doc, err := BuildDocument(s.snap, s.drafts, s.baseline, domains)
	if err != nil {
		return nil, err
	}
	ref := s.baseline.Clone()
	for _, dom := range domains {
		ref.assign(dom, s.drafts)
	}
	s.state = StateSending
	return &pending{
		domains: domains,
		doc:     doc,
		base:    s.snap.Document,
		hash:    s.snap.Hash,
		ref:     ref,
	}, nil
}

func (s *Store) finish(ctx context.Context, op string, p *pending, err error, reload bool) error {
	if s.opts.OnWrite != nil {
		s.opts.OnWrite(op, err)
	}
	if err != nil {
		s.mu.Lock()
		s.state = StateRejected
		s.mu.Unlock()
		s.logger.Warn("config write rejected", "op", op, "error", err)
		return fmt.Errorf("configsync: %s: %w", op, err)
	}
	s.logger.Info("config write committed", "op", op, "domains", p.domains)

	if !reload {
		s.mu.Lock()
		s.advance(p)
		snap := s.snap.Clone()
		s.mu.Unlock()
		if s.opts.OnCommit != nil {
			s.opts.OnCommit(op, snap)
		}
		return nil
	}

	fresh, ferr := s.fetch(ctx)
	s.mu.Lock()
	if ferr != nil {
		s.advance(p)
		s.mu.Unlock()
		return fmt.Errorf("configsync: reload after %s: %w", op, ferr)
	}
	s.rebase(fresh, p.ref)
	snap := fresh.Clone()
	s.mu.Unlock()

	if s.opts.OnCommit != nil {
		s.opts.OnCommit(op, snap)
	}
	return nil
}

// rebase installs a reloaded snapshot. A draft still equal to its ref is
// replaced by the fresh projection; a draft edited during the write keeps
// its edits. Must be called with mu held.
func (s *Store) rebase(fresh *Snapshot, ref *Drafts) {
	next := Extract(fresh.Document)
	for _, dom := range Domains {
		if equalDomain(s.drafts, ref, dom) {
			s.drafts.assign(dom, next)
		}
	}
	s.baseline = next
	s.snap = fresh
	s.state = StateCommitted
}

// advance records a committed write that could not be reloaded: the
// submitted document becomes the snapshot without a hash, so further writes
// require a reload. Must be called with mu held.
func (s *Store) advance(p *pending) {
	prev := s.snap
	s.snap = &Snapshot{
		Document: p.doc,
		Path:     prev.Path,
		Exists:   true,
		Valid:    prev.Valid,
		LoadedAt: time.Now().UTC(),
	}
	s.baseline = p.ref
	s.state = StateCommitted
}

// edit runs fn against the drafts under the lock.
func (s *Store) edit(fn func(d *Drafts) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drafts == nil {
		return ErrNoSnapshot
	}
	return fn(s.drafts)
}

// read runs fn against the drafts under the lock.
func (s *Store) read(fn func(d *Drafts)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drafts == nil {
		return false
	}
	fn(s.drafts)
	return true
}
