// Package approvals edits the exec-approvals file: the command execution
// policy of the gateway or of one paired node. It runs its own
// snapshot/compare-and-swap cycle, independent of the main configuration.
package approvals

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/configsync"
	"github.com/google/uuid"
)

// Fetched is the remote answer to an approvals get.
type Fetched struct {
	Path   string
	Exists bool
	Hash   string
	File   confdoc.Document
}

// Remote reads and writes approvals files.
type Remote interface {
	GetApprovals(ctx context.Context, target Target) (Fetched, error)
	SetApprovals(ctx context.Context, target Target, file confdoc.Document, baseHash string) (string, error)
}

// Options configures a Store.
type Options struct {
	Logger  *slog.Logger
	Target  Target
	OnWrite func(err error)
	// NewID generates allowlist entry ids. Defaults to random UUIDs.
	NewID func() string
}

// Store holds the fetched approvals file and the draft edited against it.
type Store struct {
	remote Remote
	logger *slog.Logger
	opts   Options
	saving atomic.Bool

	mu     sync.Mutex
	target Target
	loaded bool
	path   string
	hash   string
	file   confdoc.Document
	// draft is nil until the first edit.
	draft confdoc.Document
}

// New creates a Store for opts.Target (the gateway when unset).
func New(remote Remote, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.NewString() }
	}
	target := opts.Target
	if target.Kind == "" {
		target = GatewayTarget
	}
	return &Store{
		remote: remote,
		logger: logger.With("component", "approvals"),
		opts:   opts,
		target: target,
	}
}

// Target returns the selected target.
func (s *Store) Target() Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// SetTarget selects a different approvals file and clears all state.
func (s *Store) SetTarget(t Target) error {
	if t.Kind == "" {
		t.Kind = TargetGateway
	}
	if t.Kind != TargetGateway && t.Kind != TargetNode {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, t.Kind)
	}
	t.NodeID = strings.TrimSpace(t.NodeID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = t
	s.loaded = false
	s.path, s.hash = "", ""
	s.file, s.draft = nil, nil
	return nil
}

// Load fetches the approvals file of the selected target, dropping any
// unsaved edits.
func (s *Store) Load(ctx context.Context) error {
	target := s.Target()
	if err := target.Validate(); err != nil {
		return err
	}
	f, err := s.remote.GetApprovals(ctx, target)
	if err != nil {
		return fmt.Errorf("approvals: load %s: %w", target, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target != target {
		// Target changed while loading; the result belongs to the old one.
		return nil
	}
	s.install(f)
	return nil
}

func (s *Store) install(f Fetched) {
	s.loaded = true
	s.path = f.Path
	s.hash = f.Hash
	s.file = confdoc.Clone(f.File)
	s.draft = nil
}

// Loaded reports whether a file has been fetched for the current target.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Hash returns the base hash of the fetched file.
func (s *Store) Hash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hash
}

// Path returns the remote path of the fetched file.
func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// File returns a copy of the current file: the draft when edited, else the
// fetched file.
func (s *Store) File() confdoc.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return confdoc.Clone(s.currentLocked())
}

func (s *Store) currentLocked() confdoc.Document {
	if s.draft != nil {
		return s.draft
	}
	return s.file
}

// IsDirty reports whether the draft differs from the fetched file.
func (s *Store) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft != nil && !confdoc.Equal(s.draft, s.file)
}

// Discard drops unsaved edits.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

// Save writes the draft, or the fetched file when nothing was edited,
// with the fetched hash, then reloads. Edits made while the write was in
// flight are kept.
func (s *Store) Save(ctx context.Context) error {
	if !s.saving.CompareAndSwap(false, true) {
		return configsync.ErrBusy
	}
	defer s.saving.Store(false)

	s.mu.Lock()
	target := s.target
	if err := target.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if s.hash == "" {
		s.mu.Unlock()
		return configsync.ErrNoHash
	}
	submitted := confdoc.Clone(s.currentLocked())
	hash := s.hash
	s.mu.Unlock()

	_, err := s.remote.SetApprovals(ctx, target, submitted, hash)
	if s.opts.OnWrite != nil {
		s.opts.OnWrite(err)
	}
	if err != nil {
		s.logger.Warn("approvals write rejected", "target", target.String(), "error", err)
		return fmt.Errorf("approvals: save %s: %w", target, err)
	}
	s.logger.Info("approvals write committed", "target", target.String())

	f, ferr := s.remote.GetApprovals(ctx, target)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target != target {
		return nil
	}
	unchanged := s.draft == nil || confdoc.Equal(s.draft, submitted)
	if ferr != nil {
		s.file = submitted
		s.hash = ""
		if unchanged {
			s.draft = nil
		}
		return fmt.Errorf("approvals: reload %s: %w", target, ferr)
	}
	edits := s.draft
	s.install(f)
	if !unchanged {
		s.draft = edits
	}
	return nil
}

// working returns the draft, starting one from the fetched file. Must be
// called with mu held.
func (s *Store) working() (confdoc.Document, error) {
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	if s.draft == nil {
		s.draft = confdoc.Clone(s.file)
	}
	return s.draft, nil
}

func (s *Store) edit(fn func(doc confdoc.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.working()
	if err != nil {
		return err
	}
	return fn(doc)
}

func agentsOf(doc confdoc.Document) map[string]any {
	agents := confdoc.AsMap(doc[keyAgents])
	if agents == nil {
		agents = map[string]any{}
		doc[keyAgents] = agents
	}
	return agents
}

// Agents lists the agent entry keys, the wildcard included, sorted.
func (s *Store) Agents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	agents := confdoc.GetMap(s.currentLocked(), keyAgents)
	ids := make([]string, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// AddAgent adds an empty entry for id. Use Wildcard for the "*" entry.
func (s *Store) AddAgent(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyAgentID
	}
	return s.edit(func(doc confdoc.Document) error {
		agents := agentsOf(doc)
		if _, exists := agents[id]; exists {
			return fmt.Errorf("%w: %q", ErrAgentExists, id)
		}
		agents[id] = map[string]any{}
		return nil
	})
}

// RemoveAgent deletes an agent entry. The agent then resolves through the
// wildcard entry, if any.
func (s *Store) RemoveAgent(id string) error {
	return s.edit(func(doc confdoc.Document) error {
		agents := agentsOf(doc)
		if _, exists := agents[id]; !exists {
			return fmt.Errorf("%w: %q", ErrUnknownAgent, id)
		}
		delete(agents, id)
		return nil
	})
}

// AddAllowlistEntry appends a pattern to the agent's allowlist, creating
// the agent entry when needed. A pattern already listed is not duplicated.
func (s *Store) AddAllowlistEntry(agentID, pattern string) (AllowlistEntry, error) {
	agentID = strings.TrimSpace(agentID)
	pattern = strings.TrimSpace(pattern)
	if agentID == "" {
		return AllowlistEntry{}, ErrEmptyAgentID
	}
	if pattern == "" {
		return AllowlistEntry{}, ErrEmptyPattern
	}
	var added AllowlistEntry
	err := s.edit(func(doc confdoc.Document) error {
		agents := agentsOf(doc)
		entry := confdoc.AsMap(agents[agentID])
		if entry == nil {
			entry = map[string]any{}
			agents[agentID] = entry
		}
		list := confdoc.AsSlice(entry[keyAllowlist])
		for _, existing := range allowlistFrom(list) {
			if existing.Pattern == pattern {
				added = existing
				return nil
			}
		}
		added = AllowlistEntry{ID: s.opts.NewID(), Pattern: pattern}
		entry[keyAllowlist] = append(list, map[string]any{"id": added.ID, "pattern": pattern})
		return nil
	})
	return added, err
}

// RemoveAllowlistEntry drops the allowlist entry at index. index counts
// the entries Resolve reports for the agent's own list, so malformed or
// blank-pattern elements are not addressable and stay in the file. An
// emptied allowlist is removed from the agent entry.
func (s *Store) RemoveAllowlistEntry(agentID string, index int) error {
	return s.edit(func(doc confdoc.Document) error {
		entry := confdoc.AsMap(agentsOf(doc)[agentID])
		if entry == nil {
			return fmt.Errorf("%w: %q", ErrUnknownAgent, agentID)
		}
		list := confdoc.AsSlice(entry[keyAllowlist])
		var positions []int
		for i, item := range list {
			if _, ok := allowlistItem(item); ok {
				positions = append(positions, i)
			}
		}
		if index < 0 || index >= len(positions) {
			return fmt.Errorf("%w: %d", ErrIndexRange, index)
		}
		at := positions[index]
		list = slices.Delete(slices.Clone(list), at, at+1)
		if len(list) == 0 {
			delete(entry, keyAllowlist)
			return nil
		}
		entry[keyAllowlist] = list
		return nil
	})
}

// Patch sets the value at path, e.g. ("defaults", "security") or
// ("agents", "*", "ask").
func (s *Store) Patch(value any, path ...string) error {
	return s.edit(func(doc confdoc.Document) error {
		return confdoc.Set(doc, value, path...)
	})
}

// Remove deletes the value at path.
func (s *Store) Remove(path ...string) error {
	return s.edit(func(doc confdoc.Document) error {
		confdoc.Delete(doc, path...)
		return nil
	})
}

// Resolve returns the effective policy of agentID in the current file.
func (s *Store) Resolve(agentID string) Resolved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Resolve(s.currentLocked(), agentID)
}

// ParseIndex parses an allowlist index path segment.
func ParseIndex(raw string) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrIndexRange, raw)
	}
	return i, nil
}
