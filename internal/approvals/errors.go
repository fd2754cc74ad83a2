package approvals

import "errors"

// Sentinel errors for the approvals package. Busy, stale and missing-hash
// conditions reuse the configsync sentinels so callers classify both
// documents the same way.
var (
	// ErrTargetRequired is returned when a node target has no node id.
	ErrTargetRequired = errors.New("approvals: select a node first")

	ErrNotLoaded     = errors.New("approvals: file not loaded")
	ErrUnknownAgent  = errors.New("approvals: unknown agent entry")
	ErrAgentExists   = errors.New("approvals: agent entry already exists")
	ErrEmptyAgentID  = errors.New("approvals: agent id must not be empty")
	ErrEmptyPattern  = errors.New("approvals: allowlist pattern must not be empty")
	ErrIndexRange    = errors.New("approvals: allowlist index out of range")
	ErrInvalidTarget = errors.New("approvals: unknown target kind")
)
