package configsync

import (
	"errors"
	"strings"
)

// Sentinel errors for the configsync package.
var (
	// ErrStaleHash means the cached hash no longer matches the remote
	// document. Reload and retry; drafts are preserved.
	ErrStaleHash = errors.New("configsync: config changed since last load, reload and retry")

	// ErrBusy is returned when the same operation is already in flight.
	ErrBusy = errors.New("configsync: operation already in progress")

	// ErrNoSnapshot is returned when a write is attempted before Load.
	ErrNoSnapshot = errors.New("configsync: no snapshot loaded")

	// ErrNoHash is returned when the snapshot carries no base hash.
	ErrNoHash = errors.New("configsync: config hash missing, reload first")

	ErrUnknownProvider = errors.New("configsync: unknown provider")
	ErrProviderExists  = errors.New("configsync: provider already exists")
	ErrUnknownModel    = errors.New("configsync: unknown model")
	ErrModelExists     = errors.New("configsync: model already exists")
	ErrUnknownAgent    = errors.New("configsync: unknown agent")
	ErrAgentExists     = errors.New("configsync: agent already exists")
	ErrUnknownChannel  = errors.New("configsync: unknown channel")
	ErrEmptyID         = errors.New("configsync: id must not be empty")
	ErrReservedField   = errors.New("configsync: field is managed by another panel")
)

// Issue is one remote validation problem.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError reports a remote rejection with structured issues.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.String())
	}
	if len(parts) == 0 {
		return "configsync: invalid config"
	}
	return strings.Join(parts, "; ")
}

// TransportError wraps a network or protocol failure. Its message is the
// raw transport error.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsGuard reports whether err is a local precondition or busy rejection
// that was never sent to the gateway.
func IsGuard(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrNoSnapshot) || errors.Is(err, ErrNoHash)
}
