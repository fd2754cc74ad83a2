package configsync

import (
	"time"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

// Snapshot is the last document the gateway confirmed, with its hash.
type Snapshot struct {
	Document confdoc.Document `json:"config"`
	Hash     string           `json:"hash,omitempty"`
	Path     string           `json:"path,omitempty"`
	Exists   bool             `json:"exists"`
	Valid    bool             `json:"valid"`
	Issues   []Issue          `json:"issues,omitempty"`
	LoadedAt time.Time        `json:"loaded_at"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Document = confdoc.Clone(s.Document)
	if s.Issues != nil {
		out.Issues = append([]Issue(nil), s.Issues...)
	}
	return out
}

// RemoteConfig is the gateway's answer to config.get.
type RemoteConfig struct {
	Path   string
	Exists bool
	Raw    string
	Hash   string
	Valid  bool
	Issues []Issue
}

// ApplyOptions tunes config.apply.
type ApplyOptions struct {
	RestartDelay time.Duration
	SessionKey   string
	Note         string
}
