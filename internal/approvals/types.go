package approvals

import (
	"fmt"
	"strings"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

// Wildcard is the agents key that applies to every agent without its own
// entry.
const Wildcard = "*"

// TargetKind selects whose approvals file is edited.
type TargetKind string

// Target kinds.
const (
	TargetGateway TargetKind = "gateway"
	TargetNode    TargetKind = "node"
)

// Target identifies the remote approvals file.
type Target struct {
	Kind   TargetKind `json:"kind"`
	NodeID string     `json:"node_id,omitempty"`
}

// GatewayTarget is the gateway's own approvals file.
var GatewayTarget = Target{Kind: TargetGateway}

// Validate checks that the target is complete.
func (t Target) Validate() error {
	switch t.Kind {
	case TargetGateway, "":
		return nil
	case TargetNode:
		if strings.TrimSpace(t.NodeID) == "" {
			return ErrTargetRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTarget, t.Kind)
	}
}

func (t Target) String() string {
	if t.Kind == TargetNode {
		return "node:" + t.NodeID
	}
	return string(TargetGateway)
}

// Security modes.
const (
	SecurityDeny      = "deny"
	SecurityAllowlist = "allowlist"
	SecurityFull      = "full"
)

// Ask modes.
const (
	AskOff    = "off"
	AskOnMiss = "on-miss"
	AskAlways = "always"
)

var (
	securityValues = []string{SecurityDeny, SecurityAllowlist, SecurityFull}
	askValues      = []string{AskOff, AskOnMiss, AskAlways}
)

// Built-in defaults used when neither the agent, the wildcard nor the file
// defaults set a field.
const (
	DefaultSecurity        = SecurityDeny
	DefaultAsk             = AskOnMiss
	DefaultAskFallback     = SecurityDeny
	DefaultAutoAllowSkills = false
)

// Document keys.
const (
	keyDefaults        = "defaults"
	keyAgents          = "agents"
	keyAllowlist       = "allowlist"
	keySecurity        = "security"
	keyAsk             = "ask"
	keyAskFallback     = "askFallback"
	keyAutoAllowSkills = "autoAllowSkills"
)

// AllowlistEntry is one allowed command pattern.
type AllowlistEntry struct {
	ID               string  `json:"id,omitempty"`
	Pattern          string  `json:"pattern"`
	LastUsedAt       float64 `json:"lastUsedAt,omitempty"`
	LastUsedCommand  string  `json:"lastUsedCommand,omitempty"`
	LastResolvedPath string  `json:"lastResolvedPath,omitempty"`
}

func allowlistFrom(v any) []AllowlistEntry {
	var out []AllowlistEntry
	for _, item := range confdoc.AsSlice(v) {
		if e, ok := allowlistItem(item); ok {
			out = append(out, e)
		}
	}
	return out
}

// allowlistItem decodes one allowlist element. Elements that are not
// objects or carry a blank pattern are skipped everywhere.
func allowlistItem(item any) (AllowlistEntry, bool) {
	m := confdoc.AsMap(item)
	if m == nil {
		return AllowlistEntry{}, false
	}
	var e AllowlistEntry
	e.ID, _ = m["id"].(string)
	e.Pattern, _ = m["pattern"].(string)
	e.LastUsedAt, _ = confdoc.AsFloat(m["lastUsedAt"])
	e.LastUsedCommand, _ = m["lastUsedCommand"].(string)
	e.LastResolvedPath, _ = m["lastResolvedPath"].(string)
	if strings.TrimSpace(e.Pattern) == "" {
		return AllowlistEntry{}, false
	}
	return e, true
}

// Resolved is the effective approvals policy of one agent.
type Resolved struct {
	AgentID         string           `json:"agent_id"`
	Security        string           `json:"security"`
	Ask             string           `json:"ask"`
	AskFallback     string           `json:"askFallback"`
	AutoAllowSkills bool             `json:"autoAllowSkills"`
	Allowlist       []AllowlistEntry `json:"allowlist"`
	// Source names the layer that matched the agent: the agent id, the
	// wildcard, or "defaults".
	Source string `json:"source"`
}
