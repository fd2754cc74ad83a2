// Package toolpolicy resolves effective tool permissions from the layered
// global and per-agent allow/deny/profile model, with group expansion.
package toolpolicy

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

// Policy is a tool policy as stored under "tools" or "agents.list[].tools".
// A nil slice means the field is unset and inherits; an empty non-nil slice
// is an explicit empty list.
type Policy struct {
	Profile   string   `json:"profile,omitempty"`
	Allow     []string `json:"allow,omitempty"`
	AlsoAllow []string `json:"alsoAllow,omitempty"`
	Deny      []string `json:"deny,omitempty"`
}

// Policy keys inside a tools object.
const (
	KeyProfile   = "profile"
	KeyAllow     = "allow"
	KeyAlsoAllow = "alsoAllow"
	KeyDeny      = "deny"
)

// Keys lists the document keys owned by a Policy.
var Keys = []string{KeyProfile, KeyAllow, KeyAlsoAllow, KeyDeny}

// FromMap reads a Policy out of a tools object. Missing or malformed keys
// stay unset.
func FromMap(m map[string]any) Policy {
	var p Policy
	if m == nil {
		return p
	}
	if s, ok := m[KeyProfile].(string); ok {
		p.Profile = strings.TrimSpace(s)
	}
	if v, ok := confdoc.AsStrings(m[KeyAllow]); ok {
		p.Allow = v
	}
	if v, ok := confdoc.AsStrings(m[KeyAlsoAllow]); ok {
		p.AlsoAllow = v
	}
	if v, ok := confdoc.AsStrings(m[KeyDeny]); ok {
		p.Deny = v
	}
	return p
}

// WriteTo stores the set fields of p into m and removes the unset ones.
// Keys that are not policy keys are left alone.
func (p Policy) WriteTo(m map[string]any) {
	if p.Profile != "" {
		m[KeyProfile] = p.Profile
	} else {
		delete(m, KeyProfile)
	}
	writeList(m, KeyAllow, p.Allow)
	writeList(m, KeyAlsoAllow, p.AlsoAllow)
	writeList(m, KeyDeny, p.Deny)
}

// ToMap returns the set fields of p as a tools object.
func (p Policy) ToMap() map[string]any {
	m := map[string]any{}
	p.WriteTo(m)
	return m
}

// IsSet reports whether any field of p is set.
func (p Policy) IsSet() bool {
	return p.Profile != "" || p.Allow != nil || p.AlsoAllow != nil || p.Deny != nil
}

// Clone returns a deep copy of p.
func (p Policy) Clone() Policy {
	return Policy{
		Profile:   p.Profile,
		Allow:     cloneList(p.Allow),
		AlsoAllow: cloneList(p.AlsoAllow),
		Deny:      cloneList(p.Deny),
	}
}

// Effective layers an agent policy over the global one. Each field is
// resolved independently: the agent's value when set, else the global one.
func Effective(global, agent Policy) Policy {
	out := global.Clone()
	if agent.Profile != "" {
		out.Profile = agent.Profile
	}
	if agent.Allow != nil {
		out.Allow = cloneList(agent.Allow)
	}
	if agent.AlsoAllow != nil {
		out.AlsoAllow = cloneList(agent.AlsoAllow)
	}
	if agent.Deny != nil {
		out.Deny = cloneList(agent.Deny)
	}
	return out
}

// IsDenied reports whether tool is denied by p, either literally or through
// a denied group. A "*" entry denies everything.
func IsDenied(p Policy, tool string) bool {
	_, denied := DeniedBy(p, tool)
	return denied
}

// DeniedBy returns the deny entry responsible for denying tool.
func DeniedBy(p Policy, tool string) (string, bool) {
	tool = NormalizeTool(tool)
	if tool == "" {
		return "", false
	}
	for _, entry := range p.Deny {
		id := NormalizeTool(entry)
		if id == tool || id == "*" {
			return entry, true
		}
		if members, ok := Groups[id]; ok && slices.Contains(members, tool) {
			return entry, true
		}
	}
	return "", false
}

// IsAllowed reports whether tool may run under p: it must not be denied and,
// when a profile or allow list restricts the set, it must be included by the
// profile, allow or alsoAllow entries.
func IsAllowed(p Policy, tool string) bool {
	tool = NormalizeTool(tool)
	if tool == "" || IsDenied(p, tool) {
		return false
	}
	allowed, restricted := allowedSet(p)
	if !restricted {
		return true
	}
	if _, ok := allowed["*"]; ok {
		return true
	}
	_, ok := allowed[tool]
	return ok
}

// Permission is the resolved state of one tool.
type Permission struct {
	Tool     string `json:"tool"`
	Group    string `json:"group,omitempty"`
	Allowed  bool   `json:"allowed"`
	DeniedBy string `json:"denied_by,omitempty"`
}

// Permissions lists every known tool with its resolved state under p.
func Permissions(p Policy) []Permission {
	tools := KnownTools()
	out := make([]Permission, 0, len(tools))
	for _, t := range tools {
		perm := Permission{Tool: t, Allowed: IsAllowed(p, t)}
		perm.Group, _ = GroupOf(t)
		perm.DeniedBy, _ = DeniedBy(p, t)
		out = append(out, perm)
	}
	return out
}

func allowedSet(p Policy) (map[string]struct{}, bool) {
	var entries []string
	restricted := false
	if p.Profile != "" {
		if list, ok := Profiles[p.Profile]; ok && list != nil {
			entries = append(entries, list...)
			restricted = true
		}
	}
	if p.Allow != nil {
		entries = append(entries, p.Allow...)
		restricted = true
	}
	if !restricted {
		return nil, false
	}
	entries = append(entries, p.AlsoAllow...)
	set := map[string]struct{}{}
	for _, t := range Expand(entries) {
		set[t] = struct{}{}
	}
	return set, true
}

// ToggleTool returns deny with tool removed (enabled) or added (disabled).
// The result is never nil so the caller stores an explicit list.
func ToggleTool(deny []string, tool string, enabled bool) ([]string, error) {
	id := NormalizeTool(tool)
	if id == "" {
		return nil, ErrEmptyToolName
	}
	return toggle(deny, id, enabled), nil
}

// ToggleGroup adds or removes a group id in deny as a single entry; member
// tools are not listed individually.
func ToggleGroup(deny []string, group string, enabled bool) ([]string, error) {
	id := NormalizeTool(group)
	if !strings.HasPrefix(id, GroupPrefix) {
		id = GroupPrefix + id
	}
	if _, ok := Groups[id]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	return toggle(deny, id, enabled), nil
}

func toggle(deny []string, id string, enabled bool) []string {
	out := make([]string, 0, len(deny)+1)
	present := false
	for _, entry := range deny {
		if NormalizeTool(entry) == id {
			present = true
			if enabled {
				continue
			}
		}
		out = append(out, entry)
	}
	if !enabled && !present {
		out = append(out, id)
	}
	return out
}

// Validate reports unknown profiles and unknown group references.
func Validate(p Policy) error {
	var errs []error
	if p.Profile != "" {
		if _, ok := Profiles[p.Profile]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownProfile, p.Profile))
		}
	}
	check := func(list []string, name string) {
		for _, entry := range list {
			id := NormalizeTool(entry)
			if id == "" {
				errs = append(errs, fmt.Errorf("%s: %w", name, ErrEmptyToolName))
				continue
			}
			if strings.HasPrefix(id, GroupPrefix) && !IsGroup(id) {
				errs = append(errs, fmt.Errorf("%s: %w: %q", name, ErrUnknownGroup, entry))
			}
		}
	}
	check(p.Allow, KeyAllow)
	check(p.AlsoAllow, KeyAlsoAllow)
	check(p.Deny, KeyDeny)
	return errors.Join(errs...)
}

func writeList(m map[string]any, key string, list []string) {
	if list == nil {
		delete(m, key)
		return
	}
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s
	}
	m[key] = out
}

func cloneList(list []string) []string {
	if list == nil {
		return nil
	}
	return append(make([]string, 0, len(list)), list...)
}
