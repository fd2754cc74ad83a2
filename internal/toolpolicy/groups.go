package toolpolicy

import (
	"slices"
	"strings"
)

// GroupPrefix marks a deny/allow entry that names a tool group.
const GroupPrefix = "group:"

// Groups maps a group id to its member tools. The table is fixed.
var Groups = map[string][]string{
	"group:fs":         {"read", "write", "edit", "apply_patch"},
	"group:runtime":    {"exec", "process"},
	"group:web":        {"web_search", "web_fetch"},
	"group:memory":     {"memory_search", "memory_get"},
	"group:sessions":   {"sessions_list", "sessions_history", "sessions_send", "sessions_spawn", "session_status"},
	"group:ui":         {"browser", "canvas"},
	"group:automation": {"cron", "gateway"},
	"group:messaging":  {"message"},
	"group:nodes":      {"nodes"},
}

// Profile names.
const (
	ProfileMinimal   = "minimal"
	ProfileCoding    = "coding"
	ProfileMessaging = "messaging"
	ProfileFull      = "full"
)

// Profiles maps a profile to the entries it allows. A nil entry list means
// no restriction.
var Profiles = map[string][]string{
	ProfileMinimal:   {"session_status"},
	ProfileCoding:    {"group:fs", "group:runtime", "group:sessions", "group:memory", "image"},
	ProfileMessaging: {"group:messaging", "sessions_list", "sessions_history", "sessions_send", "session_status"},
	ProfileFull:      nil,
}

var toolAliases = map[string]string{
	"bash":        "exec",
	"apply-patch": "apply_patch",
}

// NormalizeTool canonicalizes a tool or group id.
func NormalizeTool(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := toolAliases[n]; ok {
		return alias
	}
	return n
}

// IsGroup reports whether id names a known group.
func IsGroup(id string) bool {
	_, ok := Groups[NormalizeTool(id)]
	return ok
}

// GroupOf returns the group containing tool, if any.
func GroupOf(tool string) (string, bool) {
	tool = NormalizeTool(tool)
	for _, id := range GroupIDs() {
		if slices.Contains(Groups[id], tool) {
			return id, true
		}
	}
	return "", false
}

// GroupIDs returns the group ids in sorted order.
func GroupIDs() []string {
	ids := make([]string, 0, len(Groups))
	for id := range Groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// KnownTools returns every tool named by the group and profile tables, sorted.
func KnownTools() []string {
	seen := map[string]struct{}{}
	for _, members := range Groups {
		for _, m := range members {
			seen[m] = struct{}{}
		}
	}
	for _, entries := range Profiles {
		for _, e := range entries {
			if !strings.HasPrefix(e, GroupPrefix) {
				seen[e] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Expand replaces group ids in entries with their members, normalizing and
// de-duplicating while keeping first-seen order.
func Expand(entries []string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(name string) {
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, e := range entries {
		id := NormalizeTool(e)
		if members, ok := Groups[id]; ok {
			for _, m := range members {
				add(m)
			}
			continue
		}
		add(id)
	}
	return out
}
