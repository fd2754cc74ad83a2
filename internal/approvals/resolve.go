package approvals

import (
	"slices"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

// Resolve computes the effective policy of agentID in file. Each field is
// taken from the agent's own entry, else the wildcard entry, else the file
// defaults, else the built-in default. Invalid enum values are skipped.
// The allowlist is the wildcard's entries followed by the agent's.
func Resolve(file confdoc.Document, agentID string) Resolved {
	agents := confdoc.GetMap(file, keyAgents)
	var own map[string]any
	if agentID != Wildcard {
		own = confdoc.AsMap(agents[agentID])
	}
	wild := confdoc.AsMap(agents[Wildcard])
	layers := []map[string]any{own, wild, confdoc.GetMap(file, keyDefaults)}

	r := Resolved{
		AgentID:         agentID,
		Security:        pickEnum(layers, keySecurity, securityValues, DefaultSecurity),
		Ask:             pickEnum(layers, keyAsk, askValues, DefaultAsk),
		AskFallback:     pickEnum(layers, keyAskFallback, securityValues, DefaultAskFallback),
		AutoAllowSkills: pickBool(layers, keyAutoAllowSkills, DefaultAutoAllowSkills),
		Source:          keyDefaults,
	}
	switch {
	case own != nil:
		r.Source = agentID
	case wild != nil:
		r.Source = Wildcard
	}

	r.Allowlist = append(r.Allowlist, allowlistFrom(wild[keyAllowlist])...)
	r.Allowlist = append(r.Allowlist, allowlistFrom(own[keyAllowlist])...)
	if r.Allowlist == nil {
		r.Allowlist = []AllowlistEntry{}
	}
	return r
}

func pickEnum(layers []map[string]any, key string, allowed []string, fallback string) string {
	for _, layer := range layers {
		if s, ok := layer[key].(string); ok && slices.Contains(allowed, s) {
			return s
		}
	}
	return fallback
}

func pickBool(layers []map[string]any, key string, fallback bool) bool {
	for _, layer := range layers {
		if b, ok := layer[key].(bool); ok {
			return b
		}
	}
	return fallback
}
