package configsync

import (
	"strings"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/toolpolicy"
)

// Document paths owned by the projections.
var (
	pathProviders     = confdoc.Path{"models", "providers"}
	pathAgentDefaults = confdoc.Path{"agents", "defaults"}
	pathAgentList     = confdoc.Path{"agents", "list"}
	pathGateway       = confdoc.Path{"gateway"}
	pathChannels      = confdoc.Path{"channels"}
	pathTools         = confdoc.Path{"tools"}
	pathSkills        = confdoc.Path{"skills"}
)

// Keys of an agents.list entry owned by other domains.
const (
	agentKeyID       = "id"
	agentKeyDefault  = "default"
	agentKeyTools    = "tools"
	agentKeyIdentity = "identity"
)

func objectAt(doc confdoc.Document, p confdoc.Path) map[string]any {
	return cloneMap(confdoc.GetMap(doc, p...))
}

// ExtractProviders returns models.providers.
func ExtractProviders(doc confdoc.Document) map[string]any {
	return objectAt(doc, pathProviders)
}

// ExtractAgentDefaults returns agents.defaults.
func ExtractAgentDefaults(doc confdoc.Document) map[string]any {
	return objectAt(doc, pathAgentDefaults)
}

// ExtractGateway returns the gateway section.
func ExtractGateway(doc confdoc.Document) map[string]any {
	return objectAt(doc, pathGateway)
}

// ExtractChannels returns the channels section.
func ExtractChannels(doc confdoc.Document) map[string]any {
	return objectAt(doc, pathChannels)
}

// ExtractSkills returns the skills section.
func ExtractSkills(doc confdoc.Document) map[string]any {
	return objectAt(doc, pathSkills)
}

// agentEntries returns the object entries of agents.list that carry an id.
func agentEntries(doc confdoc.Document) []map[string]any {
	v, _ := confdoc.Get(doc, pathAgentList...)
	var out []map[string]any
	for _, item := range confdoc.AsSlice(v) {
		entry := confdoc.AsMap(item)
		if agentID(entry) == "" {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func agentID(entry map[string]any) string {
	if entry == nil {
		return ""
	}
	id, _ := entry[agentKeyID].(string)
	return strings.TrimSpace(id)
}

// ExtractAgents returns agents.list with the tools and identity keys
// stripped. Entries without an id are skipped.
func ExtractAgents(doc confdoc.Document) []map[string]any {
	entries := agentEntries(doc)
	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		a := confdoc.Clone(entry)
		delete(a, agentKeyTools)
		delete(a, agentKeyIdentity)
		out = append(out, a)
	}
	return out
}

// ExtractAgentTools returns the tool policy of every agent, keyed by id.
func ExtractAgentTools(doc confdoc.Document) map[string]toolpolicy.Policy {
	out := map[string]toolpolicy.Policy{}
	for _, entry := range agentEntries(doc) {
		out[agentID(entry)] = toolpolicy.FromMap(confdoc.AsMap(entry[agentKeyTools]))
	}
	return out
}

// ExtractAgentIdentities returns the identity object of every agent that
// has one, keyed by id.
func ExtractAgentIdentities(doc confdoc.Document) map[string]map[string]any {
	out := map[string]map[string]any{}
	for _, entry := range agentEntries(doc) {
		if ident := confdoc.AsMap(entry[agentKeyIdentity]); ident != nil {
			out[agentID(entry)] = confdoc.Clone(ident)
		}
	}
	return out
}

// ExtractGlobalTools returns the global tool policy.
func ExtractGlobalTools(doc confdoc.Document) toolpolicy.Policy {
	return toolpolicy.FromMap(confdoc.GetMap(doc, pathTools...))
}
