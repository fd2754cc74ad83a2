package configsync

import (
	"fmt"
	"slices"

	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/sanitize"
)

// BuildDocument writes the listed domains of drafts onto a clone of the
// snapshot document. baseline is the projection the drafts were edited
// from; it tells object-shaped domains which keys an edit removed. The
// snapshot itself is never modified.
func BuildDocument(snap *Snapshot, drafts, baseline *Drafts, domains []Domain) (confdoc.Document, error) {
	if snap == nil || snap.Document == nil {
		return nil, ErrNoSnapshot
	}
	if snap.Hash == "" {
		return nil, ErrNoHash
	}
	if baseline == nil {
		baseline = Extract(snap.Document)
	}

	doc := confdoc.Clone(snap.Document)
	for _, dom := range Domains {
		if !slices.Contains(domains, dom) {
			continue
		}
		if err := writeDomain(doc, dom, drafts, baseline); err != nil {
			return nil, fmt.Errorf("configsync: build %s: %w", dom, err)
		}
	}
	return doc, nil
}

func writeDomain(doc confdoc.Document, dom Domain, drafts, baseline *Drafts) error {
	switch dom {
	case DomainProviders:
		return confdoc.Set(doc, sanitize.Providers(drafts.Providers), pathProviders...)
	case DomainAgentDefaults:
		return reconcileAt(doc, pathAgentDefaults, baseline.AgentDefaults, drafts.AgentDefaults)
	case DomainGateway:
		return reconcileAt(doc, pathGateway, baseline.Gateway, drafts.Gateway)
	case DomainChannels:
		return reconcileAt(doc, pathChannels, baseline.Channels, drafts.Channels)
	case DomainSkills:
		return reconcileAt(doc, pathSkills, baseline.Skills, drafts.Skills)
	case DomainAgents:
		return writeAgents(doc, drafts.Agents)
	case DomainAgentTools:
		for _, entry := range agentEntries(doc) {
			tools := confdoc.AsMap(entry[agentKeyTools])
			if tools == nil {
				tools = map[string]any{}
			}
			drafts.AgentTools[agentID(entry)].WriteTo(tools)
			setOrDelete(entry, agentKeyTools, tools)
		}
		return nil
	case DomainAgentIdentity:
		for _, entry := range agentEntries(doc) {
			id := agentID(entry)
			ident := confdoc.Reconcile(
				confdoc.AsMap(entry[agentKeyIdentity]),
				baseline.AgentIdentity[id],
				drafts.AgentIdentity[id],
			)
			setOrDelete(entry, agentKeyIdentity, ident)
		}
		return nil
	case DomainGlobalTools:
		tools := confdoc.GetMap(doc, pathTools...)
		if tools == nil {
			tools = map[string]any{}
		}
		drafts.GlobalTools.WriteTo(tools)
		setOrDelete(doc, pathTools[0], tools)
		return nil
	}
	return fmt.Errorf("unknown domain %q", dom)
}

// reconcileAt merges draft into the object at p, deleting keys that were
// removed relative to baseline.
func reconcileAt(doc confdoc.Document, p confdoc.Path, baseline, draft map[string]any) error {
	merged := confdoc.Reconcile(confdoc.GetMap(doc, p...), baseline, draft)
	return confdoc.Set(doc, merged, p...)
}

// writeAgents replaces agents.list. Tools and identity of surviving agents
// are carried over from the document; their own domains rewrite them.
func writeAgents(doc confdoc.Document, agents []map[string]any) error {
	previous := map[string]map[string]any{}
	for _, entry := range agentEntries(doc) {
		previous[agentID(entry)] = entry
	}

	list := make([]any, 0, len(agents))
	for _, a := range agents {
		entry := confdoc.Clone(a)
		if old, ok := previous[agentID(a)]; ok {
			for _, key := range []string{agentKeyTools, agentKeyIdentity} {
				if v, present := old[key]; present {
					entry[key] = confdoc.CloneValue(v)
				}
			}
		}
		list = append(list, entry)
	}
	return confdoc.Set(doc, list, pathAgentList...)
}

func setOrDelete(m map[string]any, key string, v map[string]any) {
	if len(v) == 0 {
		delete(m, key)
		return
	}
	m[key] = v
}
