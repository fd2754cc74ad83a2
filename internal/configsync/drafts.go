package configsync

import (
	"github.com/flemzord/sclaw-console/internal/confdoc"
	"github.com/flemzord/sclaw-console/internal/toolpolicy"
)

// Drafts holds the editable projection of every domain. Object-shaped
// projections are JSON trees so keys the console does not know about
// round-trip untouched.
type Drafts struct {
	Providers     map[string]any
	AgentDefaults map[string]any
	Gateway       map[string]any
	Channels      map[string]any
	// Agents is agents.list without the tools and identity keys, which
	// belong to the AgentTools and AgentIdentity domains.
	Agents        []map[string]any
	AgentTools    map[string]toolpolicy.Policy
	AgentIdentity map[string]map[string]any
	GlobalTools   toolpolicy.Policy
	Skills        map[string]any
}

// Extract derives every projection from doc.
func Extract(doc confdoc.Document) *Drafts {
	return &Drafts{
		Providers:     ExtractProviders(doc),
		AgentDefaults: ExtractAgentDefaults(doc),
		Gateway:       ExtractGateway(doc),
		Channels:      ExtractChannels(doc),
		Agents:        ExtractAgents(doc),
		AgentTools:    ExtractAgentTools(doc),
		AgentIdentity: ExtractAgentIdentities(doc),
		GlobalTools:   ExtractGlobalTools(doc),
		Skills:        ExtractSkills(doc),
	}
}

// Clone returns a deep copy of d.
func (d *Drafts) Clone() *Drafts {
	out := &Drafts{}
	for _, dom := range Domains {
		out.assign(dom, d)
	}
	return out
}

// Value returns the JSON-shaped value of one domain, used for equality.
func (d *Drafts) Value(dom Domain) any {
	switch dom {
	case DomainProviders:
		return d.Providers
	case DomainAgentDefaults:
		return d.AgentDefaults
	case DomainGateway:
		return d.Gateway
	case DomainChannels:
		return d.Channels
	case DomainAgents:
		list := make([]any, len(d.Agents))
		for i, a := range d.Agents {
			list[i] = a
		}
		return list
	case DomainAgentTools:
		out := make(map[string]any, len(d.AgentTools))
		for id, p := range d.AgentTools {
			if p.IsSet() {
				out[id] = p.ToMap()
			}
		}
		return out
	case DomainAgentIdentity:
		out := make(map[string]any, len(d.AgentIdentity))
		for id, m := range d.AgentIdentity {
			if len(m) > 0 {
				out[id] = m
			}
		}
		return out
	case DomainGlobalTools:
		return d.GlobalTools.ToMap()
	case DomainSkills:
		return d.Skills
	}
	return nil
}

// equalDomain reports whether a and b hold the same value for dom.
func equalDomain(a, b *Drafts, dom Domain) bool {
	return confdoc.Equal(a.Value(dom), b.Value(dom))
}

// assign copies domain dom from src into d.
func (d *Drafts) assign(dom Domain, src *Drafts) {
	switch dom {
	case DomainProviders:
		d.Providers = cloneMap(src.Providers)
	case DomainAgentDefaults:
		d.AgentDefaults = cloneMap(src.AgentDefaults)
	case DomainGateway:
		d.Gateway = cloneMap(src.Gateway)
	case DomainChannels:
		d.Channels = cloneMap(src.Channels)
	case DomainAgents:
		d.Agents = make([]map[string]any, len(src.Agents))
		for i, a := range src.Agents {
			d.Agents[i] = cloneMap(a)
		}
	case DomainAgentTools:
		d.AgentTools = make(map[string]toolpolicy.Policy, len(src.AgentTools))
		for id, p := range src.AgentTools {
			d.AgentTools[id] = p.Clone()
		}
	case DomainAgentIdentity:
		d.AgentIdentity = make(map[string]map[string]any, len(src.AgentIdentity))
		for id, m := range src.AgentIdentity {
			d.AgentIdentity[id] = cloneMap(m)
		}
	case DomainGlobalTools:
		d.GlobalTools = src.GlobalTools.Clone()
	case DomainSkills:
		d.Skills = cloneMap(src.Skills)
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return confdoc.Clone(m)
}
