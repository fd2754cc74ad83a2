package configsync

// Domain names one independently edited draft projection.
type Domain string

// Draft domains.
const (
	DomainProviders     Domain = "providers"
	DomainAgentDefaults Domain = "agentDefaults"
	DomainGateway       Domain = "gateway"
	DomainChannels      Domain = "channels"
	DomainAgents        Domain = "agents"
	DomainAgentTools    Domain = "agentTools"
	DomainAgentIdentity Domain = "agentIdentity"
	DomainGlobalTools   Domain = "globalTools"
	DomainSkills        Domain = "skills"
)

// Domains lists every domain in the order the document builder applies
// them. The agents list is written before per-agent tools and identity.
var Domains = []Domain{
	DomainProviders,
	DomainAgentDefaults,
	DomainGateway,
	DomainChannels,
	DomainAgents,
	DomainAgentTools,
	DomainAgentIdentity,
	DomainGlobalTools,
	DomainSkills,
}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	for _, known := range Domains {
		if d == known {
			return true
		}
	}
	return false
}
