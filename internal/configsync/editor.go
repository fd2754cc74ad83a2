package configsync

import (
	"context"

	"github.com/flemzord/sclaw-console/internal/toolpolicy"
)

// Each panel receives only the editor it needs. *Store implements all of
// them.

// ProviderEditor edits models.providers.
type ProviderEditor interface {
	Providers() map[string]any
	ProviderIDs() []string
	AddProvider(id string, cfg ProviderConfig) error
	PutProvider(id string, entry map[string]any) error
	RenameProvider(from, to string) error
	RemoveProvider(id string) error
	SetProviderField(id, key string, value any) error
	AddModel(providerID string, model ModelConfig) error
	UpdateModel(providerID, modelID string, patch map[string]any) error
	RemoveModel(providerID, modelID string) error
}

// AgentEditor edits agents.list.
type AgentEditor interface {
	Agents() []map[string]any
	DefaultAgent() string
	AddAgent(id string, fields map[string]any) error
	RemoveAgent(id string) error
	SetDefaultAgent(id string) error
	SetAgentField(id, key string, value any) error
}

// ToolPolicyEditor edits the global and per-agent tool policies.
type ToolPolicyEditor interface {
	AgentToolPolicy(agentID string) (toolpolicy.Policy, error)
	EffectiveToolPolicy(agentID string) (toolpolicy.Policy, error)
	AgentPermissions(agentID string) ([]toolpolicy.Permission, error)
	SetAgentToolPolicy(agentID string, p toolpolicy.Policy) error
	ClearAgentToolPolicy(agentID string) error
	SetAgentProfile(agentID, profile string) error
	ToggleAgentTool(agentID, tool string, enabled bool) error
	ToggleAgentGroup(agentID, group string, enabled bool) error
	GlobalToolPolicy() toolpolicy.Policy
	SetGlobalToolPolicy(p toolpolicy.Policy) error
	SetGlobalProfile(profile string) error
	ToggleGlobalTool(tool string, enabled bool) error
	ToggleGlobalGroup(group string, enabled bool) error
}

// IdentityEditor edits agents.list[].identity.
type IdentityEditor interface {
	Identity(agentID string) (map[string]any, error)
	SetIdentityField(agentID, key string, value any) error
}

// ChannelEditor edits channels.
type ChannelEditor interface {
	Channel(id string) (map[string]any, bool)
	PatchChannel(id string, patch map[string]any) error
	SetChannelField(id, path string, value any) error
	UnsetChannelField(id, path string) error
	RemoveChannel(id string) error
}

// SettingsEditor edits agents.defaults and gateway.
type SettingsEditor interface {
	AgentDefaults() map[string]any
	SetAgentDefault(path string, value any) error
	UnsetAgentDefault(path string) error
	SetModelOverride(model string) error
	Gateway() map[string]any
	SetGatewayField(path string, value any) error
	UnsetGatewayField(path string) error
}

// SkillsEditor edits skills and writes them with a merge patch.
type SkillsEditor interface {
	Skills() map[string]any
	SetSkillEnabled(name string, enabled bool) error
	SetSkillField(name, key string, value any) error
	SaveSkills(ctx context.Context) error
}

// Committer runs the snapshot lifecycle.
type Committer interface {
	Load(ctx context.Context) error
	Snapshot() (Snapshot, bool)
	Discard()
	IsDirty(dom Domain) bool
	Dirty() []Domain
	IsDirtyOverall() bool
	Save(ctx context.Context) error
	Apply(ctx context.Context, opts ApplyOptions) error
}

var (
	_ ProviderEditor   = (*Store)(nil)
	_ AgentEditor      = (*Store)(nil)
	_ ToolPolicyEditor = (*Store)(nil)
	_ IdentityEditor   = (*Store)(nil)
	_ ChannelEditor    = (*Store)(nil)
	_ SettingsEditor   = (*Store)(nil)
	_ SkillsEditor     = (*Store)(nil)
	_ Committer        = (*Store)(nil)
)
