package configsync

import (
	"fmt"
	"slices"

	"github.com/flemzord/sclaw-console/internal/toolpolicy"
)

// AgentToolPolicy returns the agent's own tool policy draft.
func (s *Store) AgentToolPolicy(agentID string) (toolpolicy.Policy, error) {
	var p toolpolicy.Policy
	err := s.edit(func(d *Drafts) error {
		if err := requireAgent(d, agentID); err != nil {
			return err
		}
		p = d.AgentTools[agentID].Clone()
		return nil
	})
	return p, err
}

// EffectiveToolPolicy layers the agent's policy over the global one.
func (s *Store) EffectiveToolPolicy(agentID string) (toolpolicy.Policy, error) {
	var p toolpolicy.Policy
	err := s.edit(func(d *Drafts) error {
		if err := requireAgent(d, agentID); err != nil {
			return err
		}
		p = toolpolicy.Effective(d.GlobalTools, d.AgentTools[agentID])
		return nil
	})
	return p, err
}

// AgentPermissions lists every known tool with its state for the agent.
func (s *Store) AgentPermissions(agentID string) ([]toolpolicy.Permission, error) {
	p, err := s.EffectiveToolPolicy(agentID)
	if err != nil {
		return nil, err
	}
	return toolpolicy.Permissions(p), nil
}

// SetAgentToolPolicy replaces the agent's tool policy.
func (s *Store) SetAgentToolPolicy(agentID string, p toolpolicy.Policy) error {
	return s.editAgentTools(agentID, func(d *Drafts, cur toolpolicy.Policy) (toolpolicy.Policy, error) {
		return p.Clone(), nil
	})
}

// ClearAgentToolPolicy removes every policy field from the agent so it
// inherits the global policy.
func (s *Store) ClearAgentToolPolicy(agentID string) error {
	return s.editAgentTools(agentID, func(d *Drafts, cur toolpolicy.Policy) (toolpolicy.Policy, error) {
		return toolpolicy.Policy{}, nil
	})
}

// SetAgentProfile sets the agent's profile. An empty profile inherits.
func (s *Store) SetAgentProfile(agentID, profile string) error {
	if err := checkProfile(profile); err != nil {
		return err
	}
	return s.editAgentTools(agentID, func(d *Drafts, cur toolpolicy.Policy) (toolpolicy.Policy, error) {
		cur.Profile = profile
		return cur, nil
	})
}

// ToggleAgentTool enables or disables one tool for the agent by editing its
// deny list. An agent without its own deny list starts from the inherited
// one.
func (s *Store) ToggleAgentTool(agentID, tool string, enabled bool) error {
	return s.editAgentTools(agentID, func(d *Drafts, cur toolpolicy.Policy) (toolpolicy.Policy, error) {
		deny, err := toolpolicy.ToggleTool(inheritedDeny(d, cur), tool, enabled)
		if err != nil {
			return cur, err
		}
		cur.Deny = s.settleAgentDeny(d, agentID, deny)
		return cur, nil
	})
}

// ToggleAgentGroup enables or disables a tool group for the agent. The
// group id is added to or removed from deny as a single entry.
func (s *Store) ToggleAgentGroup(agentID, group string, enabled bool) error {
	return s.editAgentTools(agentID, func(d *Drafts, cur toolpolicy.Policy) (toolpolicy.Policy, error) {
		deny, err := toolpolicy.ToggleGroup(inheritedDeny(d, cur), group, enabled)
		if err != nil {
			return cur, err
		}
		cur.Deny = s.settleAgentDeny(d, agentID, deny)
		return cur, nil
	})
}

func inheritedDeny(d *Drafts, agent toolpolicy.Policy) []string {
	return toolpolicy.Effective(d.GlobalTools, agent).Deny
}

// settleDeny returns nil in place of deny when the baseline left the field
// unset and deny lists the same entries the field would inherit, so
// toggling a tool off and on again leaves no explicit override behind.
func settleDeny(deny, inherited, baseline []string) []string {
	if baseline == nil && slices.Equal(deny, inherited) {
		return nil
	}
	return deny
}

// settleAgentDeny applies settleDeny to an agent's deny list. Must be
// called with mu held.
func (s *Store) settleAgentDeny(d *Drafts, agentID string, deny []string) []string {
	var base []string
	if s.baseline != nil {
		base = s.baseline.AgentTools[agentID].Deny
	}
	return settleDeny(deny, d.GlobalTools.Deny, base)
}

// settleGlobalDeny applies settleDeny to the global deny list. Must be
// called with mu held.
func (s *Store) settleGlobalDeny(deny []string) []string {
	var base []string
	if s.baseline != nil {
		base = s.baseline.GlobalTools.Deny
	}
	return settleDeny(deny, nil, base)
}

func (s *Store) editAgentTools(agentID string, fn func(d *Drafts, cur toolpolicy.Policy) (toolpolicy.Policy, error)) error {
	return s.edit(func(d *Drafts) error {
		if err := requireAgent(d, agentID); err != nil {
			return err
		}
		next, err := fn(d, d.AgentTools[agentID].Clone())
		if err != nil {
			return err
		}
		d.AgentTools[agentID] = next
		return nil
	})
}

// GlobalToolPolicy returns the global tool policy draft.
func (s *Store) GlobalToolPolicy() toolpolicy.Policy {
	var p toolpolicy.Policy
	s.read(func(d *Drafts) { p = d.GlobalTools.Clone() })
	return p
}

// SetGlobalToolPolicy replaces the global tool policy.
func (s *Store) SetGlobalToolPolicy(p toolpolicy.Policy) error {
	return s.edit(func(d *Drafts) error {
		d.GlobalTools = p.Clone()
		return nil
	})
}

// SetGlobalProfile sets the global profile.
func (s *Store) SetGlobalProfile(profile string) error {
	if err := checkProfile(profile); err != nil {
		return err
	}
	return s.edit(func(d *Drafts) error {
		d.GlobalTools.Profile = profile
		return nil
	})
}

// ToggleGlobalTool edits the global deny list for one tool.
func (s *Store) ToggleGlobalTool(tool string, enabled bool) error {
	return s.edit(func(d *Drafts) error {
		deny, err := toolpolicy.ToggleTool(d.GlobalTools.Deny, tool, enabled)
		if err != nil {
			return err
		}
		d.GlobalTools.Deny = s.settleGlobalDeny(deny)
		return nil
	})
}

// ToggleGlobalGroup edits the global deny list for one group.
func (s *Store) ToggleGlobalGroup(group string, enabled bool) error {
	return s.edit(func(d *Drafts) error {
		deny, err := toolpolicy.ToggleGroup(d.GlobalTools.Deny, group, enabled)
		if err != nil {
			return err
		}
		d.GlobalTools.Deny = s.settleGlobalDeny(deny)
		return nil
	})
}

func checkProfile(profile string) error {
	if profile == "" {
		return nil
	}
	if _, ok := toolpolicy.Profiles[profile]; !ok {
		return fmt.Errorf("%w: %q", toolpolicy.ErrUnknownProfile, profile)
	}
	return nil
}
