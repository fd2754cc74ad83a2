package configsync

import (
	"fmt"
	"strings"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

// Identity returns a copy of the agent's identity draft.
func (s *Store) Identity(agentID string) (map[string]any, error) {
	var out map[string]any
	err := s.edit(func(d *Drafts) error {
		if err := requireAgent(d, agentID); err != nil {
			return err
		}
		out = cloneMap(d.AgentIdentity[agentID])
		return nil
	})
	return out, err
}

// SetIdentityField sets one identity field (name, emoji, avatar, theme).
// A nil or blank string value removes it.
func (s *Store) SetIdentityField(agentID, key string, value any) error {
	return s.edit(func(d *Drafts) error {
		if err := requireAgent(d, agentID); err != nil {
			return err
		}
		ident := d.AgentIdentity[agentID]
		if ident == nil {
			ident = map[string]any{}
		}
		if str, ok := value.(string); value == nil || (ok && strings.TrimSpace(str) == "") {
			delete(ident, key)
		} else {
			ident[key] = confdoc.CloneValue(value)
		}
		if len(ident) == 0 {
			delete(d.AgentIdentity, agentID)
			return nil
		}
		d.AgentIdentity[agentID] = ident
		return nil
	})
}

// Channel returns a copy of one channel's settings.
func (s *Store) Channel(id string) (map[string]any, bool) {
	var out map[string]any
	s.read(func(d *Drafts) { out = confdoc.AsMap(confdoc.CloneValue(d.Channels[id])) })
	return out, out != nil
}

// PatchChannel deep-merges patch into a channel's settings, creating the
// channel when needed. Sibling keys not named by patch survive.
func (s *Store) PatchChannel(id string, patch map[string]any) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	return s.edit(func(d *Drafts) error {
		d.Channels[id] = confdoc.Merge(confdoc.AsMap(d.Channels[id]), patch)
		return nil
	})
}

// SetChannelField sets a dotted path inside a channel's settings.
func (s *Store) SetChannelField(id, path string, value any) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	return s.edit(func(d *Drafts) error {
		ch := confdoc.AsMap(d.Channels[id])
		if ch == nil {
			ch = map[string]any{}
		}
		if err := confdoc.Set(ch, confdoc.CloneValue(value), confdoc.ParsePath(path)...); err != nil {
			return err
		}
		d.Channels[id] = ch
		return nil
	})
}

// UnsetChannelField removes a dotted path inside a channel's settings.
func (s *Store) UnsetChannelField(id, path string) error {
	return s.edit(func(d *Drafts) error {
		ch := confdoc.AsMap(d.Channels[id])
		if ch == nil {
			return fmt.Errorf("%w: %q", ErrUnknownChannel, id)
		}
		confdoc.Delete(ch, confdoc.ParsePath(path)...)
		return nil
	})
}

// RemoveChannel drops a channel's settings.
func (s *Store) RemoveChannel(id string) error {
	return s.edit(func(d *Drafts) error {
		if _, ok := d.Channels[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownChannel, id)
		}
		delete(d.Channels, id)
		return nil
	})
}

// AgentDefaults returns a copy of the agents.defaults draft.
func (s *Store) AgentDefaults() map[string]any {
	var out map[string]any
	s.read(func(d *Drafts) { out = confdoc.Clone(d.AgentDefaults) })
	return out
}

// SetAgentDefault sets a dotted path under agents.defaults.
func (s *Store) SetAgentDefault(path string, value any) error {
	return s.edit(func(d *Drafts) error {
		return confdoc.Set(d.AgentDefaults, confdoc.CloneValue(value), confdoc.ParsePath(path)...)
	})
}

// UnsetAgentDefault removes a dotted path under agents.defaults.
func (s *Store) UnsetAgentDefault(path string) error {
	return s.edit(func(d *Drafts) error {
		confdoc.Delete(d.AgentDefaults, confdoc.ParsePath(path)...)
		return nil
	})
}

// SetModelOverride sets agents.defaults.model.primary. An empty model
// removes the override.
func (s *Store) SetModelOverride(model string) error {
	model = strings.TrimSpace(model)
	return s.edit(func(d *Drafts) error {
		if model == "" {
			confdoc.Delete(d.AgentDefaults, "model", "primary")
			if m, ok := d.AgentDefaults["model"].(map[string]any); ok && len(m) == 0 {
				delete(d.AgentDefaults, "model")
			}
			return nil
		}
		return confdoc.Set(d.AgentDefaults, model, "model", "primary")
	})
}

// Gateway returns a copy of the gateway settings draft.
func (s *Store) Gateway() map[string]any {
	var out map[string]any
	s.read(func(d *Drafts) { out = confdoc.Clone(d.Gateway) })
	return out
}

// SetGatewayField sets a dotted path under gateway.
func (s *Store) SetGatewayField(path string, value any) error {
	return s.edit(func(d *Drafts) error {
		return confdoc.Set(d.Gateway, confdoc.CloneValue(value), confdoc.ParsePath(path)...)
	})
}

// UnsetGatewayField removes a dotted path under gateway.
func (s *Store) UnsetGatewayField(path string) error {
	return s.edit(func(d *Drafts) error {
		confdoc.Delete(d.Gateway, confdoc.ParsePath(path)...)
		return nil
	})
}

// Skills returns a copy of the skills draft.
func (s *Store) Skills() map[string]any {
	var out map[string]any
	s.read(func(d *Drafts) { out = confdoc.Clone(d.Skills) })
	return out
}

// SetSkillEnabled sets skills.entries.<name>.enabled.
func (s *Store) SetSkillEnabled(name string, enabled bool) error {
	return s.SetSkillField(name, "enabled", enabled)
}

// SetSkillField sets skills.entries.<name>.<key>. A nil value removes it.
func (s *Store) SetSkillField(name, key string, value any) error {
	name, err := normalizeID(name)
	if err != nil {
		return err
	}
	return s.edit(func(d *Drafts) error {
		if value == nil {
			confdoc.Delete(d.Skills, "entries", name, key)
			return nil
		}
		return confdoc.Set(d.Skills, confdoc.CloneValue(value), "entries", name, key)
	})
}
