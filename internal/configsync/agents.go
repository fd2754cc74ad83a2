package configsync

import (
	"fmt"
	"slices"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

func agentIndex(d *Drafts, id string) int {
	for i, a := range d.Agents {
		if agentID(a) == id {
			return i
		}
	}
	return -1
}

func requireAgent(d *Drafts, id string) error {
	if agentIndex(d, id) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownAgent, id)
	}
	return nil
}

// Agents returns a copy of the agents list draft.
func (s *Store) Agents() []map[string]any {
	var out []map[string]any
	s.read(func(d *Drafts) {
		out = make([]map[string]any, len(d.Agents))
		for i, a := range d.Agents {
			out[i] = confdoc.Clone(a)
		}
	})
	return out
}

// AddAgent appends an agent entry. fields may carry name, workspace, model
// or default; tools and identity are edited through their own panels.
func (s *Store) AddAgent(id string, fields map[string]any) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	for key := range fields {
		if key == agentKeyTools || key == agentKeyIdentity {
			return fmt.Errorf("%w: %s", ErrReservedField, key)
		}
	}
	return s.edit(func(d *Drafts) error {
		if agentIndex(d, id) >= 0 {
			return fmt.Errorf("%w: %q", ErrAgentExists, id)
		}
		entry := confdoc.Clone(fields)
		entry[agentKeyID] = id
		isDefault, _ := entry[agentKeyDefault].(bool)
		delete(entry, agentKeyDefault)
		d.Agents = append(d.Agents, entry)
		if isDefault {
			setDefault(d, id)
		}
		return nil
	})
}

// RemoveAgent drops an agent. When it was the default, the first remaining
// agent is promoted.
func (s *Store) RemoveAgent(id string) error {
	return s.edit(func(d *Drafts) error {
		i := agentIndex(d, id)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownAgent, id)
		}
		wasDefault, _ := d.Agents[i][agentKeyDefault].(bool)
		d.Agents = slices.Delete(d.Agents, i, i+1)
		if wasDefault && len(d.Agents) > 0 {
			setDefault(d, agentID(d.Agents[0]))
		}
		return nil
	})
}

// SetDefaultAgent marks id as the only default agent.
func (s *Store) SetDefaultAgent(id string) error {
	return s.edit(func(d *Drafts) error {
		if err := requireAgent(d, id); err != nil {
			return err
		}
		setDefault(d, id)
		return nil
	})
}

func setDefault(d *Drafts, id string) {
	for _, a := range d.Agents {
		if agentID(a) == id {
			a[agentKeyDefault] = true
		} else {
			delete(a, agentKeyDefault)
		}
	}
}

// DefaultAgent returns the id of the default agent: the one flagged
// default, else the first listed.
func (s *Store) DefaultAgent() string {
	var id string
	s.read(func(d *Drafts) {
		for _, a := range d.Agents {
			if v, _ := a[agentKeyDefault].(bool); v {
				id = agentID(a)
				return
			}
		}
		if len(d.Agents) > 0 {
			id = agentID(d.Agents[0])
		}
	})
	return id
}

// SetAgentField sets one field of an agent entry. A nil value removes it.
func (s *Store) SetAgentField(id, key string, value any) error {
	switch key {
	case agentKeyID, agentKeyTools, agentKeyIdentity:
		return fmt.Errorf("%w: %s", ErrReservedField, key)
	}
	return s.edit(func(d *Drafts) error {
		i := agentIndex(d, id)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownAgent, id)
		}
		if key == agentKeyDefault {
			if v, _ := value.(bool); v {
				setDefault(d, id)
			} else {
				delete(d.Agents[i], agentKeyDefault)
			}
			return nil
		}
		if value == nil {
			delete(d.Agents[i], key)
			return nil
		}
		d.Agents[i][key] = confdoc.CloneValue(value)
		return nil
	})
}
