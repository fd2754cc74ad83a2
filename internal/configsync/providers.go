package configsync

import (
	"fmt"
	"slices"
	"strings"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

// ProviderConfig is a model provider entry under models.providers.
type ProviderConfig struct {
	BaseURL string            `json:"baseUrl"`
	APIKey  string            `json:"apiKey,omitempty"`
	Auth    string            `json:"auth,omitempty"`
	API     string            `json:"api,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Models  []ModelConfig     `json:"models"`
}

// ModelConfig is one entry of a provider's models list. Zero numeric
// fields are left out.
type ModelConfig struct {
	ID            string       `json:"id"`
	Name          string       `json:"name,omitempty"`
	Reasoning     bool         `json:"reasoning,omitempty"`
	Input         []string     `json:"input,omitempty"`
	ContextWindow float64      `json:"contextWindow,omitempty"`
	MaxTokens     float64      `json:"maxTokens,omitempty"`
	Cost          *ModelCost   `json:"cost,omitempty"`
	Compat        *ModelCompat `json:"compat,omitempty"`
}

// ModelCost is per-million-token pricing.
type ModelCost struct {
	Input      float64  `json:"input"`
	Output     float64  `json:"output"`
	CacheRead  *float64 `json:"cacheRead,omitempty"`
	CacheWrite *float64 `json:"cacheWrite,omitempty"`
}

// ModelCompat holds API compatibility switches.
type ModelCompat struct {
	MaxTokensField string `json:"maxTokensField,omitempty"`
}

// ToMap converts p to its document form.
func (p ProviderConfig) ToMap() map[string]any {
	m := map[string]any{"baseUrl": p.BaseURL}
	if p.APIKey != "" {
		m["apiKey"] = p.APIKey
	}
	if p.Auth != "" {
		m["auth"] = p.Auth
	}
	if p.API != "" {
		m["api"] = p.API
	}
	if len(p.Headers) > 0 {
		m["headers"] = confdoc.Normalize(p.Headers)
	}
	models := make([]any, 0, len(p.Models))
	for _, mc := range p.Models {
		models = append(models, mc.ToMap())
	}
	m["models"] = models
	return m
}

// ToMap converts m to its document form.
func (m ModelConfig) ToMap() map[string]any {
	out := map[string]any{"id": m.ID}
	if m.Name != "" {
		out["name"] = m.Name
	}
	if m.Reasoning {
		out["reasoning"] = true
	}
	if m.Input != nil {
		out["input"] = confdoc.Normalize(m.Input)
	}
	if m.ContextWindow > 0 {
		out["contextWindow"] = m.ContextWindow
	}
	if m.MaxTokens > 0 {
		out["maxTokens"] = m.MaxTokens
	}
	if m.Cost != nil {
		cost := map[string]any{"input": m.Cost.Input, "output": m.Cost.Output}
		if m.Cost.CacheRead != nil {
			cost["cacheRead"] = *m.Cost.CacheRead
		}
		if m.Cost.CacheWrite != nil {
			cost["cacheWrite"] = *m.Cost.CacheWrite
		}
		out["cost"] = cost
	}
	if m.Compat != nil && m.Compat.MaxTokensField != "" {
		out["compat"] = map[string]any{"maxTokensField": m.Compat.MaxTokensField}
	}
	return out
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyID
	}
	return id, nil
}

func providerIn(d *Drafts, id string) (map[string]any, error) {
	p := confdoc.AsMap(d.Providers[id])
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	return p, nil
}

// Providers returns a copy of the providers draft.
func (s *Store) Providers() map[string]any {
	var out map[string]any
	s.read(func(d *Drafts) { out = confdoc.Clone(d.Providers) })
	return out
}

// ProviderIDs returns the provider ids in sorted order.
func (s *Store) ProviderIDs() []string {
	var ids []string
	s.read(func(d *Drafts) {
		for id := range d.Providers {
			ids = append(ids, id)
		}
	})
	slices.Sort(ids)
	return ids
}

// AddProvider adds a new provider entry.
func (s *Store) AddProvider(id string, cfg ProviderConfig) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	return s.edit(func(d *Drafts) error {
		if _, exists := d.Providers[id]; exists {
			return fmt.Errorf("%w: %q", ErrProviderExists, id)
		}
		d.Providers[id] = cfg.ToMap()
		return nil
	})
}

// PutProvider adds or replaces a provider entry with a raw object.
func (s *Store) PutProvider(id string, entry map[string]any) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	return s.edit(func(d *Drafts) error {
		d.Providers[id] = confdoc.Clone(entry)
		return nil
	})
}

// RenameProvider moves a provider to a new key. The old key is dropped
// from the written document.
func (s *Store) RenameProvider(from, to string) error {
	to, err := normalizeID(to)
	if err != nil {
		return err
	}
	return s.edit(func(d *Drafts) error {
		p, err := providerIn(d, from)
		if err != nil {
			return err
		}
		if from == to {
			return nil
		}
		if _, exists := d.Providers[to]; exists {
			return fmt.Errorf("%w: %q", ErrProviderExists, to)
		}
		delete(d.Providers, from)
		d.Providers[to] = p
		return nil
	})
}

// RemoveProvider deletes a provider.
func (s *Store) RemoveProvider(id string) error {
	return s.edit(func(d *Drafts) error {
		if _, err := providerIn(d, id); err != nil {
			return err
		}
		delete(d.Providers, id)
		return nil
	})
}

// SetProviderField sets one top-level provider field. A nil value removes it.
func (s *Store) SetProviderField(id, key string, value any) error {
	return s.edit(func(d *Drafts) error {
		p, err := providerIn(d, id)
		if err != nil {
			return err
		}
		if value == nil {
			delete(p, key)
			return nil
		}
		p[key] = confdoc.CloneValue(value)
		return nil
	})
}

func modelIndex(p map[string]any, modelID string) int {
	for i, item := range confdoc.AsSlice(p["models"]) {
		if m := confdoc.AsMap(item); m != nil && m["id"] == modelID {
			return i
		}
	}
	return -1
}

// AddModel appends a model to a provider.
func (s *Store) AddModel(providerID string, model ModelConfig) error {
	if strings.TrimSpace(model.ID) == "" {
		return ErrEmptyID
	}
	return s.edit(func(d *Drafts) error {
		p, err := providerIn(d, providerID)
		if err != nil {
			return err
		}
		if modelIndex(p, model.ID) >= 0 {
			return fmt.Errorf("%w: %q", ErrModelExists, model.ID)
		}
		p["models"] = append(confdoc.AsSlice(p["models"]), model.ToMap())
		return nil
	})
}

// UpdateModel deep-merges patch into a model entry.
func (s *Store) UpdateModel(providerID, modelID string, patch map[string]any) error {
	return s.edit(func(d *Drafts) error {
		p, err := providerIn(d, providerID)
		if err != nil {
			return err
		}
		i := modelIndex(p, modelID)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownModel, modelID)
		}
		models := confdoc.AsSlice(p["models"])
		models[i] = confdoc.Merge(confdoc.AsMap(models[i]), patch)
		return nil
	})
}

// RemoveModel drops a model from a provider.
func (s *Store) RemoveModel(providerID, modelID string) error {
	return s.edit(func(d *Drafts) error {
		p, err := providerIn(d, providerID)
		if err != nil {
			return err
		}
		i := modelIndex(p, modelID)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownModel, modelID)
		}
		models := confdoc.AsSlice(p["models"])
		p["models"] = slices.Delete(slices.Clone(models), i, i+1)
		return nil
	})
}

// Secrets returns the provider API keys of the current snapshot, for log
// redaction.
func (s *Store) Secrets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil
	}
	var out []string
	for _, v := range ExtractProviders(s.snap.Document) {
		if key, ok := confdoc.AsMap(v)["apiKey"].(string); ok && strings.TrimSpace(key) != "" {
			out = append(out, key)
		}
	}
	return out
}
