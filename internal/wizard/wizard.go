// Package wizard walks an operator through adding a model provider. Each
// run owns a Session; the steps only move forward once their input is
// valid, and nothing reaches the configuration drafts before Commit.
package wizard

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/flemzord/sclaw-console/internal/configsync"
)

// Step is a wizard stage.
type Step int

// Steps in order.
const (
	StepPreset Step = iota
	StepEndpoint
	StepCredentials
	StepModels
	StepReview
	StepDone
)

var stepNames = [...]string{"preset", "endpoint", "credentials", "models", "review", "done"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// Errors returned by Session.
var (
	ErrWrongStep     = errors.New("wizard: not at this step")
	ErrUnknownPreset = errors.New("wizard: unknown preset")
	ErrInvalidURL    = errors.New("wizard: base url must be an absolute http(s) url")
	ErrUnknownAPI    = errors.New("wizard: unknown api")
	ErrKeyRequired   = errors.New("wizard: api key required")
	ErrNoModels      = errors.New("wizard: at least one model is required")
	ErrCancelled     = errors.New("wizard: cancelled")
)

// Session is one run of the wizard.
type Session struct {
	step      Step
	existing  []string
	preset    Preset
	id        string
	cfg       configsync.ProviderConfig
	cancelled bool
}

// NewSession starts a wizard. existing lists the provider ids already
// configured; the chosen id must not collide with them.
func NewSession(existing []string) *Session {
	return &Session{step: StepPreset, existing: slices.Clone(existing)}
}

// Step returns the current step.
func (s *Session) Step() Step { return s.step }

// Preset returns the chosen preset.
func (s *Session) Preset() Preset { return s.preset }

// ID returns the chosen provider id.
func (s *Session) ID() string { return s.id }

// Provider returns the provider assembled so far.
func (s *Session) Provider() configsync.ProviderConfig { return s.cfg }

// ChoosePreset selects a preset and the provider id. An empty id uses the
// preset's id.
func (s *Session) ChoosePreset(presetID, id string) error {
	if err := s.at(StepPreset); err != nil {
		return err
	}
	p, ok := LookupPreset(presetID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, presetID)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = p.ID
	}
	if slices.Contains(s.existing, id) {
		return fmt.Errorf("%w: %q", configsync.ErrProviderExists, id)
	}
	s.preset = p
	s.id = id
	s.cfg = configsync.ProviderConfig{
		BaseURL: p.BaseURL,
		API:     p.API,
		Models:  slices.Clone(p.Models),
	}
	s.step = StepEndpoint
	return nil
}

// SetEndpoint sets the base URL and API kind. Empty values keep the
// preset's.
func (s *Session) SetEndpoint(baseURL, api string) error {
	if err := s.at(StepEndpoint); err != nil {
		return err
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = s.cfg.BaseURL
	}
	if api = strings.TrimSpace(api); api == "" {
		api = s.cfg.API
	}
	if err := ValidateBaseURL(baseURL); err != nil {
		return err
	}
	if !slices.Contains(APIs, api) {
		return fmt.Errorf("%w: %q", ErrUnknownAPI, api)
	}
	s.cfg.BaseURL = strings.TrimRight(baseURL, "/")
	s.cfg.API = api
	s.step = StepCredentials
	return nil
}

// SetCredentials sets the API key. Presets that need a key reject an
// empty one.
func (s *Session) SetCredentials(apiKey string) error {
	if err := s.at(StepCredentials); err != nil {
		return err
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" && s.preset.KeyRequired {
		return ErrKeyRequired
	}
	s.cfg.APIKey = apiKey
	s.step = StepModels
	return nil
}

// AddModel appends a model. Duplicate ids are rejected.
func (s *Session) AddModel(m configsync.ModelConfig) error {
	if err := s.at(StepModels); err != nil {
		return err
	}
	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		return configsync.ErrEmptyID
	}
	if slices.ContainsFunc(s.cfg.Models, func(x configsync.ModelConfig) bool { return x.ID == m.ID }) {
		return fmt.Errorf("%w: %q", configsync.ErrModelExists, m.ID)
	}
	s.cfg.Models = append(s.cfg.Models, m)
	return nil
}

// FinishModels leaves the models step.
func (s *Session) FinishModels() error {
	if err := s.at(StepModels); err != nil {
		return err
	}
	if len(s.cfg.Models) == 0 {
		return ErrNoModels
	}
	s.step = StepReview
	return nil
}

// Back returns to the previous step. Entered values are kept.
func (s *Session) Back() {
	if s.step > StepPreset && s.step < StepDone {
		s.step--
	}
}

// Cancel abandons the wizard.
func (s *Session) Cancel() {
	s.cancelled = true
	s.step = StepDone
}

// Commit adds the provider to the drafts behind editor.
func (s *Session) Commit(editor configsync.ProviderEditor) error {
	if s.cancelled {
		return ErrCancelled
	}
	if err := s.at(StepReview); err != nil {
		return err
	}
	if err := editor.AddProvider(s.id, s.cfg); err != nil {
		return err
	}
	s.step = StepDone
	return nil
}

func (s *Session) at(step Step) error {
	if s.cancelled {
		return ErrCancelled
	}
	if s.step != step {
		return fmt.Errorf("%w: at %s, want %s", ErrWrongStep, s.step, step)
	}
	return nil
}

// ValidateBaseURL checks that raw is an absolute http or https URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}
