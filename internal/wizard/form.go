package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/flemzord/sclaw-console/internal/configsync"
)

// RunForm drives s interactively in the terminal and commits the provider
// to editor. Aborting the form cancels the session.
func RunForm(ctx context.Context, s *Session, editor configsync.ProviderEditor) error {
	err := runForm(ctx, s, editor)
	if errors.Is(err, huh.ErrUserAborted) {
		s.Cancel()
		return ErrCancelled
	}
	return err
}

func runForm(ctx context.Context, s *Session, editor configsync.ProviderEditor) error {
	var presetID, id string
	options := make([]huh.Option[string], 0, len(Presets))
	for _, p := range Presets {
		options = append(options, huh.NewOption(p.Name, p.ID))
	}
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title("Provider").Options(options...).Value(&presetID),
		huh.NewInput().Title("Provider id").Description("Leave empty to use the preset id").Value(&id),
	)).RunWithContext(ctx)
	if err != nil {
		return err
	}
	if err := s.ChoosePreset(presetID, id); err != nil {
		return err
	}

	baseURL, api := s.Provider().BaseURL, s.Provider().API
	apiOptions := make([]huh.Option[string], 0, len(APIs))
	for _, a := range APIs {
		apiOptions = append(apiOptions, huh.NewOption(a, a))
	}
	err = huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Base URL").Value(&baseURL).Validate(ValidateBaseURL),
		huh.NewSelect[string]().Title("API").Options(apiOptions...).Value(&api),
	)).RunWithContext(ctx)
	if err != nil {
		return err
	}
	if err := s.SetEndpoint(baseURL, api); err != nil {
		return err
	}

	var apiKey string
	err = huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("API key").EchoMode(huh.EchoModePassword).Value(&apiKey),
	)).RunWithContext(ctx)
	if err != nil {
		return err
	}
	if err := s.SetCredentials(apiKey); err != nil {
		return err
	}

	for {
		more := len(s.Provider().Models) == 0
		if !more {
			err := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("%d model(s) configured. Add another?", len(s.Provider().Models))).
					Value(&more),
			)).RunWithContext(ctx)
			if err != nil {
				return err
			}
		}
		if !more {
			break
		}
		m, err := modelForm(ctx)
		if err != nil {
			return err
		}
		if err := s.AddModel(m); err != nil {
			return err
		}
	}
	if err := s.FinishModels(); err != nil {
		return err
	}

	confirm := true
	err = huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Add provider " + s.ID() + "?").
			Description(Summary(s)).
			Affirmative("Add").
			Negative("Cancel").
			Value(&confirm),
	)).RunWithContext(ctx)
	if err != nil {
		return err
	}
	if !confirm {
		s.Cancel()
		return ErrCancelled
	}
	return s.Commit(editor)
}

func modelForm(ctx context.Context) (configsync.ModelConfig, error) {
	var id, name, window string
	var reasoning bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Model id").Value(&id).Validate(func(v string) error {
			if strings.TrimSpace(v) == "" {
				return configsync.ErrEmptyID
			}
			return nil
		}),
		huh.NewInput().Title("Display name").Value(&name),
		huh.NewInput().Title("Context window (tokens)").Value(&window).Validate(func(v string) error {
			if v == "" {
				return nil
			}
			_, err := strconv.ParseFloat(v, 64)
			return err
		}),
		huh.NewConfirm().Title("Reasoning model?").Value(&reasoning),
	)).RunWithContext(ctx)
	if err != nil {
		return configsync.ModelConfig{}, err
	}
	m := configsync.ModelConfig{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name), Reasoning: reasoning}
	if window != "" {
		m.ContextWindow, _ = strconv.ParseFloat(window, 64)
	}
	return m, nil
}

// Summary renders the provider for review. The API key is masked.
func Summary(s *Session) string {
	p := s.Provider()
	var b strings.Builder
	fmt.Fprintf(&b, "id:       %s\n", s.ID())
	fmt.Fprintf(&b, "base url: %s\n", p.BaseURL)
	fmt.Fprintf(&b, "api:      %s\n", p.API)
	key := "(none)"
	if p.APIKey != "" {
		key = "********"
	}
	fmt.Fprintf(&b, "api key:  %s\n", key)
	for _, m := range p.Models {
		fmt.Fprintf(&b, "model:    %s", m.ID)
		if m.Name != "" {
			fmt.Fprintf(&b, " (%s)", m.Name)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
