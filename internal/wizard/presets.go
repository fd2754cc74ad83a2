package wizard

import "github.com/flemzord/sclaw-console/internal/configsync"

// API kinds accepted by the gateway for models.providers.<id>.api.
const (
	APIOpenAICompletions = "openai-completions"
	APIOpenAIResponses   = "openai-responses"
	APIAnthropicMessages = "anthropic-messages"
	APIGoogleGenerative  = "google-generative-ai"
)

// APIs lists the selectable API kinds.
var APIs = []string{APIOpenAICompletions, APIOpenAIResponses, APIAnthropicMessages, APIGoogleGenerative}

// Preset pre-fills a provider.
type Preset struct {
	Name    string
	ID      string
	BaseURL string
	API     string
	// KeyRequired reports whether the provider needs an API key.
	KeyRequired bool
	Models      []configsync.ModelConfig
}

// Presets are the providers offered by the wizard. "custom" leaves every
// field to the operator.
var Presets = []Preset{
	{
		Name:        "OpenAI",
		ID:          "openai",
		BaseURL:     "https://api.openai.com/v1",
		API:         APIOpenAIResponses,
		KeyRequired: true,
		Models: []configsync.ModelConfig{
			{ID: "gpt-4.1", Name: "GPT-4.1", Input: []string{"text", "image"}, ContextWindow: 1047576, MaxTokens: 32768},
		},
	},
	{
		Name:        "Anthropic",
		ID:          "anthropic",
		BaseURL:     "https://api.anthropic.com",
		API:         APIAnthropicMessages,
		KeyRequired: true,
		Models: []configsync.ModelConfig{
			{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", Reasoning: true, Input: []string{"text", "image"}, ContextWindow: 200000, MaxTokens: 64000},
		},
	},
	{
		Name:        "OpenRouter",
		ID:          "openrouter",
		BaseURL:     "https://openrouter.ai/api/v1",
		API:         APIOpenAICompletions,
		KeyRequired: true,
	},
	{
		Name:    "Ollama (local)",
		ID:      "ollama",
		BaseURL: "http://127.0.0.1:11434/v1",
		API:     APIOpenAICompletions,
	},
	{
		Name: "Custom",
		ID:   "custom",
		API:  APIOpenAICompletions,
	},
}

// LookupPreset returns the preset with the given id.
func LookupPreset(id string) (Preset, bool) {
	for _, p := range Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
