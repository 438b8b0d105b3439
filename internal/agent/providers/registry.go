package providers

import (
	"fmt"
	"os"
	"strings"

	"github.com/clawsync/clawsync/internal/agent"
)

// Separator between the base URL and model ID in a custom provider
// model string, e.g. "https://llm.internal.example/v1::my-model".
const customModelSeparator = "::"

// Registry constructs provider handles by name. The set of known
// provider names is closed; an unknown name degrades to the default
// Anthropic handle rather than failing, so a stale configuration row
// can never take chat down.
type Registry struct {
	// LookupEnv resolves API keys. Defaults to os.LookupEnv;
	// injectable for tests.
	LookupEnv func(string) (string, bool)

	// AppName and SiteURL identify this deployment to gateways that
	// support attribution headers (OpenRouter).
	AppName string
	SiteURL string
}

// NewRegistry creates a registry reading keys from the environment.
func NewRegistry() *Registry {
	return &Registry{
		LookupEnv: os.LookupEnv,
		AppName:   "ClawSync",
		SiteURL:   "https://clawsync.app",
	}
}

func (r *Registry) key(envVar string) string {
	lookup := r.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(envVar)
	return v
}

// Construct returns a provider handle for the named provider together
// with the model string to use against it. For the "custom" provider
// the model string carries the endpoint ("baseUrl::modelId") and is
// split here; a malformed custom model is the only per-name input that
// makes Construct fail, beyond Gemini client initialization.
func (r *Registry) Construct(name, model string) (agent.LLMProvider, string, error) {
	switch name {
	case "anthropic":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey: r.key("ANTHROPIC_API_KEY"),
		}), model, nil

	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			Name:   "openai",
			APIKey: r.key("OPENAI_API_KEY"),
		}), model, nil

	case "google":
		provider, err := NewGoogleProvider(GoogleConfig{
			APIKey: r.key("GEMINI_API_KEY"),
		})
		if err != nil {
			return nil, "", err
		}
		return provider, model, nil

	case "openrouter":
		return NewOpenRouterProvider(r.key("OPENROUTER_API_KEY"), r.AppName, r.SiteURL), model, nil

	case "opencode-zen":
		return NewOpenAIProvider(OpenAIConfig{
			Name:    "opencode-zen",
			APIKey:  r.key("OPENCODE_API_KEY"),
			BaseURL: OpenCodeBaseURL,
		}), model, nil

	case "xai":
		return NewOpenAIProvider(OpenAIConfig{
			Name:         "xai",
			APIKey:       r.key("XAI_API_KEY"),
			BaseURL:      XAIBaseURL,
			DefaultModel: "grok-3",
		}), model, nil

	case "custom":
		baseURL, modelID, ok := strings.Cut(model, customModelSeparator)
		if !ok || strings.TrimSpace(baseURL) == "" || strings.TrimSpace(modelID) == "" {
			return nil, "", fmt.Errorf("custom provider model %q: want %q-separated base URL and model ID", model, customModelSeparator)
		}
		return NewOpenAIProvider(OpenAIConfig{
			Name:    "custom",
			APIKey:  r.key("CUSTOM_API_KEY"),
			BaseURL: strings.TrimSpace(baseURL),
		}), strings.TrimSpace(modelID), nil

	default:
		// Unknown names fall back to the default Anthropic handle.
		return NewAnthropicProvider(AnthropicConfig{
			APIKey: r.key("ANTHROPIC_API_KEY"),
		}), DefaultAnthropicModel, nil
	}
}

// Known reports whether name is one of the supported providers.
func (r *Registry) Known(name string) bool {
	switch name {
	case "anthropic", "openai", "google", "openrouter", "opencode-zen", "xai", "custom":
		return true
	default:
		return false
	}
}
