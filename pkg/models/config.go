package models

import "time"

// AgentConfig is the singleton configuration row that governs every chat
// request. It is created and edited through the SyncBoard UI; the core
// only ever reads it. There is no versioning: last write wins.
type AgentConfig struct {
	// ModelProvider names the primary provider. One of: anthropic,
	// openai, google, openrouter, opencode-zen, custom, xai. Anything
	// else degrades to the system default model at resolution time.
	ModelProvider string `json:"model_provider"`

	// Model is the provider-specific model identifier. For the custom
	// provider it is a composite "baseUrl::modelId" string.
	Model string `json:"model"`

	// FallbackProvider and FallbackModel form the secondary pair tried
	// when the primary fails to construct. Both must be set for fallback
	// to activate; a half-set pair degrades to the hardcoded default.
	FallbackProvider string `json:"fallback_provider,omitempty"`
	FallbackModel    string `json:"fallback_model,omitempty"`

	// SoulDocument is the persona/identity text.
	SoulDocument string `json:"soul_document,omitempty"`

	// SystemPrompt holds operational instructions appended after the
	// soul document.
	SystemPrompt string `json:"system_prompt,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// HasFallback reports whether the fallback pair is fully specified.
func (c *AgentConfig) HasFallback() bool {
	return c != nil && c.FallbackProvider != "" && c.FallbackModel != ""
}

// ChannelConfig is the per-channel-type configuration row read by each
// inbound handler to gate processing.
type ChannelConfig struct {
	ChannelType        ChannelType    `json:"channel_type"`
	DisplayName        string         `json:"display_name"`
	Enabled            bool           `json:"enabled"`
	RateLimitPerMinute int            `json:"rate_limit_per_minute"`
	WebhookURL         string         `json:"webhook_url,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
