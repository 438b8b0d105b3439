package agent

import (
	"context"

	"github.com/clawsync/clawsync/internal/config"
	"github.com/clawsync/clawsync/internal/observability"
)

// Defaults used when no usable configuration exists. The model id
// matches the anthropic constructor's own default.
const (
	defaultProviderName = "anthropic"
	defaultModelID      = "claude-sonnet-4-20250514"
)

// ProviderConstructor builds a provider handle from a provider name and
// model identifier. Implemented by providers.Registry.
type ProviderConstructor interface {
	Construct(name, model string) (LLMProvider, string, error)
}

// ResolvedModel is a ready-to-call provider handle plus the model to
// request from it.
type ResolvedModel struct {
	Provider     LLMProvider
	ProviderName string
	Model        string

	// IsFallback is true when the configured primary could not be
	// constructed and a fallback handle was used instead.
	IsFallback bool
}

// Resolver turns the stored agent configuration into a provider
// handle. Resolution never fails: a broken primary falls back to the
// configured fallback model, and a broken fallback lands on the
// default Anthropic handle.
type Resolver struct {
	registry ProviderConstructor
	store    config.Store
	logger   *observability.Logger
}

// NewResolver creates a resolver reading configuration from store.
func NewResolver(registry ProviderConstructor, store config.Store, logger *observability.Logger) *Resolver {
	return &Resolver{registry: registry, store: store, logger: logger}
}

// Resolve loads the agent configuration and constructs the provider
// handle for this request. A missing configuration row resolves to the
// Anthropic default.
func (r *Resolver) Resolve(ctx context.Context) (*ResolvedModel, error) {
	cfg, err := r.store.GetAgentConfig(ctx)
	if err != nil {
		return nil, err
	}

	providerName := defaultProviderName
	model := defaultModelID
	if cfg != nil {
		if cfg.ModelProvider != "" {
			providerName = cfg.ModelProvider
		}
		if cfg.Model != "" {
			model = cfg.Model
		}
	}

	handle, resolvedModel, err := r.registry.Construct(providerName, model)
	if err == nil {
		return &ResolvedModel{
			Provider:     handle,
			ProviderName: handle.Name(),
			Model:        resolvedModel,
		}, nil
	}
	r.logger.Warn(ctx, "primary model construction failed, using fallback",
		"provider", providerName, "model", model, "error", err)

	if cfg != nil && cfg.HasFallback() {
		handle, resolvedModel, err = r.registry.Construct(cfg.FallbackProvider, cfg.FallbackModel)
		if err == nil {
			return &ResolvedModel{
				Provider:     handle,
				ProviderName: handle.Name(),
				Model:        resolvedModel,
				IsFallback:   true,
			}, nil
		}
		r.logger.Warn(ctx, "fallback model construction failed, using default",
			"provider", cfg.FallbackProvider, "model", cfg.FallbackModel, "error", err)
	}

	// The anthropic constructor cannot fail, so this always resolves.
	handle, resolvedModel, _ = r.registry.Construct(defaultProviderName, defaultModelID)
	return &ResolvedModel{
		Provider:     handle,
		ProviderName: handle.Name(),
		Model:        resolvedModel,
		IsFallback:   true,
	}, nil
}
