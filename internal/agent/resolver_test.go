package agent_test

import (
	"context"
	"testing"

	"github.com/clawsync/clawsync/internal/agent"
	"github.com/clawsync/clawsync/internal/agent/providers"
	"github.com/clawsync/clawsync/internal/config"
	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/pkg/models"
)

func newTestResolver(t *testing.T, cfg *models.AgentConfig) *agent.Resolver {
	t.Helper()
	store := config.NewMemoryStore()
	if cfg != nil {
		if err := store.PutAgentConfig(context.Background(), cfg); err != nil {
			t.Fatalf("PutAgentConfig() error = %v", err)
		}
	}
	registry := providers.NewRegistry()
	registry.LookupEnv = func(string) (string, bool) { return "test-key", true }
	logger := observability.NewLogger(observability.LogConfig{Level: "error", Format: "text"})
	return agent.NewResolver(registry, store, logger)
}

func TestResolve_NoConfigUsesDefault(t *testing.T) {
	r := newTestResolver(t, nil)

	resolved, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.ProviderName != "anthropic" {
		t.Errorf("ProviderName = %q, want anthropic", resolved.ProviderName)
	}
	if resolved.Model != providers.DefaultAnthropicModel {
		t.Errorf("Model = %q, want %q", resolved.Model, providers.DefaultAnthropicModel)
	}
	if resolved.IsFallback {
		t.Error("IsFallback = true for the plain default")
	}
}

func TestResolve_ConfiguredPrimary(t *testing.T) {
	r := newTestResolver(t, &models.AgentConfig{
		ModelProvider: "openrouter",
		Model:         "anthropic/claude-sonnet-4",
	})

	resolved, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.ProviderName != "openrouter" || resolved.Model != "anthropic/claude-sonnet-4" {
		t.Errorf("resolved = %s/%s", resolved.ProviderName, resolved.Model)
	}
}

func TestResolve_CustomModelSplit(t *testing.T) {
	r := newTestResolver(t, &models.AgentConfig{
		ModelProvider: "custom",
		Model:         "https://llm.corp.example/v1::internal-70b",
	})

	resolved, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.ProviderName != "custom" {
		t.Errorf("ProviderName = %q", resolved.ProviderName)
	}
	if resolved.Model != "internal-70b" {
		t.Errorf("Model = %q, want internal-70b", resolved.Model)
	}
}

func TestResolve_MalformedCustomFallsBackToConfiguredFallback(t *testing.T) {
	r := newTestResolver(t, &models.AgentConfig{
		ModelProvider:    "custom",
		Model:            "missing-separator",
		FallbackProvider: "openai",
		FallbackModel:    "gpt-4o",
	})

	resolved, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !resolved.IsFallback {
		t.Error("IsFallback = false, want true")
	}
	if resolved.ProviderName != "openai" || resolved.Model != "gpt-4o" {
		t.Errorf("resolved = %s/%s, want openai/gpt-4o", resolved.ProviderName, resolved.Model)
	}
}

func TestResolve_MalformedCustomWithoutFallbackLandsOnDefault(t *testing.T) {
	r := newTestResolver(t, &models.AgentConfig{
		ModelProvider: "custom",
		Model:         "missing-separator",
	})

	resolved, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !resolved.IsFallback {
		t.Error("IsFallback = false, want true")
	}
	if resolved.ProviderName != "anthropic" || resolved.Model != providers.DefaultAnthropicModel {
		t.Errorf("resolved = %s/%s, want anthropic default", resolved.ProviderName, resolved.Model)
	}
}

func TestResolve_UnknownProviderNeverFails(t *testing.T) {
	r := newTestResolver(t, &models.AgentConfig{
		ModelProvider: "bogus-provider",
		Model:         "whatever",
	})

	resolved, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.ProviderName != "anthropic" {
		t.Errorf("ProviderName = %q, want anthropic degradation", resolved.ProviderName)
	}
}

// Registry satisfies the constructor contract the resolver depends on.
var _ agent.ProviderConstructor = (*providers.Registry)(nil)
