package providers

import (
	"strings"
	"testing"
)

func testRegistry() *Registry {
	r := NewRegistry()
	r.LookupEnv = func(key string) (string, bool) {
		return "test-key-" + strings.ToLower(key), true
	}
	return r
}

func TestConstruct_KnownProviders(t *testing.T) {
	r := testRegistry()

	cases := []struct {
		provider string
		model    string
		wantName string
	}{
		{"anthropic", "claude-sonnet-4-20250514", "anthropic"},
		{"openai", "gpt-4o", "openai"},
		{"openrouter", "anthropic/claude-sonnet-4", "openrouter"},
		{"opencode-zen", "grok-code", "opencode-zen"},
		{"xai", "grok-3", "xai"},
	}
	for _, tc := range cases {
		handle, model, err := r.Construct(tc.provider, tc.model)
		if err != nil {
			t.Errorf("Construct(%s) error = %v", tc.provider, err)
			continue
		}
		if handle.Name() != tc.wantName {
			t.Errorf("Construct(%s).Name() = %q, want %q", tc.provider, handle.Name(), tc.wantName)
		}
		if model != tc.model {
			t.Errorf("Construct(%s) model = %q, want unchanged %q", tc.provider, model, tc.model)
		}
	}
}

func TestConstruct_UnknownProviderDegradesToAnthropic(t *testing.T) {
	r := testRegistry()

	handle, model, err := r.Construct("bogus-provider", "whatever-model")
	if err != nil {
		t.Fatalf("Construct() error = %v, want graceful degradation", err)
	}
	if handle.Name() != "anthropic" {
		t.Errorf("Name() = %q, want anthropic", handle.Name())
	}
	if model != DefaultAnthropicModel {
		t.Errorf("model = %q, want %q", model, DefaultAnthropicModel)
	}
}

func TestConstruct_UnknownProviderWorksWithoutKeys(t *testing.T) {
	r := NewRegistry()
	r.LookupEnv = func(string) (string, bool) { return "", false }

	handle, _, err := r.Construct("bogus-provider", "m")
	if err != nil {
		t.Fatalf("Construct() error = %v, want success with no keys set", err)
	}
	if handle == nil {
		t.Fatal("expected a usable handle")
	}
}

func TestConstruct_CustomProvider(t *testing.T) {
	r := testRegistry()

	handle, model, err := r.Construct("custom", "https://llm.internal.example/v1::my-model")
	if err != nil {
		t.Fatalf("Construct(custom) error = %v", err)
	}
	if handle.Name() != "custom" {
		t.Errorf("Name() = %q, want custom", handle.Name())
	}
	if model != "my-model" {
		t.Errorf("model = %q, want my-model", model)
	}
}

func TestConstruct_CustomProviderMalformed(t *testing.T) {
	r := testRegistry()

	for _, model := range []string{
		"no-separator-here",
		"::model-only",
		"https://base.only::",
		"",
	} {
		if _, _, err := r.Construct("custom", model); err == nil {
			t.Errorf("Construct(custom, %q) = nil error, want malformed identifier error", model)
		}
	}
}

func TestKnown(t *testing.T) {
	r := testRegistry()
	for _, name := range []string{"anthropic", "openai", "google", "openrouter", "opencode-zen", "xai", "custom"} {
		if !r.Known(name) {
			t.Errorf("Known(%q) = false", name)
		}
	}
	if r.Known("bogus") {
		t.Error("Known(bogus) = true")
	}
}
