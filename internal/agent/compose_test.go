package agent

import (
	"strings"
	"testing"

	"github.com/clawsync/clawsync/pkg/models"
)

func TestComposeInstructions_Order(t *testing.T) {
	cfg := &models.AgentConfig{
		SoulDocument: "You are Max, the support agent for Acme.",
		SystemPrompt: "Never discuss pricing.",
	}

	got := ComposeInstructions(cfg, models.ChannelTelegram, []string{"get_analytics"})

	soulIdx := strings.Index(got, "You are Max")
	promptIdx := strings.Index(got, "Never discuss pricing")
	channelIdx := strings.Index(got, "Telegram")
	toolIdx := strings.Index(got, "get_analytics")
	if soulIdx < 0 || promptIdx < 0 || channelIdx < 0 || toolIdx < 0 {
		t.Fatalf("missing sections in composed instructions:\n%s", got)
	}
	if !(soulIdx < promptIdx && promptIdx < channelIdx && channelIdx < toolIdx) {
		t.Errorf("sections out of order:\n%s", got)
	}
}

func TestComposeInstructions_NilConfigUsesDefaultSoul(t *testing.T) {
	got := ComposeInstructions(nil, models.ChannelWeb, nil)
	if !strings.Contains(got, "helpful assistant") {
		t.Errorf("expected default persona, got:\n%s", got)
	}
}

func TestComposeInstructions_EmptySectionsOmitted(t *testing.T) {
	cfg := &models.AgentConfig{SoulDocument: "Persona only."}
	got := ComposeInstructions(cfg, "", nil)
	if got != "Persona only." {
		t.Errorf("ComposeInstructions() = %q, want persona alone", got)
	}
}
