package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/clawsync/clawsync/pkg/models"
)

func TestMemoryStore_AgentConfig(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	cfg, err := store.GetAgentConfig(ctx)
	if err != nil {
		t.Fatalf("GetAgentConfig() error = %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config before first write, got %+v", cfg)
	}

	want := &models.AgentConfig{
		ModelProvider: "anthropic",
		Model:         "claude-sonnet-4-20250514",
		SoulDocument:  "You are Max.",
	}
	if err := store.PutAgentConfig(ctx, want); err != nil {
		t.Fatalf("PutAgentConfig() error = %v", err)
	}

	got, err := store.GetAgentConfig(ctx)
	if err != nil {
		t.Fatalf("GetAgentConfig() error = %v", err)
	}
	if got.ModelProvider != "anthropic" || got.SoulDocument != "You are Max." {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// Last write wins.
	want.Model = "claude-opus-4-20250514"
	if err := store.PutAgentConfig(ctx, want); err != nil {
		t.Fatalf("PutAgentConfig() error = %v", err)
	}
	got, _ = store.GetAgentConfig(ctx)
	if got.Model != "claude-opus-4-20250514" {
		t.Errorf("Model = %q, want overwrite to win", got.Model)
	}
}

func TestSQLiteStore_ChannelConfigs(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	if _, err := store.GetChannelConfig(ctx, models.ChannelTelegram); err != ErrNotFound {
		t.Errorf("GetChannelConfig() error = %v, want ErrNotFound", err)
	}

	row := &models.ChannelConfig{
		ChannelType:        models.ChannelTelegram,
		DisplayName:        "Telegram",
		Enabled:            true,
		RateLimitPerMinute: 20,
		Metadata:           map[string]any{"parse_mode": "Markdown"},
	}
	if err := store.PutChannelConfig(ctx, row); err != nil {
		t.Fatalf("PutChannelConfig() error = %v", err)
	}

	got, err := store.GetChannelConfig(ctx, models.ChannelTelegram)
	if err != nil {
		t.Fatalf("GetChannelConfig() error = %v", err)
	}
	if !got.Enabled || got.RateLimitPerMinute != 20 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Metadata["parse_mode"] != "Markdown" {
		t.Errorf("Metadata = %v, want parse_mode preserved", got.Metadata)
	}

	// Upsert by channel type.
	row.Enabled = false
	if err := store.PutChannelConfig(ctx, row); err != nil {
		t.Fatalf("PutChannelConfig() upsert error = %v", err)
	}
	list, err := store.ListChannelConfigs(ctx)
	if err != nil {
		t.Fatalf("ListChannelConfigs() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1 after upsert", len(list))
	}
	if list[0].Enabled {
		t.Error("Enabled = true, want upsert to disable")
	}
}

func TestSQLiteStore_AgentConfigSingleton(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	for _, model := range []string{"m1", "m2", "m3"} {
		err := store.PutAgentConfig(ctx, &models.AgentConfig{
			ModelProvider: "openai",
			Model:         model,
		})
		if err != nil {
			t.Fatalf("PutAgentConfig(%s) error = %v", model, err)
		}
	}

	got, err := store.GetAgentConfig(ctx)
	if err != nil {
		t.Fatalf("GetAgentConfig() error = %v", err)
	}
	if got.Model != "m3" {
		t.Errorf("Model = %q, want last write m3", got.Model)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want default :8080", cfg.Server.Addr)
	}
	if cfg.RateLimit.MaxMessageLength != 4000 {
		t.Errorf("MaxMessageLength = %d, want 4000", cfg.RateLimit.MaxMessageLength)
	}
}
