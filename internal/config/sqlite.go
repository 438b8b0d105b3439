package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clawsync/clawsync/pkg/models"
)

// OpenSQLite opens (or creates) the ClawSync SQLite database. The
// returned handle is shared by the config, thread, and activity stores.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; serialize access through a single
	// connection rather than surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	return db, nil
}

// SQLiteStore persists agent and channel configuration in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the config tables if needed and returns a
// store backed by db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	schema := `
CREATE TABLE IF NOT EXISTS agent_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	model_provider TEXT NOT NULL,
	model TEXT NOT NULL,
	fallback_provider TEXT NOT NULL DEFAULT '',
	fallback_model TEXT NOT NULL DEFAULT '',
	soul_document TEXT NOT NULL DEFAULT '',
	system_prompt TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS channel_configs (
	channel_type TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	enabled INTEGER NOT NULL DEFAULT 0,
	rate_limit_per_minute INTEGER NOT NULL DEFAULT 0,
	webhook_url TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create config tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetAgentConfig(ctx context.Context) (*models.AgentConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT model_provider, model, fallback_provider, fallback_model,
		       soul_document, system_prompt, updated_at
		FROM agent_config WHERE id = 1`)

	var cfg models.AgentConfig
	err := row.Scan(&cfg.ModelProvider, &cfg.Model, &cfg.FallbackProvider,
		&cfg.FallbackModel, &cfg.SoulDocument, &cfg.SystemPrompt, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent config: %w", err)
	}
	return &cfg, nil
}

func (s *SQLiteStore) PutAgentConfig(ctx context.Context, cfg *models.AgentConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_config
			(id, model_provider, model, fallback_provider, fallback_model,
			 soul_document, system_prompt, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			model_provider = excluded.model_provider,
			model = excluded.model,
			fallback_provider = excluded.fallback_provider,
			fallback_model = excluded.fallback_model,
			soul_document = excluded.soul_document,
			system_prompt = excluded.system_prompt,
			updated_at = excluded.updated_at`,
		cfg.ModelProvider, cfg.Model, cfg.FallbackProvider, cfg.FallbackModel,
		cfg.SoulDocument, cfg.SystemPrompt, time.Now())
	if err != nil {
		return fmt.Errorf("put agent config: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetChannelConfig(ctx context.Context, channel models.ChannelType) (*models.ChannelConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel_type, display_name, enabled, rate_limit_per_minute,
		       webhook_url, metadata, updated_at
		FROM channel_configs WHERE channel_type = ?`, string(channel))
	cfg, err := scanChannelConfig(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel config: %w", err)
	}
	return cfg, nil
}

func (s *SQLiteStore) PutChannelConfig(ctx context.Context, cfg *models.ChannelConfig) error {
	metadata := ""
	if len(cfg.Metadata) > 0 {
		data, err := json.Marshal(cfg.Metadata)
		if err != nil {
			return fmt.Errorf("marshal channel metadata: %w", err)
		}
		metadata = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channel_configs
			(channel_type, display_name, enabled, rate_limit_per_minute,
			 webhook_url, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_type) DO UPDATE SET
			display_name = excluded.display_name,
			enabled = excluded.enabled,
			rate_limit_per_minute = excluded.rate_limit_per_minute,
			webhook_url = excluded.webhook_url,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		string(cfg.ChannelType), cfg.DisplayName, boolToInt(cfg.Enabled),
		cfg.RateLimitPerMinute, cfg.WebhookURL, metadata, time.Now())
	if err != nil {
		return fmt.Errorf("put channel config: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListChannelConfigs(ctx context.Context) ([]*models.ChannelConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_type, display_name, enabled, rate_limit_per_minute,
		       webhook_url, metadata, updated_at
		FROM channel_configs ORDER BY channel_type`)
	if err != nil {
		return nil, fmt.Errorf("list channel configs: %w", err)
	}
	defer rows.Close()

	var result []*models.ChannelConfig
	for rows.Next() {
		cfg, err := scanChannelConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel config: %w", err)
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannelConfig(row rowScanner) (*models.ChannelConfig, error) {
	var cfg models.ChannelConfig
	var channelType, metadata string
	var enabled int
	if err := row.Scan(&channelType, &cfg.DisplayName, &enabled,
		&cfg.RateLimitPerMinute, &cfg.WebhookURL, &metadata, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	cfg.ChannelType = models.ChannelType(channelType)
	cfg.Enabled = enabled != 0
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &cfg.Metadata); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
