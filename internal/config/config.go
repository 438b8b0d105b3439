// Package config holds the ClawSync application configuration and the
// persistent store for agent and channel configuration rows.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clawsync/clawsync/internal/ratelimit"
)

// Config is the application configuration loaded from clawsync.yaml.
// Secrets are referenced through environment variables expanded at load
// time, never stored in the file directly.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Channels  ChannelsConfig  `yaml:"channels"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RateLimitConfig configures admission control.
type RateLimitConfig struct {
	Session ratelimit.Config `yaml:"session"`
	Global  ratelimit.Config `yaml:"global"`

	// MaxMessageLength bounds inbound message size in characters.
	MaxMessageLength int `yaml:"max_message_length"`
}

// ChannelsConfig holds per-channel connection settings. Enablement and
// per-minute rate limits live in the ChannelConfig rows, not here.
type ChannelsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
	Slack    SlackConfig    `yaml:"slack"`
}

// TelegramConfig configures the Telegram adapter.
type TelegramConfig struct {
	Token      string `yaml:"token"`
	WebhookURL string `yaml:"webhook_url"`
	ListenAddr string `yaml:"listen_addr"`
}

// DiscordConfig configures the Discord adapter.
type DiscordConfig struct {
	Token string `yaml:"token"`
}

// SlackConfig configures the Slack Socket Mode adapter.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Path: "clawsync.db",
		},
		RateLimit: RateLimitConfig{
			Session:          ratelimit.DefaultSessionConfig(),
			Global:           ratelimit.DefaultGlobalConfig(),
			MaxMessageLength: 4000,
		},
	}
}

// Load reads a yaml config file, expanding ${VAR} references from the
// environment. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "clawsync.db"
	}
	if c.RateLimit.MaxMessageLength <= 0 {
		c.RateLimit.MaxMessageLength = 4000
	}
	if c.RateLimit.Session.RequestsPerMinute <= 0 {
		c.RateLimit.Session = ratelimit.DefaultSessionConfig()
	}
	if c.RateLimit.Global.RequestsPerMinute <= 0 {
		c.RateLimit.Global = ratelimit.DefaultGlobalConfig()
	}
}
