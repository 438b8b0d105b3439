package config

import (
	"context"
	"errors"

	"github.com/clawsync/clawsync/pkg/models"
)

// ErrNotFound is returned when a requested configuration row does not
// exist. Callers treat a missing AgentConfig as "use defaults", never as
// a failure.
var ErrNotFound = errors.New("config: not found")

// Store persists the singleton AgentConfig and the per-channel
// ChannelConfig rows. Exactly one AgentConfig governs all requests at a
// given instant; writes are last-write-wins.
type Store interface {
	// GetAgentConfig returns the current agent configuration, or
	// (nil, nil) when none has been saved yet.
	GetAgentConfig(ctx context.Context) (*models.AgentConfig, error)

	// PutAgentConfig replaces the agent configuration.
	PutAgentConfig(ctx context.Context, cfg *models.AgentConfig) error

	// GetChannelConfig returns the row for a channel type, or
	// ErrNotFound.
	GetChannelConfig(ctx context.Context, channel models.ChannelType) (*models.ChannelConfig, error)

	// PutChannelConfig upserts a channel row keyed by its channel type.
	PutChannelConfig(ctx context.Context, cfg *models.ChannelConfig) error

	// ListChannelConfigs returns all channel rows.
	ListChannelConfigs(ctx context.Context) ([]*models.ChannelConfig, error)
}
