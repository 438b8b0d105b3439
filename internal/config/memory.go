package config

import (
	"context"
	"sync"
	"time"

	"github.com/clawsync/clawsync/pkg/models"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	agent    *models.AgentConfig
	channels map[models.ChannelType]*models.ChannelConfig
}

// NewMemoryStore creates an empty in-memory config store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		channels: make(map[models.ChannelType]*models.ChannelConfig),
	}
}

func (m *MemoryStore) GetAgentConfig(ctx context.Context) (*models.AgentConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.agent == nil {
		return nil, nil
	}
	clone := *m.agent
	return &clone, nil
}

func (m *MemoryStore) PutAgentConfig(ctx context.Context, cfg *models.AgentConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *cfg
	clone.UpdatedAt = time.Now()
	m.agent = &clone
	return nil
}

func (m *MemoryStore) GetChannelConfig(ctx context.Context, channel models.ChannelType) (*models.ChannelConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.channels[channel]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *cfg
	return &clone, nil
}

func (m *MemoryStore) PutChannelConfig(ctx context.Context, cfg *models.ChannelConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *cfg
	clone.UpdatedAt = time.Now()
	m.channels[cfg.ChannelType] = &clone
	return nil
}

func (m *MemoryStore) ListChannelConfigs(ctx context.Context) ([]*models.ChannelConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*models.ChannelConfig, 0, len(m.channels))
	for _, cfg := range m.channels {
		clone := *cfg
		result = append(result, &clone)
	}
	return result, nil
}
