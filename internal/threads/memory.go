package threads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clawsync/clawsync/pkg/models"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*models.Thread
	messages map[string][]*models.Message
}

// NewMemoryStore creates an empty in-memory thread store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]*models.Thread),
		messages: make(map[string][]*models.Message),
	}
}

func (m *MemoryStore) Create(ctx context.Context, sessionKey string, channel models.ChannelType) (*models.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &models.Thread{
		ID:         uuid.NewString(),
		SessionKey: sessionKey,
		Channel:    channel,
		CreatedAt:  time.Now(),
	}
	m.byID[t.ID] = t
	clone := *t
	return &clone, nil
}

func (m *MemoryStore) Get(ctx context.Context, threadID string) (*models.Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.byID[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, threadID string, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[threadID]; !ok {
		return ErrNotFound
	}
	clone := *msg
	clone.ThreadID = threadID
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	m.messages[threadID] = append(m.messages[threadID], &clone)
	return nil
}

func (m *MemoryStore) History(ctx context.Context, threadID string) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.byID[threadID]; !ok {
		return nil, ErrNotFound
	}
	msgs := m.messages[threadID]
	result := make([]*models.Message, len(msgs))
	for i, msg := range msgs {
		clone := *msg
		result[i] = &clone
	}
	return result, nil
}
