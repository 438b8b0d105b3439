// Package threads persists conversation threads and their messages. A
// thread is minted per conversation; callers continue one by carrying
// its identifier. A thread's history is an append-only, chronologically
// ordered message list.
package threads

import (
	"context"
	"errors"

	"github.com/clawsync/clawsync/pkg/models"
)

// ErrNotFound is returned when a thread does not exist.
var ErrNotFound = errors.New("threads: not found")

// Store manages conversation threads. Concurrent appends to the same
// thread are serialized by the store; interleaving between concurrent
// requests on one thread is the caller's concern.
type Store interface {
	// Create mints a new thread. The session key is recorded for
	// provenance only; many threads may share one session key.
	Create(ctx context.Context, sessionKey string, channel models.ChannelType) (*models.Thread, error)

	// Get returns a thread by ID, or ErrNotFound.
	Get(ctx context.Context, threadID string) (*models.Thread, error)

	// AppendMessage adds a message to a thread's history.
	AppendMessage(ctx context.Context, threadID string, msg *models.Message) error

	// History returns a thread's messages oldest first.
	History(ctx context.Context, threadID string) ([]*models.Message, error)
}
