// Package channels hosts the messaging platform adapters and the
// shared inbound handler they all route through.
package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/clawsync/clawsync/internal/agent"
	"github.com/clawsync/clawsync/internal/config"
	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/internal/ratelimit"
	"github.com/clawsync/clawsync/pkg/models"
)

// ChatService is the slice of the orchestrator the adapters need.
// Channel-origin messages use the internal variant, which mints a new
// thread per message.
type ChatService interface {
	ChatSendInternal(ctx context.Context, req *agent.ChatRequest) (*agent.ChatResponse, error)
}

// Handler is the shared inbound path for all channel adapters: it
// checks the channel's configuration row, applies the channel's own
// per-conversation rate limit, and forwards to the orchestrator.
type Handler struct {
	chat    ChatService
	store   config.Store
	metrics *observability.Metrics
	logger  *observability.Logger

	mu      sync.Mutex
	buckets map[string]*ratelimit.Bucket
}

// NewHandler creates the shared inbound handler.
func NewHandler(chat ChatService, store config.Store, metrics *observability.Metrics, logger *observability.Logger) *Handler {
	return &Handler{
		chat:    chat,
		store:   store,
		metrics: metrics,
		logger:  logger,
		buckets: make(map[string]*ratelimit.Bucket),
	}
}

// SessionKey builds the stable session key for a conversation, e.g.
// "telegram_12345".
func SessionKey(channel models.ChannelType, conversationID string) string {
	return fmt.Sprintf("%s_%s", channel, conversationID)
}

// HandleInbound processes one inbound message and returns the reply
// text. The second return is false when the message was silently
// dropped (channel disabled or channel-level rate limit hit); admission
// rejections and generation failures return user-facing text.
func (h *Handler) HandleInbound(ctx context.Context, channel models.ChannelType, conversationID, text string) (string, bool) {
	cfg, err := h.store.GetChannelConfig(ctx, channel)
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		h.logger.Error(ctx, "channel config lookup failed", "channel", channel, "error", err)
		return "", false
	}
	// A channel with no config row is treated as enabled with no
	// channel-level limit; the agent's own admission still applies.
	if cfg != nil && !cfg.Enabled {
		h.logger.Debug(ctx, "dropping message for disabled channel", "channel", channel)
		return "", false
	}

	sessionKey := SessionKey(channel, conversationID)
	if cfg != nil && cfg.RateLimitPerMinute > 0 && !h.allow(sessionKey, cfg.RateLimitPerMinute) {
		h.logger.Debug(ctx, "channel rate limit hit", "channel", channel, "session", sessionKey)
		h.metrics.AdmissionRejections.WithLabelValues("channel_rate").Inc()
		return "", false
	}

	ctx = context.WithValue(ctx, observability.SessionIDKey, sessionKey)
	resp, err := h.chat.ChatSendInternal(ctx, &agent.ChatRequest{
		SessionKey: sessionKey,
		Channel:    channel,
		Message:    text,
	})
	if err != nil {
		var chatErr *agent.ChatError
		if errors.As(err, &chatErr) {
			return chatErr.Msg, true
		}
		h.logger.Error(ctx, "chat send failed", "channel", channel, "error", err)
		return agent.FallbackReply, true
	}
	return resp.Text, true
}

// RecordDeliveryFailure counts an outbound send error for a channel.
func (h *Handler) RecordDeliveryFailure(ctx context.Context, channel models.ChannelType, err error) {
	h.metrics.DeliveryFailures.WithLabelValues(string(channel)).Inc()
	h.logger.Warn(ctx, "delivery failed", "channel", channel, "error", err)
}

func (h *Handler) allow(key string, perMinute int) bool {
	h.mu.Lock()
	bucket, ok := h.buckets[key]
	if !ok {
		bucket = ratelimit.NewBucketPerMinute(perMinute)
		h.buckets[key] = bucket
	}
	h.mu.Unlock()
	return bucket.Allow()
}
