package channels

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clawsync/clawsync/internal/agent"
	"github.com/clawsync/clawsync/internal/config"
	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/pkg/models"
)

type fakeChat struct {
	lastReq *agent.ChatRequest
	resp    *agent.ChatResponse
	err     error
	calls   int
}

func (f *fakeChat) ChatSendInternal(ctx context.Context, req *agent.ChatRequest) (*agent.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	return f.resp, f.err
}

func newTestHandler(t *testing.T, chat *fakeChat) (*Handler, config.Store) {
	t.Helper()
	store := config.NewMemoryStore()
	logger := observability.NewLogger(observability.LogConfig{Level: "error", Format: "text"})
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewHandler(chat, store, metrics, logger), store
}

func TestHandleInbound_ForwardsToChat(t *testing.T) {
	chat := &fakeChat{resp: &agent.ChatResponse{Text: "hello back"}}
	h, store := newTestHandler(t, chat)
	store.PutChannelConfig(context.Background(), &models.ChannelConfig{
		ChannelType: models.ChannelTelegram,
		Enabled:     true,
	})

	reply, ok := h.HandleInbound(context.Background(), models.ChannelTelegram, "12345", "hi")
	if !ok {
		t.Fatal("HandleInbound() ok = false")
	}
	if reply != "hello back" {
		t.Errorf("reply = %q", reply)
	}
	if chat.lastReq.SessionKey != "telegram_12345" {
		t.Errorf("SessionKey = %q, want telegram_12345", chat.lastReq.SessionKey)
	}
	if chat.lastReq.Channel != models.ChannelTelegram {
		t.Errorf("Channel = %q", chat.lastReq.Channel)
	}
}

func TestHandleInbound_DisabledChannelDrops(t *testing.T) {
	chat := &fakeChat{resp: &agent.ChatResponse{Text: "x"}}
	h, store := newTestHandler(t, chat)
	store.PutChannelConfig(context.Background(), &models.ChannelConfig{
		ChannelType: models.ChannelDiscord,
		Enabled:     false,
	})

	if _, ok := h.HandleInbound(context.Background(), models.ChannelDiscord, "c1", "hi"); ok {
		t.Error("ok = true for disabled channel")
	}
	if chat.calls != 0 {
		t.Error("chat called for disabled channel")
	}
}

func TestHandleInbound_NoConfigRowStillWorks(t *testing.T) {
	chat := &fakeChat{resp: &agent.ChatResponse{Text: "ok"}}
	h, _ := newTestHandler(t, chat)

	reply, ok := h.HandleInbound(context.Background(), models.ChannelSlack, "C042", "hi")
	if !ok || reply != "ok" {
		t.Errorf("HandleInbound() = %q, %v", reply, ok)
	}
}

func TestHandleInbound_ChannelRateLimit(t *testing.T) {
	chat := &fakeChat{resp: &agent.ChatResponse{Text: "ok"}}
	h, store := newTestHandler(t, chat)
	store.PutChannelConfig(context.Background(), &models.ChannelConfig{
		ChannelType:        models.ChannelTelegram,
		Enabled:            true,
		RateLimitPerMinute: 1,
	})

	if _, ok := h.HandleInbound(context.Background(), models.ChannelTelegram, "1", "first"); !ok {
		t.Fatal("first message dropped")
	}
	if _, ok := h.HandleInbound(context.Background(), models.ChannelTelegram, "1", "second"); ok {
		t.Error("second message admitted past channel limit")
	}
	// Different conversation has its own bucket.
	if _, ok := h.HandleInbound(context.Background(), models.ChannelTelegram, "2", "hi"); !ok {
		t.Error("other conversation dropped")
	}
}

func TestHandleInbound_ChatErrorBecomesReply(t *testing.T) {
	chat := &fakeChat{err: &agent.ChatError{Msg: "You're sending messages too quickly."}}
	h, _ := newTestHandler(t, chat)

	reply, ok := h.HandleInbound(context.Background(), models.ChannelTelegram, "1", "hi")
	if !ok {
		t.Fatal("ok = false, want user-facing reply")
	}
	if reply != "You're sending messages too quickly." {
		t.Errorf("reply = %q", reply)
	}
}

func TestSessionKey(t *testing.T) {
	if got := SessionKey(models.ChannelDiscord, "8675309"); got != "discord_8675309" {
		t.Errorf("SessionKey() = %q", got)
	}
}
