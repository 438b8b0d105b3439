// Package telegram connects the agent to Telegram via the Bot API,
// using long polling by default and a webhook when configured.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/clawsync/clawsync/internal/channels"
	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/pkg/models"
)

// Config configures the Telegram adapter.
type Config struct {
	// Token is the BotFather token.
	Token string

	// WebhookURL switches the adapter from long polling to webhook
	// delivery when set. ListenAddr is where the webhook server binds.
	WebhookURL string
	ListenAddr string
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("telegram: token is required")
	}
	if c.WebhookURL != "" && c.ListenAddr == "" {
		return errors.New("telegram: listen_addr is required with webhook_url")
	}
	return nil
}

// Adapter receives Telegram messages and replies through the shared
// inbound handler.
type Adapter struct {
	config  Config
	handler *channels.Handler
	logger  *observability.Logger
	bot     *bot.Bot
}

// NewAdapter creates a Telegram adapter.
func NewAdapter(config Config, handler *channels.Handler, logger *observability.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{config: config, handler: handler, logger: logger}, nil
}

// Start connects to Telegram and blocks until ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) error {
	b, err := bot.New(a.config.Token)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	a.bot = b
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, a.handleMessage)

	if a.config.WebhookURL != "" {
		return a.runWebhook(ctx)
	}
	a.logger.Info(ctx, "telegram adapter starting", "mode", "long_polling")
	b.Start(ctx)
	return nil
}

func (a *Adapter) runWebhook(ctx context.Context) error {
	if _, err := a.bot.SetWebhook(ctx, &bot.SetWebhookParams{
		URL: a.config.WebhookURL,
	}); err != nil {
		return fmt.Errorf("telegram: set webhook: %w", err)
	}
	a.logger.Info(ctx, "telegram adapter starting",
		"mode", "webhook", "listen_addr", a.config.ListenAddr)

	srv := &http.Server{
		Addr:    a.config.ListenAddr,
		Handler: a.bot.WebhookHandler(),
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go a.bot.StartWebhook(ctx)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("telegram: webhook server: %w", err)
	}
	return nil
}

func (a *Adapter) handleMessage(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := update.Message.Chat.ID

	reply, ok := a.handler.HandleInbound(ctx, models.ChannelTelegram,
		strconv.FormatInt(chatID, 10), update.Message.Text)
	if !ok || reply == "" {
		return
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reply,
		ReplyParameters: &tgmodels.ReplyParameters{
			MessageID: update.Message.ID,
		},
	})
	if err != nil {
		a.handler.RecordDeliveryFailure(ctx, models.ChannelTelegram, err)
	}
}
