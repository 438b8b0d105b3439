// Package discord connects the agent to Discord over the gateway
// websocket.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/clawsync/clawsync/internal/channels"
	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/pkg/models"
)

// Discord rejects messages over 2000 characters.
const maxMessageLength = 2000

// Config configures the Discord adapter.
type Config struct {
	// Token is the bot token (without the "Bot " prefix).
	Token string
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("discord: token is required")
	}
	return nil
}

// Adapter receives Discord messages and replies through the shared
// inbound handler.
type Adapter struct {
	config  Config
	handler *channels.Handler
	logger  *observability.Logger
	session *discordgo.Session
}

// NewAdapter creates a Discord adapter.
func NewAdapter(config Config, handler *channels.Handler, logger *observability.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{config: config, handler: handler, logger: logger}, nil
}

// Start opens the gateway connection and blocks until ctx is
// cancelled.
func (a *Adapter) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + a.config.Token)
	if err != nil {
		return fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent
	session.AddHandler(a.handleMessage)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	a.session = session
	a.logger.Info(ctx, "discord adapter started")

	<-ctx.Done()
	return session.Close()
}

func (a *Adapter) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Never reply to ourselves or other bots.
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if m.Content == "" {
		return
	}

	ctx := context.Background()
	reply, ok := a.handler.HandleInbound(ctx, models.ChannelDiscord, m.ChannelID, m.Content)
	if !ok || reply == "" {
		return
	}
	if len(reply) > maxMessageLength {
		reply = reply[:maxMessageLength-3] + "..."
	}

	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		a.handler.RecordDeliveryFailure(ctx, models.ChannelDiscord, err)
	}
}
