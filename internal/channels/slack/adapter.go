// Package slack connects the agent to Slack over Socket Mode, so no
// public ingress is needed.
package slack

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/clawsync/clawsync/internal/channels"
	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/pkg/models"
)

// Config configures the Slack adapter.
type Config struct {
	// BotToken is the xoxb- token used for the Web API.
	BotToken string

	// AppToken is the xapp- token used for the Socket Mode
	// connection.
	AppToken string
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("slack: bot_token is required")
	}
	if c.AppToken == "" {
		return errors.New("slack: app_token is required")
	}
	return nil
}

// Adapter receives Slack messages and replies through the shared
// inbound handler.
type Adapter struct {
	config  Config
	handler *channels.Handler
	logger  *observability.Logger

	api    *slack.Client
	socket *socketmode.Client
	botID  string
}

// NewAdapter creates a Slack adapter.
func NewAdapter(config Config, handler *channels.Handler, logger *observability.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{config: config, handler: handler, logger: logger}, nil
}

// Start opens the Socket Mode connection and blocks until ctx is
// cancelled.
func (a *Adapter) Start(ctx context.Context) error {
	a.api = slack.New(a.config.BotToken, slack.OptionAppLevelToken(a.config.AppToken))

	auth, err := a.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	a.botID = auth.UserID

	a.socket = socketmode.New(a.api)
	go a.consumeEvents(ctx)

	a.logger.Info(ctx, "slack adapter started", "bot_user", auth.User)
	return a.socket.RunContext(ctx)
}

func (a *Adapter) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.socket.Events:
			if !ok {
				return
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			a.socket.Ack(*evt.Request)
			a.handleEvent(ctx, apiEvent)
		}
	}
}

func (a *Adapter) handleEvent(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	msg, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Ignore our own messages, edits, and other subtypes.
	if msg.User == "" || msg.User == a.botID || msg.BotID != "" || msg.SubType != "" {
		return
	}
	if msg.Text == "" {
		return
	}

	reply, ok := a.handler.HandleInbound(ctx, models.ChannelSlack, msg.Channel, msg.Text)
	if !ok || reply == "" {
		return
	}

	_, _, err := a.api.PostMessageContext(ctx, msg.Channel,
		slack.MsgOptionText(reply, false))
	if err != nil {
		a.handler.RecordDeliveryFailure(ctx, models.ChannelSlack, err)
	}
}
