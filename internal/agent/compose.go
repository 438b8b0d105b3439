package agent

import (
	"strings"

	"github.com/clawsync/clawsync/pkg/models"
)

// defaultSoul keeps the assistant usable before any configuration has
// been saved.
const defaultSoul = "You are a helpful assistant for this workspace. Be concise and direct."

// ComposeInstructions builds the system prompt for a generation from
// the stored agent configuration. Layers are joined in a fixed order
// so the persona document always leads and operator instructions
// follow; the channel note lets the model adapt formatting to where
// the reply will land.
func ComposeInstructions(cfg *models.AgentConfig, channel models.ChannelType, toolNames []string) string {
	var sections []string

	soul := ""
	systemPrompt := ""
	if cfg != nil {
		soul = strings.TrimSpace(cfg.SoulDocument)
		systemPrompt = strings.TrimSpace(cfg.SystemPrompt)
	}
	if soul == "" {
		soul = defaultSoul
	}
	sections = append(sections, soul)

	if systemPrompt != "" {
		sections = append(sections, systemPrompt)
	}

	if channel != "" {
		sections = append(sections, channelNote(channel))
	}

	if len(toolNames) > 0 {
		sections = append(sections,
			"Tools available to you: "+strings.Join(toolNames, ", ")+
				". Use a tool when the user's question needs data you do not have.")
	}

	return strings.Join(sections, "\n\n")
}

func channelNote(channel models.ChannelType) string {
	switch channel {
	case models.ChannelTelegram:
		return "You are replying in a Telegram chat. Keep responses short and avoid heavy markdown."
	case models.ChannelDiscord:
		return "You are replying in a Discord channel. Messages over 2000 characters will be truncated."
	case models.ChannelSlack:
		return "You are replying in a Slack workspace. Use Slack-style formatting (*bold*, _italic_)."
	case models.ChannelEmail:
		return "You are replying by email. Use complete sentences and a courteous tone."
	case models.ChannelWhatsApp:
		return "You are replying in a WhatsApp chat. Keep responses short and plain."
	default:
		return "You are replying through the " + string(channel) + " interface."
	}
}
