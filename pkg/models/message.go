// Package models defines the shared data types used across ClawSync:
// thread messages, tool calls, agent configuration, and channel
// configuration rows.
package models

import (
	"encoding/json"
	"time"
)

// ChannelType identifies a messaging channel integration.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelWhatsApp ChannelType = "whatsapp"
	ChannelSlack    ChannelType = "slack"
	ChannelDiscord  ChannelType = "discord"
	ChannelEmail    ChannelType = "email"
	ChannelWeb      ChannelType = "web"
	ChannelAPI      ChannelType = "api"
)

// Thread is a persistent conversation scope. A session key maps to
// exactly one thread for the lifetime of the conversation.
type Thread struct {
	ID         string      `json:"id"`
	SessionKey string      `json:"session_key"`
	Channel    ChannelType `json:"channel"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Message is a single entry in a thread's append-only log.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ToolCall is a tool invocation requested by the model mid-generation.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult is the outcome of executing a tool call. Errors are data:
// they are reported back to the model as content with IsError set, never
// as a crash.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}
