// Package agent contains the generation pipeline: model resolution,
// instruction composition, tool dispatch, admission control, and the
// orchestrator that drives a single chat turn end to end.
package agent

import (
	"context"
	"encoding/json"

	"github.com/clawsync/clawsync/pkg/models"
)

// LLMProvider is a handle to a concrete model backend. Implementations
// must be safe for concurrent use; multiple goroutines may call
// Complete simultaneously for different requests.
type LLMProvider interface {
	// Complete sends a prompt and returns a streaming response. The
	// channel is closed after the final chunk.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name (e.g. "anthropic", "openrouter").
	Name() string
}

// CompletionRequest contains all parameters for a completion call.
type CompletionRequest struct {
	// Model names the model to run. Providers do not validate it; an
	// unknown model surfaces as an API error at call time.
	Model string `json:"model"`

	// System is the composed instruction block, sent through the
	// provider's system channel rather than as a message.
	System string `json:"system,omitempty"`

	// Messages is the conversation history in chronological order.
	Messages []CompletionMessage `json:"messages"`

	// Tools lists tool definitions the model may invoke.
	Tools []Tool `json:"tools,omitempty"`

	// MaxTokens bounds the response length. Zero means the provider
	// default (4096).
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionMessage is a single turn in the conversation. Role is
// "user" or "assistant".
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

// CompletionChunk is one element of a streaming response. Exactly one
// of Text, ToolCall, Done, or Error is meaningful per chunk; token
// counts ride on the final Done chunk.
type CompletionChunk struct {
	Text     string           `json:"text,omitempty"`
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`
	Done     bool             `json:"done,omitempty"`
	Error    error            `json:"-"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Tool is an executable capability exposed to the model.
type Tool interface {
	// Name returns the tool's wire name.
	Name() string

	// Description tells the model what the tool does.
	Description() string

	// Schema returns the JSON Schema for the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool. Failures are reported in the result with
	// IsError set; the error return is reserved for context
	// cancellation.
	Execute(ctx context.Context, params json.RawMessage) (*models.ToolResult, error)
}
