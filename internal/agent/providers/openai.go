package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clawsync/clawsync/internal/agent"
	"github.com/clawsync/clawsync/pkg/models"
)

// Base URLs for the OpenAI-compatible gateways.
const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenCodeBaseURL   = "https://opencode.ai/zen/v1"
	XAIBaseURL        = "https://api.x.ai/v1"
)

// OpenAIProvider implements agent.LLMProvider against any endpoint that
// speaks the OpenAI chat completions protocol. The provider name and
// base URL distinguish the direct OpenAI API from gateways like
// OpenRouter, OpenCode Zen, xAI, and user-supplied custom endpoints.
type OpenAIProvider struct {
	client       *openai.Client
	name         string
	base         BaseProvider
	defaultModel string
}

// OpenAIConfig configures an OpenAIProvider. An empty APIKey is
// accepted; authentication failures then surface at call time.
type OpenAIConfig struct {
	Name         string
	APIKey       string
	BaseURL      string
	ExtraHeaders map[string]string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible API.
func NewOpenAIProvider(config OpenAIConfig) *OpenAIProvider {
	if config.Name == "" {
		config.Name = "openai"
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "gpt-4o"
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if len(config.ExtraHeaders) > 0 {
		clientConfig.HTTPClient = &http.Client{
			Transport: &headerTransport{headers: config.ExtraHeaders},
		}
	}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		name:         config.Name,
		base:         NewBaseProvider(config.Name, config.MaxRetries, config.RetryDelay),
		defaultModel: config.DefaultModel,
	}
}

// NewOpenRouterProvider creates a provider routed through OpenRouter.
// The attribution headers identify the app in OpenRouter's dashboard.
func NewOpenRouterProvider(apiKey, appName, siteURL string) *OpenAIProvider {
	headers := map[string]string{}
	if appName != "" {
		headers["X-Title"] = appName
	}
	if siteURL != "" {
		headers["HTTP-Referer"] = siteURL
	}
	return NewOpenAIProvider(OpenAIConfig{
		Name:         "openrouter",
		APIKey:       apiKey,
		BaseURL:      OpenRouterBaseURL,
		ExtraHeaders: headers,
		DefaultModel: "openai/gpt-4o",
	})
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

// Complete sends a completion request and returns a streaming channel.
func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  p.convertMessages(req.Messages, req.System),
		MaxTokens: maxTokens,
		Stream:    true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = p.convertTools(req.Tools)
	}

	chunks := make(chan *agent.CompletionChunk)
	go func() {
		var stream *openai.ChatCompletionStream
		err := p.base.Retry(ctx, func() error {
			var streamErr error
			stream, streamErr = p.client.CreateChatCompletionStream(ctx, chatReq)
			if streamErr != nil {
				return p.wrapError(streamErr, model)
			}
			return nil
		})
		if err != nil {
			chunks <- &agent.CompletionChunk{Error: err}
			close(chunks)
			return
		}
		p.processStream(ctx, stream, chunks, model)
	}()
	return chunks, nil
}

func (p *OpenAIProvider) convertMessages(messages []agent.CompletionMessage, system string) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return result
}

func (p *OpenAIProvider) convertTools(tools []agent.Tool) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Schema(),
			},
		}
	}
	return result
}

// processStream converts OpenAI stream responses into completion
// chunks. Tool call arguments arrive as JSON fragments keyed by index
// and are assembled until the finish reason reports completion.
func (p *OpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *agent.CompletionChunk, model string) {
	defer close(chunks)
	defer stream.Close()

	toolCalls := make(map[int]*models.ToolCall)
	var inputTokens, outputTokens int

	emitToolCalls := func() {
		for _, tc := range toolCalls {
			if tc.ID != "" && tc.Name != "" {
				if len(tc.Input) == 0 {
					tc.Input = json.RawMessage("{}")
				}
				chunks <- &agent.CompletionChunk{ToolCall: tc}
			}
		}
		toolCalls = make(map[int]*models.ToolCall)
	}

	for {
		select {
		case <-ctx.Done():
			chunks <- &agent.CompletionChunk{Error: ctx.Err()}
			return
		default:
		}

		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				emitToolCalls()
				chunks <- &agent.CompletionChunk{
					Done:         true,
					InputTokens:  inputTokens,
					OutputTokens: outputTokens,
				}
				return
			}
			chunks <- &agent.CompletionChunk{Error: p.wrapError(err, model)}
			return
		}

		if response.Usage != nil {
			inputTokens = response.Usage.PromptTokens
			outputTokens = response.Usage.CompletionTokens
		}
		if len(response.Choices) == 0 {
			continue
		}

		choice := response.Choices[0]
		if choice.Delta.Content != "" {
			chunks <- &agent.CompletionChunk{Text: choice.Delta.Content}
		}

		for _, tc := range choice.Delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			if toolCalls[index] == nil {
				toolCalls[index] = &models.ToolCall{}
			}
			if tc.ID != "" {
				toolCalls[index].ID = tc.ID
			}
			if tc.Function.Name != "" {
				toolCalls[index].Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				toolCalls[index].Input = append(toolCalls[index].Input, tc.Function.Arguments...)
			}
		}

		if choice.FinishReason == openai.FinishReasonToolCalls {
			emitToolCalls()
		}
	}
}

func (p *OpenAIProvider) wrapError(err error, model string) error {
	if err == nil || IsProviderError(err) {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(p.name, model, err).WithStatus(apiErr.HTTPStatusCode)
	}
	return NewProviderError(p.name, model, err)
}

// headerTransport injects static headers into every request.
type headerTransport struct {
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return http.DefaultTransport.RoundTrip(clone)
}
