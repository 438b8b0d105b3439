package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/clawsync/clawsync/internal/agent"
	"github.com/clawsync/clawsync/pkg/models"
)

// GoogleProvider implements agent.LLMProvider for the Gemini API.
type GoogleProvider struct {
	client       *genai.Client
	base         BaseProvider
	defaultModel string
}

// GoogleConfig configures a GoogleProvider.
type GoogleConfig struct {
	APIKey       string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewGoogleProvider creates a Gemini provider. Unlike the other
// backends the genai client performs setup work at construction, so
// this constructor can fail.
func NewGoogleProvider(config GoogleConfig) (*GoogleProvider, error) {
	if config.DefaultModel == "" {
		config.DefaultModel = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}

	return &GoogleProvider{
		client:       client,
		base:         NewBaseProvider("google", config.MaxRetries, config.RetryDelay),
		defaultModel: config.DefaultModel,
	}, nil
}

func (p *GoogleProvider) Name() string {
	return "google"
}

// Complete sends a completion request and returns a streaming channel.
func (p *GoogleProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	contents := p.convertMessages(req.Messages)
	config := p.buildConfig(req)

	chunks := make(chan *agent.CompletionChunk)
	go func() {
		defer close(chunks)

		var usage *genai.GenerateContentResponseUsageMetadata
		err := p.base.Retry(ctx, func() error {
			for resp, err := range p.client.Models.GenerateContentStream(ctx, model, contents, config) {
				if err != nil {
					return p.wrapError(err, model)
				}
				if resp == nil {
					continue
				}
				if resp.UsageMetadata != nil {
					usage = resp.UsageMetadata
				}
				for _, candidate := range resp.Candidates {
					if candidate == nil || candidate.Content == nil {
						continue
					}
					for _, part := range candidate.Content.Parts {
						p.emitPart(part, chunks)
					}
				}
			}
			return nil
		})
		if err != nil {
			chunks <- &agent.CompletionChunk{Error: err}
			return
		}

		final := &agent.CompletionChunk{Done: true}
		if usage != nil {
			final.InputTokens = int(usage.PromptTokenCount)
			final.OutputTokens = int(usage.CandidatesTokenCount)
		}
		chunks <- final
	}()
	return chunks, nil
}

func (p *GoogleProvider) emitPart(part *genai.Part, chunks chan<- *agent.CompletionChunk) {
	if part == nil {
		return
	}
	if part.Text != "" {
		chunks <- &agent.CompletionChunk{Text: part.Text}
	}
	if part.FunctionCall != nil {
		args, err := json.Marshal(part.FunctionCall.Args)
		if err != nil {
			args = []byte("{}")
		}
		chunks <- &agent.CompletionChunk{
			ToolCall: &models.ToolCall{
				ID:    part.FunctionCall.Name + "_" + uuid.NewString()[:8],
				Name:  part.FunctionCall.Name,
				Input: args,
			},
		}
	}
}

func (p *GoogleProvider) convertMessages(messages []agent.CompletionMessage) []*genai.Content {
	var result []*genai.Content
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return result
}

func (p *GoogleProvider) buildConfig(req *agent.CompletionRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.MaxTokens > 0 {
		maxTokens := min(req.MaxTokens, math.MaxInt32)
		config.MaxOutputTokens = int32(maxTokens)
	}
	if len(req.Tools) > 0 {
		config.Tools = convertGeminiTools(req.Tools)
	}
	return config
}

func convertGeminiTools(tools []agent.Tool) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		var schemaMap map[string]any
		if err := json.Unmarshal(tool.Schema(), &schemaMap); err != nil {
			continue
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  toGeminiSchema(schemaMap),
		})
	}
	if len(declarations) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// toGeminiSchema converts a JSON Schema map into Gemini's Schema type.
// Only the fields the analytics tool uses are mapped.
func toGeminiSchema(schemaMap map[string]any) *genai.Schema {
	if schemaMap == nil {
		return nil
	}
	schema := &genai.Schema{}

	if t, ok := schemaMap["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}
	if enum, ok := schemaMap["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	if props, ok := schemaMap["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				schema.Properties[name] = toGeminiSchema(propMap)
			}
		}
	}
	if required, ok := schemaMap["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := schemaMap["items"].(map[string]any); ok {
		schema.Items = toGeminiSchema(items)
	}
	return schema
}

func (p *GoogleProvider) wrapError(err error, model string) error {
	if err == nil || IsProviderError(err) {
		return err
	}
	return NewProviderError("google", model, err)
}
