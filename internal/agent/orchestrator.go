package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clawsync/clawsync/internal/activity"
	"github.com/clawsync/clawsync/internal/config"
	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/internal/threads"
	"github.com/clawsync/clawsync/pkg/models"
)

// FallbackReply is returned when the model finishes a turn with no
// text and no tool produced output either.
const FallbackReply = "I could not generate a response. Please try again."

// ChatRequest is one inbound user message.
type ChatRequest struct {
	// SessionKey partitions rate limiting, e.g. "telegram_12345".
	SessionKey string

	// ThreadID, when set, continues an existing thread. When empty a
	// new thread is minted for this message.
	ThreadID string

	// Channel is where the message came from.
	Channel models.ChannelType

	// Message is the user's text.
	Message string
}

// ChatResponse is the reply produced for a chat request.
type ChatResponse struct {
	Text     string
	ThreadID string

	Provider   string
	Model      string
	IsFallback bool

	InputTokens  int
	OutputTokens int
}

// ChatError is a user-presentable chat failure. Msg is safe to send to
// the end user verbatim; ThreadID is set when the conversation was
// already resolved.
type ChatError struct {
	Msg      string
	ThreadID string
	Cause    error
}

func (e *ChatError) Error() string {
	return e.Msg
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

// ModelResolver yields the provider handle for a request. Implemented
// by *Resolver; an interface so tests can substitute a fake backend.
type ModelResolver interface {
	Resolve(ctx context.Context) (*ResolvedModel, error)
}

// Service orchestrates a chat turn: admission, thread persistence,
// model resolution, instruction composition, generation with inline
// tool execution, and the activity trail.
type Service struct {
	resolver    ModelResolver
	tools       *ToolRegistry
	guard       *Guard
	configStore config.Store
	threadStore threads.Store
	recorder    *activity.Recorder
	metrics     *observability.Metrics
	logger      *observability.Logger

	// generationTimeout bounds a single model call.
	generationTimeout time.Duration
}

// NewService wires the orchestrator.
func NewService(
	resolver ModelResolver,
	tools *ToolRegistry,
	guard *Guard,
	configStore config.Store,
	threadStore threads.Store,
	recorder *activity.Recorder,
	metrics *observability.Metrics,
	logger *observability.Logger,
) *Service {
	return &Service{
		resolver:          resolver,
		tools:             tools,
		guard:             guard,
		configStore:       configStore,
		threadStore:       threadStore,
		recorder:          recorder,
		metrics:           metrics,
		logger:            logger,
		generationTimeout: 2 * time.Minute,
	}
}

// ChatSend handles a user-originated message: full admission checks,
// then generation. A caller-supplied ThreadID continues that thread;
// otherwise a fresh one is minted and returned on the response.
func (s *Service) ChatSend(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return s.send(ctx, req, req.ThreadID)
}

// ChatSendInternal handles a channel-origin message. It runs the same
// admission as ChatSend but always mints a new thread, ignoring any
// ThreadID on the request.
func (s *Service) ChatSendInternal(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return s.send(ctx, req, "")
}

// ChatAPISend handles a programmatic API message. It runs the same
// pipeline as ChatSend; callers get token usage on the response for
// metering.
func (s *Service) ChatAPISend(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return s.send(ctx, req, req.ThreadID)
}

func (s *Service) send(ctx context.Context, req *ChatRequest, threadID string) (*ChatResponse, error) {
	started := time.Now()
	defer func() {
		s.metrics.ChatDuration.Observe(time.Since(started).Seconds())
	}()

	// Admission runs before any thread work: a rejected message must
	// not mint or touch conversational state.
	if err := s.guard.Admit(req.SessionKey, req.Message); err != nil {
		var rej *RejectionError
		if errors.As(err, &rej) {
			s.metrics.AdmissionRejections.WithLabelValues(string(rej.Reason)).Inc()
			s.metrics.ChatRequests.WithLabelValues("rejected").Inc()
			return nil, &ChatError{Msg: rej.Message, Cause: err}
		}
		return nil, err
	}

	thread, err := s.resolveThread(ctx, req, threadID)
	if err != nil {
		s.metrics.ChatRequests.WithLabelValues("error").Inc()
		if errors.Is(err, threads.ErrNotFound) {
			return nil, &ChatError{Msg: "That conversation no longer exists.", Cause: err}
		}
		return nil, &ChatError{Msg: FallbackReply, Cause: err}
	}
	ctx = context.WithValue(ctx, observability.ThreadIDKey, thread.ID)

	if err := s.threadStore.AppendMessage(ctx, thread.ID, &models.Message{
		Role:    "user",
		Content: req.Message,
	}); err != nil {
		s.metrics.ChatRequests.WithLabelValues("error").Inc()
		return nil, &ChatError{Msg: FallbackReply, ThreadID: thread.ID, Cause: err}
	}

	history, err := s.threadStore.History(ctx, thread.ID)
	if err != nil {
		s.metrics.ChatRequests.WithLabelValues("error").Inc()
		return nil, &ChatError{Msg: FallbackReply, ThreadID: thread.ID, Cause: err}
	}

	resolved, err := s.resolver.Resolve(ctx)
	if err != nil {
		s.metrics.ChatRequests.WithLabelValues("error").Inc()
		return nil, &ChatError{Msg: FallbackReply, ThreadID: thread.ID, Cause: err}
	}
	if resolved.IsFallback {
		s.metrics.ModelFallbacks.Inc()
	}

	agentCfg, err := s.configStore.GetAgentConfig(ctx)
	if err != nil {
		s.metrics.ChatRequests.WithLabelValues("error").Inc()
		return nil, &ChatError{Msg: FallbackReply, ThreadID: thread.ID, Cause: err}
	}

	var capture ToolCapture
	completion := &CompletionRequest{
		Model:    resolved.Model,
		System:   ComposeInstructions(agentCfg, req.Channel, s.tools.Names()),
		Messages: historyToMessages(history),
		Tools:    s.tools.ForRequest(&capture),
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	text, inputTokens, outputTokens, err := s.generate(genCtx, resolved, completion)
	if err != nil {
		s.logger.Error(ctx, "generation failed",
			"provider", resolved.ProviderName, "model", resolved.Model, "error", err)
		s.metrics.ChatRequests.WithLabelValues("error").Inc()
		return nil, &ChatError{Msg: FallbackReply, ThreadID: thread.ID, Cause: err}
	}

	// Reply precedence: model text wins, then captured tool output,
	// then the fixed fallback line.
	reply := strings.TrimSpace(text)
	if reply == "" {
		if captured, ok := capture.Get(); ok && strings.TrimSpace(captured) != "" {
			reply = strings.TrimSpace(captured)
		} else {
			reply = FallbackReply
		}
	}

	if err := s.threadStore.AppendMessage(ctx, thread.ID, &models.Message{
		Role:    "assistant",
		Content: reply,
	}); err != nil {
		s.logger.Warn(ctx, "failed to persist assistant reply", "error", err)
	}

	s.metrics.ChatRequests.WithLabelValues("ok").Inc()
	s.recorder.Record("message_processed",
		"replied to a message on "+string(req.Channel),
		models.ActivityInternal, req.Channel)

	return &ChatResponse{
		Text:         reply,
		ThreadID:     thread.ID,
		Provider:     resolved.ProviderName,
		Model:        resolved.Model,
		IsFallback:   resolved.IsFallback,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

// resolveThread continues the caller's thread when an ID was supplied,
// and mints a new one otherwise.
func (s *Service) resolveThread(ctx context.Context, req *ChatRequest, threadID string) (*models.Thread, error) {
	if threadID != "" {
		return s.threadStore.Get(ctx, threadID)
	}
	return s.threadStore.Create(ctx, req.SessionKey, req.Channel)
}

// generate makes one streaming model call, executing tool calls inline
// as they arrive, and returns the accumulated text and token counts.
func (s *Service) generate(ctx context.Context, resolved *ResolvedModel, req *CompletionRequest) (string, int, int, error) {
	chunks, err := resolved.Provider.Complete(ctx, req)
	if err != nil {
		return "", 0, 0, err
	}

	toolsByName := make(map[string]Tool, len(req.Tools))
	for _, tool := range req.Tools {
		toolsByName[tool.Name()] = tool
	}

	var text strings.Builder
	var inputTokens, outputTokens int

	for chunk := range chunks {
		switch {
		case chunk.Error != nil:
			return "", 0, 0, chunk.Error

		case chunk.ToolCall != nil:
			s.runTool(ctx, toolsByName, chunk.ToolCall)

		case chunk.Text != "":
			text.WriteString(chunk.Text)

		case chunk.Done:
			inputTokens = chunk.InputTokens
			outputTokens = chunk.OutputTokens
		}
	}

	return text.String(), inputTokens, outputTokens, nil
}

func (s *Service) runTool(ctx context.Context, toolsByName map[string]Tool, call *models.ToolCall) {
	tool, ok := toolsByName[call.Name]
	if !ok {
		s.logger.Warn(ctx, "model requested unknown tool", "tool", call.Name)
		s.metrics.ToolExecutions.WithLabelValues(call.Name, "unknown").Inc()
		return
	}

	result, err := tool.Execute(ctx, call.Input)
	switch {
	case err != nil:
		s.logger.Warn(ctx, "tool execution aborted", "tool", call.Name, "error", err)
		s.metrics.ToolExecutions.WithLabelValues(call.Name, "error").Inc()
	case result != nil && result.IsError:
		s.logger.Warn(ctx, "tool reported failure", "tool", call.Name, "detail", result.Content)
		s.metrics.ToolExecutions.WithLabelValues(call.Name, "error").Inc()
	default:
		s.metrics.ToolExecutions.WithLabelValues(call.Name, "ok").Inc()
		s.recorder.Record("tool_executed", "ran "+call.Name, models.ActivityInternal, "")
	}
}

func historyToMessages(history []*models.Message) []CompletionMessage {
	result := make([]CompletionMessage, 0, len(history))
	for _, msg := range history {
		result = append(result, CompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return result
}
