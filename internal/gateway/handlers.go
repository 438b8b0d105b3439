package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/clawsync/clawsync/internal/agent"
	"github.com/clawsync/clawsync/internal/channels"
	"github.com/clawsync/clawsync/internal/config"
	"github.com/clawsync/clawsync/internal/threads"
	"github.com/clawsync/clawsync/pkg/models"
)

const maxBodyBytes = 1 << 20

type chatBody struct {
	// SessionID partitions rate limiting. Optional for web chat.
	SessionID string `json:"session_id"`

	// ThreadID continues an existing conversation; when absent a new
	// thread is created and its ID returned in the reply.
	ThreadID string `json:"thread_id"`

	Message string `json:"message"`
}

type chatReply struct {
	Reply    string `json:"reply"`
	ThreadID string `json:"thread_id"`
}

type apiChatReply struct {
	Reply        string `json:"reply"`
	ThreadID     string `json:"thread_id"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Fallback     bool   `json:"fallback,omitempty"`
	TokensUsed   int    `json:"tokens_used"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

type errorBody struct {
	Error    string `json:"error"`
	ThreadID string `json:"thread_id,omitempty"`
}

func (s *Server) handleWebChat(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeChatBody(w, r)
	if !ok {
		return
	}

	resp, err := s.chat.ChatSend(r.Context(), &agent.ChatRequest{
		SessionKey: channels.SessionKey(models.ChannelWeb, body.SessionID),
		ThreadID:   body.ThreadID,
		Channel:    models.ChannelWeb,
		Message:    body.Message,
	})
	if err != nil {
		s.writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatReply{Reply: resp.Text, ThreadID: resp.ThreadID})
}

func (s *Server) handleAPIChat(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeChatBody(w, r)
	if !ok {
		return
	}

	resp, err := s.chat.ChatAPISend(r.Context(), &agent.ChatRequest{
		SessionKey: channels.SessionKey(models.ChannelAPI, body.SessionID),
		ThreadID:   body.ThreadID,
		Channel:    models.ChannelAPI,
		Message:    body.Message,
	})
	if err != nil {
		s.writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiChatReply{
		Reply:        resp.Text,
		ThreadID:     resp.ThreadID,
		Provider:     resp.Provider,
		Model:        resp.Model,
		Fallback:     resp.IsFallback,
		TokensUsed:   resp.InputTokens + resp.OutputTokens,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	})
}

func (s *Server) decodeChatBody(w http.ResponseWriter, r *http.Request) (*chatBody, bool) {
	var body chatBody
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return nil, false
	}
	if body.SessionID == "" {
		body.SessionID = "anon-" + r.RemoteAddr
	}
	return &body, true
}

func (s *Server) writeChatError(w http.ResponseWriter, err error) {
	var chatErr *agent.ChatError
	if errors.As(err, &chatErr) {
		status := http.StatusBadGateway
		var rej *agent.RejectionError
		switch {
		case errors.As(chatErr.Cause, &rej):
			if rej.Reason == agent.RejectSessionRate || rej.Reason == agent.RejectGlobalRate {
				status = http.StatusTooManyRequests
			} else {
				status = http.StatusBadRequest
			}
		case errors.Is(chatErr.Cause, threads.ErrNotFound):
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorBody{Error: chatErr.Msg, ThreadID: chatErr.ThreadID})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func (s *Server) handleGetAgentConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.GetAgentConfig(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if cfg == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "agent config not set"})
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutAgentConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.AgentConfig
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	if cfg.ModelProvider == "" || cfg.Model == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "model_provider and model are required"})
		return
	}
	if err := s.store.PutAgentConfig(r.Context(), &cfg); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleListChannelConfigs(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListChannelConfigs(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.ChannelConfig{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetChannelConfig(w http.ResponseWriter, r *http.Request) {
	channel := models.ChannelType(r.PathValue("type"))
	cfg, err := s.store.GetChannelConfig(r.Context(), channel)
	if errors.Is(err, config.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "channel not configured"})
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutChannelConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.ChannelConfig
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	cfg.ChannelType = models.ChannelType(r.PathValue("type"))
	if err := s.store.PutChannelConfig(r.Context(), &cfg); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "activity feed not available"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.activity.Recent(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if records == nil {
		records = []*models.ActivityRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), "store operation failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
