// Package gateway exposes the HTTP surface: chat endpoints for web and
// API callers, configuration CRUD, health, and metrics.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clawsync/clawsync/internal/agent"
	"github.com/clawsync/clawsync/internal/config"
	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/pkg/models"
)

// ChatService is the slice of the orchestrator the gateway needs.
type ChatService interface {
	ChatSend(ctx context.Context, req *agent.ChatRequest) (*agent.ChatResponse, error)
	ChatAPISend(ctx context.Context, req *agent.ChatRequest) (*agent.ChatResponse, error)
}

// ActivityReader lists recent activity records. Implemented by the
// SQLite activity sink; nil disables the endpoint.
type ActivityReader interface {
	Recent(ctx context.Context, limit int) ([]*models.ActivityRecord, error)
}

// Server is the HTTP gateway.
type Server struct {
	chat     ChatService
	store    config.Store
	activity ActivityReader
	registry *prometheus.Registry
	logger   *observability.Logger

	httpServer *http.Server
}

// NewServer creates the gateway on addr.
func NewServer(addr string, chat ChatService, store config.Store, activity ActivityReader, registry *prometheus.Registry, logger *observability.Logger) *Server {
	s := &Server{
		chat:     chat,
		store:    store,
		activity: activity,
		registry: registry,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleWebChat)
	mux.HandleFunc("POST /v1/chat", s.handleAPIChat)
	mux.HandleFunc("GET /api/config/agent", s.handleGetAgentConfig)
	mux.HandleFunc("PUT /api/config/agent", s.handlePutAgentConfig)
	mux.HandleFunc("GET /api/config/channels", s.handleListChannelConfigs)
	mux.HandleFunc("GET /api/config/channels/{type}", s.handleGetChannelConfig)
	mux.HandleFunc("PUT /api/config/channels/{type}", s.handlePutChannelConfig)
	mux.HandleFunc("GET /api/activity", s.handleActivity)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.withRequestID(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info(ctx, "gateway listening", "addr", s.httpServer.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), observability.RequestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
