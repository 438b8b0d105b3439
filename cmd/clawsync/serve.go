package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/clawsync/clawsync/internal/activity"
	"github.com/clawsync/clawsync/internal/agent"
	"github.com/clawsync/clawsync/internal/agent/providers"
	"github.com/clawsync/clawsync/internal/channels"
	"github.com/clawsync/clawsync/internal/channels/discord"
	"github.com/clawsync/clawsync/internal/channels/slack"
	"github.com/clawsync/clawsync/internal/channels/telegram"
	"github.com/clawsync/clawsync/internal/config"
	"github.com/clawsync/clawsync/internal/gateway"
	"github.com/clawsync/clawsync/internal/observability"
	"github.com/clawsync/clawsync/internal/ratelimit"
	"github.com/clawsync/clawsync/internal/threads"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway and channel adapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "clawsync.yaml", "path to configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info(ctx, "starting clawsync", "version", version, "config", configPath)

	db, err := config.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store, err := config.NewSQLiteStore(db)
	if err != nil {
		return fmt.Errorf("init config store: %w", err)
	}
	threadStore, err := threads.NewSQLiteStore(db)
	if err != nil {
		return fmt.Errorf("init thread store: %w", err)
	}
	sink, err := activity.NewSQLiteSink(db)
	if err != nil {
		return fmt.Errorf("init activity sink: %w", err)
	}
	recorder := activity.NewRecorder(sink, logger)
	defer recorder.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	resolver := agent.NewResolver(providers.NewRegistry(), store, logger)
	tools := agent.NewToolRegistry(os.LookupEnv)
	guard := agent.NewGuard(
		ratelimit.NewLimiter(cfg.RateLimit.Session),
		ratelimit.NewLimiter(cfg.RateLimit.Global),
		cfg.RateLimit.MaxMessageLength,
	)
	service := agent.NewService(resolver, tools, guard, store, threadStore, recorder, metrics, logger)

	inbound := channels.NewHandler(service, store, metrics, logger)
	server := gateway.NewServer(cfg.Server.Addr, service, store, sink, registry, logger)

	errCh := make(chan error, 4)
	running := 1
	go func() {
		errCh <- server.ListenAndServe(ctx)
	}()

	if cfg.Channels.Telegram.Token != "" {
		adapter, err := telegram.NewAdapter(telegram.Config{
			Token:      cfg.Channels.Telegram.Token,
			WebhookURL: cfg.Channels.Telegram.WebhookURL,
			ListenAddr: cfg.Channels.Telegram.ListenAddr,
		}, inbound, logger)
		if err != nil {
			return fmt.Errorf("telegram adapter: %w", err)
		}
		running++
		go func() { errCh <- adapter.Start(ctx) }()
	}

	if cfg.Channels.Discord.Token != "" {
		adapter, err := discord.NewAdapter(discord.Config{
			Token: cfg.Channels.Discord.Token,
		}, inbound, logger)
		if err != nil {
			return fmt.Errorf("discord adapter: %w", err)
		}
		running++
		go func() { errCh <- adapter.Start(ctx) }()
	}

	if cfg.Channels.Slack.BotToken != "" {
		adapter, err := slack.NewAdapter(slack.Config{
			BotToken: cfg.Channels.Slack.BotToken,
			AppToken: cfg.Channels.Slack.AppToken,
		}, inbound, logger)
		if err != nil {
			return fmt.Errorf("slack adapter: %w", err)
		}
		running++
		go func() { errCh <- adapter.Start(ctx) }()
	}

	var firstErr error
	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
	case err := <-errCh:
		running--
		if err != nil && ctx.Err() == nil {
			firstErr = err
		}
		stop()
	}

	// Wait for every goroutine to finish before the deferred recorder
	// and database close run; in-flight requests may still record
	// activity until then.
	for ; running > 0; running-- {
		<-errCh
	}
	return firstErr
}
