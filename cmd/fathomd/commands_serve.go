package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fathomlabs/fathom/internal/agent"
	"github.com/fathomlabs/fathom/internal/channels/telegram"
	"github.com/fathomlabs/fathom/internal/config"
	"github.com/fathomlabs/fathom/internal/net/httpclient"
	"github.com/fathomlabs/fathom/internal/observability"
	"github.com/fathomlabs/fathom/internal/proxy"
	"github.com/fathomlabs/fathom/internal/registry"
	"github.com/fathomlabs/fathom/internal/store"
	"github.com/fathomlabs/fathom/internal/tools"
)

// buildServeCmd creates the "serve" command: the agent loop, the Telegram
// chat bridge, and the loopback LLM proxy, all sharing one store and one
// tool registry.
func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent loop, chat bridge, and loopback proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "fathom.yaml", "Path to YAML or JSON5 configuration file")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	httpClient := httpclient.New()
	metrics := observability.NewMetrics()

	reg := registry.New(64)
	if err := tools.RegisterAll(reg, tools.Deps{
		Workspace: cfg.Workspace,
		Store:     st,
		ChatID:    cfg.TelegramChatID,
		HTTP:      httpClient,
	}); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	auditFn := func(ctx context.Context, tool, args, status string) {
		_ = st.LogEvent(ctx, "tool_dispatch", tool, status)
	}

	loop := &agent.Loop{
		Registry: reg,
		Store:    st,
		HTTP:     httpClient,
		Config:   cfg,
		Log:      slog.Default(),
		Audit:    auditFn,
		Metrics:  metrics,
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)

	if cfg.TelegramToken != "" {
		bridge, err := telegram.NewAdapter(telegram.Config{
			Token:         cfg.TelegramToken,
			AllowedChatID: cfg.TelegramChatID,
			Logger:        slog.Default(),
			Audit: func(ctx context.Context, kind, detail string) {
				_ = st.LogEvent(ctx, kind, "telegram", detail)
			},
		}, func(ctx context.Context, chatID, text string) {
			result, err := loop.Run(ctx, chatID, text, nil)
			if err != nil {
				slog.Warn("agent run failed", "chat_id", chatID, "error", err)
				return
			}
			if result.Text == "" {
				return
			}
			if err := bridge.Send(ctx, chatID, result.Text); err != nil {
				slog.Warn("telegram send failed", "chat_id", chatID, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("building telegram bridge: %w", err)
		}
		bridge.Start(ctx)
		defer bridge.Stop()
		slog.Info("telegram chat bridge started")
	} else {
		slog.Info("telegram_token not set, chat bridge disabled")
	}

	proxySrv := proxy.NewServer(cfg.Proxy, config.ProviderConfig{
		Provider: cfg.LLMProvider,
		APIURL:   cfg.LLMAPIURL,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
	}, httpClient, st, slog.Default())
	proxySrv.Metrics = metrics

	go func() { errCh <- proxySrv.ListenAndServe(ctx) }()

	slog.Info("fathomd serving", "llm_provider", cfg.LLMProvider, "proxy_addr", cfg.Proxy.ListenAddr)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
	}
	return nil
}
