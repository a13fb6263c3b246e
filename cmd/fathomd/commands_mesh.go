package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fathomlabs/fathom/internal/config"
	"github.com/fathomlabs/fathom/internal/mesh"
	"github.com/fathomlabs/fathom/internal/net/httpclient"
	"github.com/fathomlabs/fathom/internal/observability"
	"github.com/fathomlabs/fathom/internal/registry"
	"github.com/fathomlabs/fathom/internal/store"
	"github.com/fathomlabs/fathom/internal/tools"
)

// buildMeshCmd creates the "mesh" command group: "captain" runs the
// coordinator, "crew" runs a worker node.
func buildMeshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mesh",
		Short: "Run a mesh coordinator or worker node",
	}
	cmd.AddCommand(buildMeshCaptainCmd(), buildMeshCrewCmd())
	return cmd
}

func buildMeshCaptainCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "captain",
		Short: "Run the mesh coordinator that routes tasks to crew nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeshCaptain(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "fathom.yaml", "Path to YAML or JSON5 configuration file")
	return cmd
}

func buildMeshCrewCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "crew",
		Short: "Run a worker node that registers with a mesh captain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeshCrew(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "fathom.yaml", "Path to YAML or JSON5 configuration file")
	return cmd
}

func meshTokenizer(mc config.MeshConfig) mesh.Tokenizer {
	if mc.TokenMode == "jwt" {
		return mesh.JWTTokenizer{Secret: mc.SharedSecret}
	}
	return mesh.FNVTokenizer{Secret: mc.SharedSecret}
}

func runMeshCaptain(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Mesh.ListenAddr == "" {
		return fmt.Errorf("mesh.listen_addr is required for the captain role")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	metrics := observability.NewMetrics()
	reg := mesh.NewRegistry()
	captain := &mesh.Captain{
		Registry:          reg,
		HTTP:              httpclient.New(),
		Store:             st,
		Log:               slog.Default(),
		HeartbeatInterval: cfg.Mesh.HeartbeatInterval,
		Metrics:           metrics,
		Tokenizer:         meshTokenizer(cfg.Mesh),
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Mesh.DiscoveryURL != "" {
		n, err := mesh.DiscoverPeers(ctx, captain.HTTP, reg, cfg.Mesh.DiscoveryURL)
		if err != nil {
			slog.Warn("mesh peer discovery failed", "url", cfg.Mesh.DiscoveryURL, "error", err)
		} else {
			slog.Info("mesh peer discovery complete", "registered", n)
		}
	}

	inner := mesh.CaptainHandlers(reg, meshTokenizer(cfg.Mesh), slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("/captain/dispatch", captainDispatchHandler(captain, meshTokenizer(cfg.Mesh)))
	mux.Handle("/", inner)
	srv := &http.Server{Addr: cfg.Mesh.ListenAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	slog.Info("mesh captain listening", "addr", cfg.Mesh.ListenAddr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("captain server exited: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func runMeshCrew(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Mesh.CaptainURL == "" || cfg.Mesh.SelfEndpoint == "" || cfg.Mesh.ListenAddr == "" {
		return fmt.Errorf("mesh.captain_url, mesh.self_endpoint, and mesh.listen_addr are required for the crew role")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	httpClient := httpclient.New()
	reg := registry.New(64)
	if err := tools.RegisterAll(reg, tools.Deps{
		Workspace: cfg.Workspace,
		Store:     st,
		HTTP:      httpClient,
	}); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}
	dispatcher := registry.NewDispatcher(reg, slog.Default(), func(ctx context.Context, tool, args, status string) {
		_ = st.LogEvent(ctx, "mesh_exec", tool, status)
	})

	name := cfg.Mesh.SelfEndpoint
	crew := &mesh.Crew{
		Name:         name,
		SelfEndpoint: cfg.Mesh.SelfEndpoint,
		CaptainURL:   cfg.Mesh.CaptainURL,
		Capabilities: cfg.Mesh.Capabilities,
		HTTP:         httpClient,
		Dispatcher:   dispatcher,
		Tokenizer:    meshTokenizer(cfg.Mesh),
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := crew.Register(ctx); err != nil {
		return fmt.Errorf("registering with captain: %w", err)
	}
	slog.Info("mesh crew registered", "captain", cfg.Mesh.CaptainURL, "endpoint", cfg.Mesh.SelfEndpoint)

	heartbeatInterval := cfg.Mesh.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = 30 * time.Second
	}
	go runHeartbeatLoop(ctx, crew, heartbeatInterval)

	handler := mesh.CrewHandlers(dispatcher, meshTokenizer(cfg.Mesh), slog.Default(), 1<<20)
	srv := &http.Server{Addr: cfg.Mesh.ListenAddr, Handler: handler}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	slog.Info("mesh crew listening", "addr", cfg.Mesh.ListenAddr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("crew server exited: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// captainDispatchHandler exposes mesh.Captain.Dispatch as the one endpoint
// that actually submits a task: the agent loop (or an operator) posts
// {task_id, tool, args} here and the captain routes it to the
// least-loaded healthy crew node advertising that tool.
func captainDispatchHandler(captain *mesh.Captain, tok mesh.Tokenizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !tok.Validate(r.Header.Get("X-Mesh-Token")) {
			http.Error(w, "invalid mesh token", http.StatusUnauthorized)
			return
		}
		var task mesh.Task
		if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		result := captain.Dispatch(r.Context(), task)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func runHeartbeatLoop(ctx context.Context, crew *mesh.Crew, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := crew.Heartbeat(ctx); err != nil {
				slog.Warn("mesh heartbeat failed", "error", err)
			}
		}
	}
}
