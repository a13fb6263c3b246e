// Command fathomd is the process entrypoint for the Fathom agent runtime:
// the agent loop, the Telegram chat bridge, the loopback LLM proxy, and
// the mesh coordinator all run inside this one binary, selected by
// subcommand.
//
// # Basic usage
//
//	fathomd serve --config fathom.yaml
//	fathomd mesh captain --config fathom.yaml
//	fathomd mesh crew --config fathom.yaml
//	fathomd doctor --config fathom.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fathomd",
		Short: "Fathom agent runtime",
		Long: `Fathom runs a tool-calling LLM agent behind a chat bridge, with an
optional mesh of worker nodes for distributing tool execution.

Subcommands:
  serve        run the agent loop, chat bridge, and loopback proxy
  mesh captain run the mesh coordinator that routes tasks to crew nodes
  mesh crew    run a worker node that registers with a captain
  doctor       validate configuration without starting anything`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildMeshCmd(),
		buildDoctorCmd(),
	)
	return rootCmd
}
