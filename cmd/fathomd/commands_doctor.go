package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fathomlabs/fathom/internal/config"
)

// buildDoctorCmd creates the "doctor" command: load and validate
// configuration without starting any server, reporting each check's
// outcome the way an operator would expect before a deploy.
func buildDoctorCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "fathom.yaml", "Path to YAML or JSON5 configuration file")
	return cmd
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checking %s\n", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] config load: %v\n", err)
		return err
	}
	fmt.Fprintln(out, "  [ OK ] config loads and validates")

	if info, statErr := os.Stat(cfg.Workspace); statErr != nil || !info.IsDir() {
		fmt.Fprintf(out, "  [WARN] workspace %q is not an accessible directory\n", cfg.Workspace)
	} else {
		fmt.Fprintf(out, "  [ OK ] workspace %q exists\n", cfg.Workspace)
	}

	if cfg.TelegramToken == "" {
		fmt.Fprintln(out, "  [WARN] telegram_token not set, chat bridge will be disabled")
	} else {
		fmt.Fprintln(out, "  [ OK ] telegram_token configured")
	}

	if cfg.LLMAPIKey == "" {
		fmt.Fprintln(out, "  [WARN] llm_api_key not set")
	} else {
		fmt.Fprintf(out, "  [ OK ] llm_provider=%s model=%s\n", cfg.LLMProvider, cfg.LLMModel)
	}

	if len(cfg.LLMFallbacks) > 0 {
		fmt.Fprintf(out, "  [ OK ] %d fallback provider(s) configured\n", len(cfg.LLMFallbacks))
	}

	if cfg.Mesh.Role != "" {
		fmt.Fprintf(out, "  [ OK ] mesh role=%s token_mode=%s\n", cfg.Mesh.Role, cfg.Mesh.TokenMode)
		if cfg.Mesh.SharedSecret == "" {
			fmt.Fprintln(out, "  [WARN] mesh.shared_secret is empty, mesh tokens will validate unconditionally")
		}
	}

	proxyAddr := cfg.Proxy.ListenAddr
	if proxyAddr == "" {
		proxyAddr = "127.0.0.1:7432 (default)"
	}
	fmt.Fprintf(out, "  [ OK ] proxy will bind %s\n", proxyAddr)

	return nil
}
