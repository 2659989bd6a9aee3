// Package main provides the studio_agent CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/clinic-studio/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "studio_agent",
	Short: "Content studio for a podiatry practice",
	Long: `studio_agent generates compliant social posts, articles, infographics and clinical
support documents for a podiatry practice, audits captions against advertising rules,
and publishes finished posts to the practice's social account.`,
	SilenceUsage: true,
}

var (
	configPath string
	traceFlag  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or JSON config file (STUDIO_* variables override it)")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "Print OpenTelemetry spans to stderr")
}

// loadConfig reads and validates the configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if traceFlag {
		cfg.Trace = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
