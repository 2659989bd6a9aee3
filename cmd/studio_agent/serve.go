package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/clinic-studio/internal/config"
	"github.com/jonathan/clinic-studio/internal/server"
	"github.com/jonathan/clinic-studio/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes generation, drafts, compliance audit, publishing,
history and evidence search as REST endpoints, with SSE streams for progress.

Set JWT_SECRET to enable bearer tokens and server.require_auth to enforce them.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{Backend: true})
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	deps := server.Deps{
		Studio:    a.studio,
		Auditor:   a.generator,
		Audits:    a.audits,
		Citations: a.citations,
		Limiter:   ratelimit.NewLimiter(ratelimit.FromSettings(cfg.Server.RateLimit, cfg.Server.RateBurst, nil)),
		Log:       a.log,
	}
	if a.feed != nil {
		deps.Feed = a.feed
	}

	jwtConfig, err := config.NewJWTConfig()
	switch {
	case err == nil:
		deps.JWT = server.NewJWTService(jwtConfig)
	case cfg.Server.RequireAuth:
		return fmt.Errorf("failed to create JWT config: %w", err)
	default:
		a.log.Info("API tokens disabled", "reason", err.Error())
	}

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return fmt.Errorf("failed to create password config: %w", err)
	}
	deps.Passwords = passwordConfig

	srv, err := server.New(cfg.Server, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}
