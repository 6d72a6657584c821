package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/providentiaww/colorme-mcp/internal/config"
	"github.com/providentiaww/colorme-mcp/internal/logging"
	"github.com/spf13/cobra"
)

const ServiceVersion = "v1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, envFile string

	cmd := &cobra.Command{
		Use:          "colorme-mcp",
		Short:        "ColorMe Shop MCP server with OAuth",
		Version:      ServiceVersion,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath, envFile)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", envOr("CONFIG_FILE", "config.yaml"), "YAML settings file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", ".env file loaded before settings")
	return cmd
}

func run(ctx context.Context, configPath, envFile string) error {
	config.LoadEnv(ctx, envFile, logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stderr))

	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := settings.ValidateServer(); err != nil {
		return err
	}

	logger := logging.New(settings.Log.Level, settings.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	a, err := newApp(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	httpServer := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"version", ServiceVersion,
			"addr", settings.Server.Addr,
			"public_url", settings.Server.PublicURL,
			"read_only", settings.ReadOnly())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Shutdown(shutdownCtx)
	return httpServer.Shutdown(shutdownCtx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
