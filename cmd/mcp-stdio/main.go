package main

import (
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/providentiaww/colorme-mcp/cmd/mcp-server/handlers"
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
		Use:          "colorme-mcp-stdio",
		Short:        "ColorMe Shop MCP server over stdio, authenticated with a personal access token",
		Version:      ServiceVersion,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout belongs to the protocol; everything else goes to stderr.
			config.LoadEnv(cmd.Context(), envFile, logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stderr))

			settings, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := settings.ValidateStdio(); err != nil {
				return err
			}
			logger := logging.New(settings.Log.Level, settings.Log.Format, os.Stderr)
			slog.SetDefault(logger)

			return server.ServeStdio(newMCPServer(settings, logger))
		},
	}
	cmd.Flags().StringVar(&configPath, "config", envOr("CONFIG_FILE", "config.yaml"), "YAML settings file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", ".env file loaded before settings")
	return cmd
}

func newMCPServer(settings *config.Settings, logger *slog.Logger) *server.MCPServer {
	tools := handlers.NewToolset(handlers.Config{
		BaseURL:  settings.ColorMe.APIBaseURL,
		Timeout:  settings.Timeout(),
		ReadOnly: settings.ReadOnly(),
		Token:    handlers.StaticToken(settings.ColorMe.AccessToken),
		Logger:   logger,
	})

	s := server.NewMCPServer("colorme-shop", ServiceVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.AddTools(tools.Tools()...)
	logger.Info("serving MCP over stdio", "tools", len(tools.Tools()), "read_only", settings.ReadOnly())
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
