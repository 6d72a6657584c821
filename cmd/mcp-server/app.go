package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/providentiaww/colorme-mcp/cmd/mcp-server/auth"
	"github.com/providentiaww/colorme-mcp/cmd/mcp-server/handlers"
	oauthserver "github.com/providentiaww/colorme-mcp/cmd/mcp-server/oauth"
	"github.com/providentiaww/colorme-mcp/internal/bridge"
	"github.com/providentiaww/colorme-mcp/internal/colorme"
	"github.com/providentiaww/colorme-mcp/internal/config"
	"github.com/providentiaww/colorme-mcp/internal/consent"
	"github.com/providentiaww/colorme-mcp/internal/events"
	"github.com/providentiaww/colorme-mcp/internal/metrics"
	"github.com/providentiaww/colorme-mcp/internal/oauth"
)

const propsKeyInfo = "session-props"

// app holds the wired components of the HTTP server.
type app struct {
	settings  *config.Settings
	store     oauth.Storage
	publisher events.Publisher
	provider  *oauthserver.Server
	bridge    *bridge.Handler
	tools     *handlers.Toolset
	verifier  auth.TokenVerifier
	registry  *prometheus.Registry
	mcp       *server.MCPServer
	sse       *server.SSEServer
	stream    *server.StreamableHTTPServer
	logger    *slog.Logger
}

func newApp(ctx context.Context, settings *config.Settings, logger *slog.Logger) (*app, error) {
	oauthCfg, err := oauth.LoadConfigFromEnv(settings.Server.PublicURL)
	if err != nil {
		return nil, err
	}

	keys, err := loadKeys(logger)
	if err != nil {
		return nil, err
	}
	sealer, err := newSealer(settings)
	if err != nil {
		return nil, err
	}

	var dialogOpts []consent.Option
	if strings.HasPrefix(settings.Server.PublicURL, "http://") {
		dialogOpts = append(dialogOpts, consent.WithInsecureCookies())
	}
	dialog, err := consent.New(settings.Cookie.EncryptionKey, dialogOpts...)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, settings, logger)
	if err != nil {
		return nil, err
	}
	publisher, err := openEvents(settings, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	provider := oauthserver.NewServer(oauthCfg, keys, store, sealer, logger)
	upstream := bridge.NewUpstream(bridge.UpstreamConfig{
		ClientID:     settings.ColorMe.ClientID,
		ClientSecret: settings.ColorMe.ClientSecret,
		AuthorizeURL: settings.ColorMe.AuthorizeURL,
		TokenURL:     settings.ColorMe.TokenURL,
		CallbackURL:  settings.CallbackURL(),
		Scopes:       settings.ColorMe.Scopes,
	})
	bridgeHandler := bridge.NewHandler(provider, dialog, upstream,
		colorme.NewAccountFetcher(settings.ColorMe.APIBaseURL, nil),
		bridge.WithLogger(logger),
		bridge.WithEvents(publisher),
		bridge.WithMetrics(metrics.NewBridge(registry)),
		bridge.WithServerInfo(consent.ServerInfo{
			Name:        "ColorMe Shop MCP Server",
			Description: "Lets AI agents read and manage your ColorMe Shop products, orders and customers.",
		}),
	)

	tools := handlers.NewToolset(handlers.Config{
		BaseURL:  settings.ColorMe.APIBaseURL,
		Timeout:  settings.Timeout(),
		ReadOnly: settings.ReadOnly(),
		Token:    handlers.SessionToken,
		Metrics:  metrics.NewTools(registry),
		Logger:   logger,
	})

	mcpServer := server.NewMCPServer("colorme-shop", ServiceVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	mcpServer.AddTools(tools.Tools()...)

	return &app{
		settings:  settings,
		store:     store,
		publisher: publisher,
		provider:  provider,
		bridge:    bridgeHandler,
		tools:     tools,
		verifier:  auth.NewOAuthVerifier(oauthCfg, keys, store, sealer),
		registry:  registry,
		mcp:       mcpServer,
		sse: server.NewSSEServer(mcpServer,
			server.WithBaseURL(settings.Server.PublicURL),
			server.WithSSEEndpoint("/sse"),
			server.WithMessageEndpoint("/message"),
			server.WithKeepAlive(true),
		),
		stream: server.NewStreamableHTTPServer(mcpServer, server.WithEndpointPath("/mcp")),
		logger: logger,
	}, nil
}

// Shutdown closes open MCP sessions.
func (a *app) Shutdown(ctx context.Context) {
	if err := a.sse.Shutdown(ctx); err != nil {
		a.logger.Warn("closing SSE sessions", "error", err)
	}
	if err := a.stream.Shutdown(ctx); err != nil {
		a.logger.Warn("closing streamable HTTP sessions", "error", err)
	}
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("closing event publisher", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}

func loadKeys(logger *slog.Logger) (*oauth.KeyManager, error) {
	keys, err := oauth.LoadKeyManagerFromEnv()
	if errors.Is(err, oauth.ErrNoSigningKey) {
		logger.Warn("no signing key configured, generating an ephemeral key; tokens will not survive a restart")
		return oauth.GenerateKeyManager()
	}
	return keys, err
}

// newSealer keys the session props cipher from OAUTH_PROPS_KEY, falling back
// to the cookie key.
func newSealer(settings *config.Settings) (*oauth.Sealer, error) {
	secret := os.Getenv("OAUTH_PROPS_KEY")
	if secret == "" {
		secret = settings.Cookie.EncryptionKey
	}
	key, err := oauth.DeriveKey([]byte(secret), propsKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("props key: %w", err)
	}
	return oauth.NewSealer(key)
}

func openStore(ctx context.Context, settings *config.Settings, logger *slog.Logger) (oauth.Storage, error) {
	if settings.Store.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory OAuth store")
		return oauth.NewMemoryStore(), nil
	}
	store, err := oauth.NewStore(ctx, settings.Store.DatabaseURL, settings.Store.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("opening OAuth store: %w", err)
	}
	return store, nil
}

func openEvents(settings *config.Settings, logger *slog.Logger) (events.Publisher, error) {
	if settings.Events.AMQPURL == "" {
		return events.Nop{}, nil
	}
	publisher, err := events.DialAMQP(settings.Events.AMQPURL, settings.Events.Exchange)
	if err != nil {
		return nil, fmt.Errorf("connecting to AMQP: %w", err)
	}
	logger.Info("publishing authorization events", "exchange", settings.Events.Exchange)
	return publisher, nil
}
