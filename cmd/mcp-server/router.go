package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/providentiaww/colorme-mcp/cmd/mcp-server/auth"
	"github.com/providentiaww/colorme-mcp/cmd/mcp-server/handlers"
	"github.com/providentiaww/colorme-mcp/internal/oauth"
)

// Router mounts the provider, the bridge and the MCP transports.
func (a *app) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(a.logger), middleware.Recoverer, corsMiddleware)

	a.bridge.Routes(r)
	r.Post("/token", a.provider.HandleToken)
	r.Post("/register", a.provider.HandleRegister)
	r.Get("/.well-known/oauth-authorization-server", a.provider.HandleWellKnown)
	r.Get("/.well-known/oauth-authorization-server/*", a.provider.HandleWellKnown)
	r.Get("/.well-known/oauth-protected-resource", a.provider.HandleProtectedResource)
	r.Get("/.well-known/oauth-protected-resource/*", a.provider.HandleProtectedResource)
	r.Get("/jwks", a.provider.HandleJWKS)

	r.Get("/healthz", healthHandler(a.store))
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	authMiddleware := auth.NewAuthMiddleware(a.verifier, a.provider.ProtectedResourceMetadataURL(), a.logger)
	rest := handlers.NewRestToolHandler(a.tools)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Handle("/sse", a.sse.SSEHandler())
		r.Handle("/message", a.sse.MessageHandler())
		r.Handle("/mcp", a.stream)
		r.Post("/api/tools/{name}", rest.HandleToolRequest)
	})
	return r
}

func healthHandler(store oauth.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// requestLogger logs one line per request. Query strings are left out since
// they carry codes and state.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id, Mcp-Protocol-Version")
		w.Header().Set("Access-Control-Expose-Headers", "WWW-Authenticate, Mcp-Session-Id")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
