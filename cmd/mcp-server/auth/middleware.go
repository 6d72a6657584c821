package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/providentiaww/colorme-mcp/internal/logging"
)

// TokenVerifier resolves a bearer token to a caller.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*UserContext, error)
}

// AuthMiddleware creates HTTP middleware for authentication
type AuthMiddleware struct {
	verifier         TokenVerifier
	resourceMetadata string
	logger           *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware. resourceMetadata
// is the protected-resource metadata URL advertised on 401 responses.
func NewAuthMiddleware(verifier TokenVerifier, resourceMetadata string, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AuthMiddleware{
		verifier:         verifier,
		resourceMetadata: resourceMetadata,
		logger:           logger,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS preflight
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := ExtractTokenFromHeader(r)
		if token == "" {
			token = ExtractTokenFromQuery(r)
		}
		if token == "" {
			m.challenge(w, "", "Unauthorized: missing authentication token")
			return
		}

		user, err := m.verifier.VerifyToken(r.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				m.logger.Error("verifying access token", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			m.logger.Debug("rejected access token", "error", err)
			m.challenge(w, "invalid_token", "Unauthorized: invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (m *AuthMiddleware) challenge(w http.ResponseWriter, code, msg string) {
	value := "Bearer"
	sep := " "
	if code != "" {
		value += fmt.Sprintf(`%serror=%q`, sep, code)
		sep = ", "
	}
	if m.resourceMetadata != "" {
		value += fmt.Sprintf(`%sresource_metadata=%q`, sep, m.resourceMetadata)
	}
	w.Header().Set("WWW-Authenticate", value)
	http.Error(w, msg, http.StatusUnauthorized)
}
