// Package auth verifies bearer tokens on the MCP endpoints and carries the
// resolved shop identity in the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/providentiaww/colorme-mcp/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// UserContext is the authenticated caller.
type UserContext struct {
	UserID   string
	ClientID string
	Scopes   []string
	Props    models.SessionProps
}

// WithUser returns ctx carrying user.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// ExtractUserFromContext extracts user context from request context
func ExtractUserFromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// ExtractTokenFromHeader extracts the bearer token from the Authorization header.
func ExtractTokenFromHeader(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ExtractTokenFromQuery extracts the token query parameter, for SSE clients
// that cannot set headers.
func ExtractTokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}
