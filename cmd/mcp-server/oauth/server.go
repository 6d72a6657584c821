// Package oauth is the MCP-side OAuth 2.1 authorization server. It issues the
// codes and tokens MCP clients use; upstream shop credentials only ever live
// sealed inside its grant records.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/providentiaww/colorme-mcp/internal/cache"
	"github.com/providentiaww/colorme-mcp/internal/logging"
	"github.com/providentiaww/colorme-mcp/internal/oauth"
)

// Server provides OAuth 2.1 endpoints.
type Server struct {
	cfg     oauth.Config
	keys    *oauth.KeyManager
	store   oauth.Storage
	sealer  *oauth.Sealer
	clients *cache.TTL[*oauth.Client]
	logger  *slog.Logger
	now     func() time.Time
}

// NewServer creates a new OAuth server.
func NewServer(cfg oauth.Config, keys *oauth.KeyManager, store oauth.Storage, sealer *oauth.Sealer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		cfg:     cfg,
		keys:    keys,
		store:   store,
		sealer:  sealer,
		clients: cache.New[*oauth.Client](cfg.ClientCacheTTL),
		logger:  logger,
		now:     time.Now,
	}
}

// ParseAuthRequest validates an inbound /authorize request against the
// client's registration.
func (s *Server) ParseAuthRequest(r *http.Request) (*oauth.AuthRequest, error) {
	query := r.URL.Query()

	clientID := query.Get("client_id")
	if clientID == "" {
		return nil, fmt.Errorf("client_id required")
	}
	if rt := query.Get("response_type"); rt != "code" {
		return nil, fmt.Errorf("unsupported response_type")
	}

	client, err := s.LookupClient(r.Context(), clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid client_id")
	}

	redirectURI := query.Get("redirect_uri")
	if redirectURI == "" {
		if len(client.RedirectURIs) != 1 || strings.Contains(client.RedirectURIs[0], "*") {
			return nil, fmt.Errorf("redirect_uri required")
		}
		redirectURI = client.RedirectURIs[0]
	}
	if !redirectAllowed(redirectURI, client.RedirectURIs) {
		return nil, fmt.Errorf("redirect_uri not allowed")
	}

	challenge := query.Get("code_challenge")
	method := strings.ToUpper(query.Get("code_challenge_method"))
	switch {
	case challenge == "" && client.TokenEndpointAuthMethod == "none":
		return nil, fmt.Errorf("PKCE S256 is required")
	case challenge == "":
		method = pkceNone
	case method != pkceS256:
		return nil, fmt.Errorf("PKCE S256 is required")
	}

	return &oauth.AuthRequest{
		ResponseType:        "code",
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		Scope:               strings.Fields(query.Get("scope")),
		State:               query.Get("state"),
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		Resource:            query.Get("resource"),
	}, nil
}

// LookupClient returns a registered client, consulting the cache first.
func (s *Server) LookupClient(ctx context.Context, clientID string) (*oauth.Client, error) {
	if client, ok := s.clients.Get(clientID); ok {
		return client, nil
	}
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	s.clients.Set(clientID, client)
	return client, nil
}

// CompleteAuthorization issues a single-use code for a resolved user and
// returns the redirect back to the client.
func (s *Server) CompleteAuthorization(ctx context.Context, opts oauth.CompleteOptions) (*oauth.CompleteResult, error) {
	req := opts.Request
	if req == nil || req.ClientID == "" || req.RedirectURI == "" {
		return nil, errors.New("authorization request is incomplete")
	}
	if opts.UserID == "" {
		return nil, errors.New("user id is required")
	}

	sealed, err := s.sealer.Seal(opts.Props)
	if err != nil {
		return nil, fmt.Errorf("sealing props: %w", err)
	}

	code, err := oauth.RandomString(codeLength)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &oauth.AuthCode{
		CodeHash:            oauth.HashToken(code),
		ClientID:            req.ClientID,
		RedirectURI:         req.RedirectURI,
		UserID:              opts.UserID,
		Label:               opts.Metadata.Label,
		Scope:               strings.Join(opts.Scope, " "),
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		SealedProps:         sealed,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.cfg.AuthCodeTTL),
	}
	if err := s.store.SaveAuthCode(ctx, record); err != nil {
		return nil, fmt.Errorf("saving authorization code: %w", err)
	}

	redirectTo, err := withParams(req.RedirectURI, url.Values{"code": {code}, "state": {req.State}})
	if err != nil {
		return nil, err
	}
	s.logger.Info("authorization code issued", "client_id", req.ClientID, "user_id", opts.UserID)
	return &oauth.CompleteResult{RedirectTo: redirectTo}, nil
}

// ProtectedResourceMetadataURL is advertised in WWW-Authenticate challenges.
func (s *Server) ProtectedResourceMetadataURL() string {
	return s.cfg.Issuer + "/.well-known/oauth-protected-resource"
}
