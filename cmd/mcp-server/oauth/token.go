package oauth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/providentiaww/colorme-mcp/internal/oauth"
	"golang.org/x/crypto/bcrypt"
)

// grant is what a token pair is issued for.
type grant struct {
	userID   string
	clientID string
	scope    string
	sealed   []byte
}

// HandleToken exchanges authorization codes or refresh tokens.
func (s *Server) HandleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.rejectToken(w, http.StatusBadRequest, "Invalid form body", err)
		return
	}

	switch grantType := r.FormValue("grant_type"); grantType {
	case "authorization_code":
		s.handleAuthorizationCodeGrant(w, r)
	case "refresh_token":
		s.handleRefreshTokenGrant(w, r)
	default:
		s.rejectToken(w, http.StatusBadRequest, "Unsupported grant_type", fmt.Errorf("grant_type=%q", grantType))
	}
}

func (s *Server) handleAuthorizationCodeGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := r.FormValue("code")
	if code == "" {
		s.rejectToken(w, http.StatusBadRequest, "Missing code", nil)
		return
	}

	client, err := s.authenticateClient(ctx, r)
	if err != nil {
		s.rejectToken(w, http.StatusUnauthorized, err.Error(), nil)
		return
	}

	authCode, err := s.store.ConsumeAuthCode(ctx, oauth.HashToken(code))
	if err != nil {
		s.rejectToken(w, http.StatusBadRequest, "Invalid or expired code", err)
		return
	}
	if s.now().After(authCode.ExpiresAt) {
		s.rejectToken(w, http.StatusBadRequest, "Authorization code expired", nil)
		return
	}
	if authCode.ClientID != client.ClientID {
		s.rejectToken(w, http.StatusBadRequest, "Client mismatch", nil)
		return
	}
	if redirectURI := r.FormValue("redirect_uri"); redirectURI != "" && redirectURI != authCode.RedirectURI {
		s.rejectToken(w, http.StatusBadRequest, "redirect_uri mismatch", nil)
		return
	}
	if err := checkVerifier(authCode.CodeChallengeMethod, authCode.CodeChallenge, r.FormValue("code_verifier")); err != nil {
		s.rejectToken(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	s.writeTokens(w, r, grant{
		userID:   authCode.UserID,
		clientID: client.ClientID,
		scope:    authCode.Scope,
		sealed:   authCode.SealedProps,
	})
}

func (s *Server) handleRefreshTokenGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refreshToken := r.FormValue("refresh_token")
	if refreshToken == "" {
		s.rejectToken(w, http.StatusBadRequest, "Missing refresh_token", nil)
		return
	}

	client, err := s.authenticateClient(ctx, r)
	if err != nil {
		s.rejectToken(w, http.StatusUnauthorized, err.Error(), nil)
		return
	}

	hash := oauth.HashToken(refreshToken)
	stored, err := s.store.GetRefreshToken(ctx, hash)
	if err != nil || stored.RevokedAt != nil || s.now().After(stored.ExpiresAt) {
		s.rejectToken(w, http.StatusBadRequest, "Invalid refresh_token", err)
		return
	}
	if stored.ClientID != client.ClientID {
		s.rejectToken(w, http.StatusBadRequest, "Client mismatch", nil)
		return
	}

	if err := s.store.RevokeRefreshToken(ctx, hash); err != nil {
		s.rejectToken(w, http.StatusInternalServerError, "Failed to rotate refresh_token", err)
		return
	}

	s.writeTokens(w, r, grant{
		userID:   stored.UserID,
		clientID: client.ClientID,
		scope:    stored.Scope,
		sealed:   stored.SealedProps,
	})
}

func (s *Server) writeTokens(w http.ResponseWriter, r *http.Request, g grant) {
	accessToken, refreshToken, err := s.issueTokens(r.Context(), g)
	if err != nil {
		s.rejectToken(w, http.StatusInternalServerError, "Failed to issue tokens", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  accessToken,
		"token_type":    "Bearer",
		"expires_in":    int(s.cfg.AccessTokenTTL.Seconds()),
		"refresh_token": refreshToken,
		"scope":         g.scope,
	})
}

func (s *Server) issueTokens(ctx context.Context, g grant) (string, string, error) {
	now := s.now()
	jti := uuid.New().String()
	claims := jwt.MapClaims{
		"iss":       s.cfg.Issuer,
		"sub":       g.userID,
		"aud":       s.cfg.Audience,
		"iat":       now.Unix(),
		"exp":       now.Add(s.cfg.AccessTokenTTL).Unix(),
		"jti":       jti,
		"scope":     g.scope,
		"client_id": g.clientID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.keys.KID()
	signed, err := token.SignedString(s.keys.PrivateKey())
	if err != nil {
		return "", "", err
	}

	if err := s.store.SaveAccessToken(ctx, &oauth.AccessToken{
		JTI:         jti,
		ClientID:    g.clientID,
		UserID:      g.userID,
		Scope:       g.scope,
		SealedProps: g.sealed,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.AccessTokenTTL),
	}); err != nil {
		return "", "", err
	}

	refreshToken, err := oauth.RandomString(secretLength)
	if err != nil {
		return "", "", err
	}
	if err := s.store.SaveRefreshToken(ctx, &oauth.RefreshToken{
		TokenHash:   oauth.HashToken(refreshToken),
		ClientID:    g.clientID,
		UserID:      g.userID,
		Scope:       g.scope,
		SealedProps: g.sealed,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.RefreshTokenTTL),
	}); err != nil {
		return "", "", err
	}

	return signed, refreshToken, nil
}

func (s *Server) authenticateClient(ctx context.Context, r *http.Request) (*oauth.Client, error) {
	clientID, secret, hasBasic := r.BasicAuth()
	if !hasBasic {
		clientID = r.FormValue("client_id")
		secret = r.FormValue("client_secret")
	}
	if clientID == "" {
		return nil, fmt.Errorf("client_id required")
	}

	client, err := s.LookupClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid client_id")
	}
	if client.TokenEndpointAuthMethod == "none" {
		return client, nil
	}
	if secret == "" {
		return nil, fmt.Errorf("client_secret required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.ClientSecretHash), []byte(secret)); err != nil {
		return nil, fmt.Errorf("invalid client_secret")
	}
	return client, nil
}

func (s *Server) rejectToken(w http.ResponseWriter, status int, msg string, err error) {
	attrs := []any{"status", status, "reason", msg}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	s.logger.Warn("token request rejected", attrs...)
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, msg, status)
}

