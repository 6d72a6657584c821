package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/providentiaww/colorme-mcp/internal/models"
	"github.com/providentiaww/colorme-mcp/internal/oauth"
)

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("invalid token")

// OAuthVerifier validates OAuth access tokens issued by this server.
type OAuthVerifier struct {
	issuer    string
	audience  string
	publicKey *rsa.PublicKey
	store     oauth.Storage
	sealer    *oauth.Sealer
	now       func() time.Time
}

// OAuthClaims represents OAuth JWT claims.
type OAuthClaims struct {
	jwt.RegisteredClaims
	Scope    string `json:"scope"`
	ClientID string `json:"client_id,omitempty"`
}

// NewOAuthVerifier creates a new OAuth verifier.
func NewOAuthVerifier(cfg oauth.Config, keys *oauth.KeyManager, store oauth.Storage, sealer *oauth.Sealer) *OAuthVerifier {
	return &OAuthVerifier{
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		publicKey: keys.PublicKey(),
		store:     store,
		sealer:    sealer,
		now:       time.Now,
	}
}

// VerifyToken checks signature, issuer, audience and the server-side record,
// then opens the session properties bound to the token.
func (v *OAuthVerifier) VerifyToken(ctx context.Context, tokenString string) (*UserContext, error) {
	claims := &OAuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.publicKey, nil
	},
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or jti", ErrInvalidToken)
	}

	record, err := v.store.GetAccessToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, oauth.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown token", ErrInvalidToken)
		}
		return nil, fmt.Errorf("token lookup failed: %w", err)
	}
	if record.RevokedAt != nil {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}
	if v.now().After(record.ExpiresAt) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}
	if record.UserID != claims.Subject {
		return nil, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}

	var props models.SessionProps
	if err := v.sealer.Open(record.SealedProps, &props); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	scopes := strings.Fields(claims.Scope)
	if scopes == nil {
		scopes = []string{}
	}
	return &UserContext{
		UserID:   claims.Subject,
		ClientID: claims.ClientID,
		Scopes:   scopes,
		Props:    props,
	}, nil
}

// HasScope reports whether the caller was granted scope.
func (u *UserContext) HasScope(scope string) bool {
	return slices.Contains(u.Scopes, scope)
}
