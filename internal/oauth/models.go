package oauth

import (
	"time"

	"github.com/providentiaww/colorme-mcp/internal/models"
)

// Client represents an OAuth client registration.
type Client struct {
	ClientID                string
	ClientSecretHash        string
	RedirectURIs            []string
	GrantTypes              []string
	ResponseTypes           []string
	Scope                   string
	TokenEndpointAuthMethod string
	ClientName              string
	ClientURI               string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// AuthRequest is a validated inbound authorization request. It is never
// stored; the bridge carries it through the upstream redirect as JSON.
type AuthRequest struct {
	ResponseType        string   `json:"responseType"`
	ClientID            string   `json:"clientId"`
	RedirectURI         string   `json:"redirectUri"`
	Scope               []string `json:"scope"`
	State               string   `json:"state"`
	CodeChallenge       string   `json:"codeChallenge,omitempty"`
	CodeChallengeMethod string   `json:"codeChallengeMethod,omitempty"`
	Resource            string   `json:"resource,omitempty"`
}

// AuthCode represents an authorization code exchange record.
type AuthCode struct {
	CodeHash            string
	ClientID            string
	RedirectURI         string
	UserID              string
	Label               string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	SealedProps         []byte
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// RefreshToken represents a refresh token record.
type RefreshToken struct {
	TokenHash   string
	ClientID    string
	UserID      string
	Scope       string
	SealedProps []byte
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

// AccessToken represents a JWT record for revocation checks and props lookup.
type AccessToken struct {
	JTI         string
	ClientID    string
	UserID      string
	Scope       string
	SealedProps []byte
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

// Metadata is shown alongside a grant.
type Metadata struct {
	Label string `json:"label"`
}

// CompleteOptions finalizes an authorization for a resolved user.
type CompleteOptions struct {
	Request  *AuthRequest
	UserID   string
	Metadata Metadata
	Scope    []string
	Props    models.SessionProps
}

// CompleteResult carries the redirect back to the original client.
type CompleteResult struct {
	RedirectTo string
}
