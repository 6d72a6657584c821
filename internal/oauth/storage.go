package oauth

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is absent or already consumed.
var ErrNotFound = errors.New("oauth: record not found")

// Storage persists clients and issued grants.
type Storage interface {
	SaveClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, clientID string) (*Client, error)

	SaveAuthCode(ctx context.Context, code *AuthCode) error
	// ConsumeAuthCode returns the code and deletes it atomically.
	ConsumeAuthCode(ctx context.Context, codeHash string) (*AuthCode, error)

	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, hash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, hash string) error

	SaveAccessToken(ctx context.Context, token *AccessToken) error
	GetAccessToken(ctx context.Context, jti string) (*AccessToken, error)

	Ping(ctx context.Context) error
	Close() error
}
