package oauth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Store persists OAuth data in Postgres. Authorization codes go to Redis
// when a Redis URL is configured.
type Store struct {
	db    *sql.DB
	redis *redis.Client
	codes codeStore
}

var _ Storage = (*Store)(nil)

type codeStore interface {
	save(ctx context.Context, code *AuthCode) error
	consume(ctx context.Context, codeHash string) (*AuthCode, error)
}

// NewStore opens Postgres, creates the schema, and optionally connects Redis.
func NewStore(ctx context.Context, databaseURL, redisURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(parseEnvInt("OAUTH_DB_MAX_OPEN_CONNS", 5))
	db.SetMaxIdleConns(parseEnvInt("OAUTH_DB_MAX_IDLE_CONNS", 2))
	db.SetConnMaxLifetime(parseEnvDuration("OAUTH_DB_CONN_MAX_LIFETIME", 5*time.Minute))

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &Store{db: db, codes: &sqlCodeStore{db: db}}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		store.redis = redis.NewClient(opts)
		if err := store.redis.Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		store.codes = newRedisCodeStore(store.redis)
	}

	return store, nil
}

// Close closes connections.
func (s *Store) Close() error {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies database and Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	if s.redis != nil {
		return s.redis.Ping(ctx).Err()
	}
	return nil
}

// SaveClient stores an OAuth client.
func (s *Store) SaveClient(ctx context.Context, client *Client) error {
	query := `
		INSERT INTO oauth_clients
			(client_id, client_secret_hash, redirect_uris, grant_types, response_types, scope, token_endpoint_auth_method, client_name, client_uri, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (client_id)
		DO UPDATE SET
			client_secret_hash = EXCLUDED.client_secret_hash,
			redirect_uris = EXCLUDED.redirect_uris,
			grant_types = EXCLUDED.grant_types,
			response_types = EXCLUDED.response_types,
			scope = EXCLUDED.scope,
			token_endpoint_auth_method = EXCLUDED.token_endpoint_auth_method,
			client_name = EXCLUDED.client_name,
			client_uri = EXCLUDED.client_uri,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		query,
		client.ClientID,
		nullableString(client.ClientSecretHash),
		pq.Array(client.RedirectURIs),
		pq.Array(client.GrantTypes),
		pq.Array(client.ResponseTypes),
		nullableString(client.Scope),
		client.TokenEndpointAuthMethod,
		nullableString(client.ClientName),
		nullableString(client.ClientURI),
		client.CreatedAt,
		client.UpdatedAt,
	)
	return err
}

// GetClient fetches an OAuth client by id.
func (s *Store) GetClient(ctx context.Context, clientID string) (*Client, error) {
	query := `
		SELECT client_id, client_secret_hash, redirect_uris, grant_types, response_types, scope, token_endpoint_auth_method, client_name, client_uri, created_at, updated_at
		FROM oauth_clients
		WHERE client_id = $1
	`

	var client Client
	var scope, secretHash, clientName, clientURI sql.NullString

	err := s.db.QueryRowContext(ctx, query, clientID).Scan(
		&client.ClientID,
		&secretHash,
		pq.Array(&client.RedirectURIs),
		pq.Array(&client.GrantTypes),
		pq.Array(&client.ResponseTypes),
		&scope,
		&client.TokenEndpointAuthMethod,
		&clientName,
		&clientURI,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	client.ClientSecretHash = secretHash.String
	client.Scope = scope.String
	client.ClientName = clientName.String
	client.ClientURI = clientURI.String
	return &client, nil
}

// SaveAuthCode stores auth code data.
func (s *Store) SaveAuthCode(ctx context.Context, code *AuthCode) error {
	return s.codes.save(ctx, code)
}

// ConsumeAuthCode retrieves and deletes an auth code.
func (s *Store) ConsumeAuthCode(ctx context.Context, codeHash string) (*AuthCode, error) {
	return s.codes.consume(ctx, codeHash)
}

// SaveRefreshToken persists a refresh token.
func (s *Store) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO oauth_refresh_tokens
			(token_hash, client_id, user_id, scope, sealed_props, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := s.db.ExecContext(ctx, query, token.TokenHash, token.ClientID, token.UserID, token.Scope, token.SealedProps, token.CreatedAt, token.ExpiresAt)
	return err
}

// GetRefreshToken retrieves a refresh token.
func (s *Store) GetRefreshToken(ctx context.Context, hash string) (*RefreshToken, error) {
	query := `
		SELECT token_hash, client_id, user_id, scope, sealed_props, created_at, expires_at, revoked_at
		FROM oauth_refresh_tokens
		WHERE token_hash = $1
	`
	var token RefreshToken
	var scope sql.NullString
	var revokedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&token.TokenHash,
		&token.ClientID,
		&token.UserID,
		&scope,
		&token.SealedProps,
		&token.CreatedAt,
		&token.ExpiresAt,
		&revokedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	token.Scope = scope.String
	if revokedAt.Valid {
		token.RevokedAt = &revokedAt.Time
	}
	return &token, nil
}

// RevokeRefreshToken marks a refresh token as revoked.
func (s *Store) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE oauth_refresh_tokens SET revoked_at = $1 WHERE token_hash = $2`, time.Now(), hash)
	return err
}

// SaveAccessToken stores a JWT identifier with its sealed props.
func (s *Store) SaveAccessToken(ctx context.Context, token *AccessToken) error {
	query := `
		INSERT INTO oauth_access_tokens
			(jti, client_id, user_id, scope, sealed_props, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := s.db.ExecContext(ctx, query, token.JTI, token.ClientID, token.UserID, token.Scope, token.SealedProps, token.CreatedAt, token.ExpiresAt)
	return err
}

// GetAccessToken loads the record for a JWT identifier.
func (s *Store) GetAccessToken(ctx context.Context, jti string) (*AccessToken, error) {
	query := `
		SELECT jti, client_id, user_id, scope, sealed_props, created_at, expires_at, revoked_at
		FROM oauth_access_tokens
		WHERE jti = $1
	`
	var token AccessToken
	var scope sql.NullString
	var revokedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, jti).Scan(
		&token.JTI,
		&token.ClientID,
		&token.UserID,
		&scope,
		&token.SealedProps,
		&token.CreatedAt,
		&token.ExpiresAt,
		&revokedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	token.Scope = scope.String
	if revokedAt.Valid {
		token.RevokedAt = &revokedAt.Time
	}
	return &token, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS oauth_clients (
		client_id VARCHAR(255) PRIMARY KEY,
		client_secret_hash TEXT,
		redirect_uris TEXT[] NOT NULL,
		grant_types TEXT[] NOT NULL,
		response_types TEXT[] NOT NULL,
		scope TEXT,
		token_endpoint_auth_method VARCHAR(50) NOT NULL,
		client_name TEXT,
		client_uri TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS oauth_auth_codes (
		code_hash TEXT PRIMARY KEY,
		client_id VARCHAR(255) NOT NULL,
		redirect_uri TEXT NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		label TEXT,
		scope TEXT,
		code_challenge TEXT NOT NULL,
		code_challenge_method TEXT NOT NULL,
		sealed_props BYTEA NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS oauth_refresh_tokens (
		token_hash TEXT PRIMARY KEY,
		client_id VARCHAR(255) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		scope TEXT,
		sealed_props BYTEA NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMP NOT NULL,
		revoked_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS oauth_access_tokens (
		jti TEXT PRIMARY KEY,
		client_id VARCHAR(255) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		scope TEXT,
		sealed_props BYTEA NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMP NOT NULL,
		revoked_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_oauth_auth_codes_expires ON oauth_auth_codes(expires_at);
	CREATE INDEX IF NOT EXISTS idx_oauth_refresh_tokens_user ON oauth_refresh_tokens(user_id);
	CREATE INDEX IF NOT EXISTS idx_oauth_access_tokens_user ON oauth_access_tokens(user_id);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

type sqlCodeStore struct {
	db *sql.DB
}

func (c *sqlCodeStore) save(ctx context.Context, code *AuthCode) error {
	query := `
		INSERT INTO oauth_auth_codes
			(code_hash, client_id, redirect_uri, user_id, label, scope, code_challenge, code_challenge_method, sealed_props, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`
	_, err := c.db.ExecContext(ctx,
		query,
		code.CodeHash,
		code.ClientID,
		code.RedirectURI,
		code.UserID,
		nullableString(code.Label),
		code.Scope,
		code.CodeChallenge,
		code.CodeChallengeMethod,
		code.SealedProps,
		code.CreatedAt,
		code.ExpiresAt,
	)
	return err
}

func (c *sqlCodeStore) consume(ctx context.Context, codeHash string) (code *AuthCode, err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var record AuthCode
	var label, scope sql.NullString
	query := `
		SELECT code_hash, client_id, redirect_uri, user_id, label, scope, code_challenge, code_challenge_method, sealed_props, created_at, expires_at
		FROM oauth_auth_codes
		WHERE code_hash = $1
		FOR UPDATE
	`
	if err = tx.QueryRowContext(ctx, query, codeHash).Scan(
		&record.CodeHash,
		&record.ClientID,
		&record.RedirectURI,
		&record.UserID,
		&label,
		&scope,
		&record.CodeChallenge,
		&record.CodeChallengeMethod,
		&record.SealedProps,
		&record.CreatedAt,
		&record.ExpiresAt,
	); err != nil {
		return nil, notFound(err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM oauth_auth_codes WHERE code_hash = $1`, codeHash); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	record.Label = label.String
	record.Scope = scope.String
	return &record, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}

func nullableString(val string) sql.NullString {
	if val == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: val, Valid: true}
}

func parseEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
