package oauth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Storage for development and tests.
type MemoryStore struct {
	mu            sync.Mutex
	clients       map[string]Client
	codes         map[string]AuthCode
	refreshTokens map[string]RefreshToken
	accessTokens  map[string]AccessToken
}

var _ Storage = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:       make(map[string]Client),
		codes:         make(map[string]AuthCode),
		refreshTokens: make(map[string]RefreshToken),
		accessTokens:  make(map[string]AccessToken),
	}
}

func (m *MemoryStore) SaveClient(_ context.Context, client *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now
	m.clients[client.ClientID] = *client
	return nil
}

func (m *MemoryStore) GetClient(_ context.Context, clientID string) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client, ok := m.clients[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return &client, nil
}

func (m *MemoryStore) SaveAuthCode(_ context.Context, code *AuthCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[code.CodeHash] = *code
	return nil
}

func (m *MemoryStore) ConsumeAuthCode(_ context.Context, codeHash string) (*AuthCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, ok := m.codes[codeHash]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.codes, codeHash)
	return &code, nil
}

func (m *MemoryStore) SaveRefreshToken(_ context.Context, token *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshTokens[token.TokenHash] = *token
	return nil
}

func (m *MemoryStore) GetRefreshToken(_ context.Context, hash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.refreshTokens[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return &token, nil
}

func (m *MemoryStore) RevokeRefreshToken(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.refreshTokens[hash]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	token.RevokedAt = &now
	m.refreshTokens[hash] = token
	return nil
}

func (m *MemoryStore) SaveAccessToken(_ context.Context, token *AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessTokens[token.JTI] = *token
	return nil
}

func (m *MemoryStore) GetAccessToken(_ context.Context, jti string) (*AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.accessTokens[jti]
	if !ok {
		return nil, ErrNotFound
	}
	return &token, nil
}

// RevokeAccessToken marks an access token revoked.
func (m *MemoryStore) RevokeAccessToken(jti string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token, ok := m.accessTokens[jti]; ok {
		now := time.Now()
		token.RevokedAt = &now
		m.accessTokens[jti] = token
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
