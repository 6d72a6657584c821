package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCodes(t *testing.T) (*redisCodeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return newRedisCodeStore(client), mr
}

func TestRedisCodeStoreConsumeOnce(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisCodes(t)
	ctx := context.Background()

	code := &AuthCode{
		CodeHash:    HashToken("code-1"),
		ClientID:    "abc123",
		RedirectURI: "https://client.example/cb",
		UserID:      "PA01",
		Label:       "Tea Shop",
		Scope:       "read_products",
		SealedProps: []byte{1, 2, 3},
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(time.Minute),
	}
	require.NoError(t, store.save(ctx, code))
	assert.True(t, mr.Exists(codeKeyPrefix+code.CodeHash))

	got, err := store.consume(ctx, code.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ClientID)
	assert.Equal(t, "Tea Shop", got.Label)
	assert.Equal(t, []byte{1, 2, 3}, got.SealedProps)

	_, err = store.consume(ctx, code.CodeHash)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisCodeStoreExpiry(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisCodes(t)
	ctx := context.Background()

	code := &AuthCode{CodeHash: "h", ExpiresAt: time.Now().Add(30 * time.Second)}
	require.NoError(t, store.save(ctx, code))
	mr.FastForward(time.Minute)

	_, err := store.consume(ctx, "h")
	assert.ErrorIs(t, err, ErrNotFound)
}
