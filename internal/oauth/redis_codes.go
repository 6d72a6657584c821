package oauth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const codeKeyPrefix = "oauth:code:"

// redisCodeStore keeps authorization codes with a TTL and consumes them
// with GETDEL so a code can be redeemed once.
type redisCodeStore struct {
	client *redis.Client
}

func newRedisCodeStore(client *redis.Client) *redisCodeStore {
	return &redisCodeStore{client: client}
}

func (r *redisCodeStore) save(ctx context.Context, code *AuthCode) error {
	payload, err := json.Marshal(code)
	if err != nil {
		return err
	}
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, codeKeyPrefix+code.CodeHash, payload, ttl).Err()
}

func (r *redisCodeStore) consume(ctx context.Context, codeHash string) (*AuthCode, error) {
	val, err := r.client.GetDel(ctx, codeKeyPrefix+codeHash).Result()
	if err != nil {
		return nil, notFound(err)
	}
	var code AuthCode
	if err := json.Unmarshal([]byte(val), &code); err != nil {
		return nil, err
	}
	return &code, nil
}
