package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers the result id of a request keyed by a client
// supplied key. A nil store (or nil client) disables idempotency.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Enabled() bool {
	return s != nil && s.client != nil
}

func idemKey(scope, key string) string {
	return "idem:" + scope + ":" + key
}

// Get returns the stored value, or "" when the key is unknown.
func (s *IdempotencyStore) Get(ctx context.Context, scope, key string) (string, error) {
	if !s.Enabled() || key == "" {
		return "", nil
	}
	val, err := s.client.Get(ctx, idemKey(scope, key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set stores value under key unless another request stored one first. It
// reports whether this call won.
func (s *IdempotencyStore) Set(ctx context.Context, scope, key, value string) (bool, error) {
	if !s.Enabled() || key == "" {
		return true, nil
	}
	return s.client.SetNX(ctx, idemKey(scope, key), value, s.ttl).Result()
}

// Release drops a key so a later request can claim it again. Used when the
// request that claimed the key failed before producing a result.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if !s.Enabled() || key == "" {
		return nil
	}
	return s.client.Del(ctx, idemKey(scope, key)).Err()
}
