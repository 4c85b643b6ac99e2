// Package cache holds the Redis-backed fast-path claim store for inbound
// message ids.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ligue:claim:"

// shortenTTL lowers a key's remaining life to ARGV[1] ms, never raising it.
var shortenTTL = redis.NewScript(`
local ttl = redis.call("PTTL", KEYS[1])
if ttl > tonumber(ARGV[1]) then
	return redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return 0
`)

// RedisClaimStore implements usecase.ClaimStore with SET NX PX.
type RedisClaimStore struct {
	client *redis.Client
}

func NewRedisClaimStore(ctx context.Context, redisURL string) (*RedisClaimStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisClaimStore{client: client}, nil
}

func (s *RedisClaimStore) Close() error {
	return s.client.Close()
}

func (s *RedisClaimStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func claimKey(key string) string {
	return keyPrefix + key
}

func (s *RedisClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, claimKey(key), time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisClaimStore) ReleaseAfter(ctx context.Context, key string, grace time.Duration) error {
	if err := shortenTTL.Run(ctx, s.client, []string{claimKey(key)}, grace.Milliseconds()).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
