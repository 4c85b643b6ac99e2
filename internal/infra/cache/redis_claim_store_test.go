package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a live server: REDIS_TEST_URL=redis://localhost:6379/15
func newTestStore(t *testing.T) *RedisClaimStore {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	store, err := NewRedisClaimStore(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestClaimKey(t *testing.T) {
	assert.Equal(t, "ligue:claim:sms:SM123", claimKey("sms:SM123"))
}

func TestNewRedisClaimStoreBadURL(t *testing.T) {
	_, err := NewRedisClaimStore(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestRedisClaimIsFirstWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "sms:" + ulid.Make().String()

	first, err := store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	second, err := store.Claim(ctx, key, time.Minute)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestRedisReleaseAfterOnlyShortens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := "sms:" + ulid.Make().String()

	_, err := store.Claim(ctx, key, 5*time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.ReleaseAfter(ctx, key, time.Minute))
	ttl := store.client.PTTL(ctx, claimKey(key)).Val()
	assert.LessOrEqual(t, ttl, time.Minute)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, store.ReleaseAfter(ctx, key, time.Hour))
	assert.LessOrEqual(t, store.client.PTTL(ctx, claimKey(key)).Val(), time.Minute)
}

func TestRedisReleaseAfterMissingKey(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.ReleaseAfter(context.Background(), "sms:"+ulid.Make().String(), time.Minute))
}
