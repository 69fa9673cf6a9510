package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestIdempotencyGuard_Claim(t *testing.T) {
	client, mr := setupTestRedis(t)
	guard := NewIdempotencyGuard(client, time.Minute)
	ctx := context.Background()

	ok, err := guard.Claim(ctx, "alice", "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("idem:alice:k1"))

	ok, err = guard.Claim(ctx, "alice", "k1")
	require.NoError(t, err)
	assert.False(t, ok, "second claim must be rejected")

	ok, err = guard.Claim(ctx, "bob", "k1")
	require.NoError(t, err)
	assert.True(t, ok, "keys are scoped")
}

func TestIdempotencyGuard_Expiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	guard := NewIdempotencyGuard(client, time.Minute)
	ctx := context.Background()

	_, err := guard.Claim(ctx, "alice", "k1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("idem:alice:k1"))

	mr.FastForward(time.Minute + time.Second)

	ok, err := guard.Claim(ctx, "alice", "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotencyGuard_Release(t *testing.T) {
	client, mr := setupTestRedis(t)
	guard := NewIdempotencyGuard(client, time.Minute)
	ctx := context.Background()

	_, err := guard.Claim(ctx, "alice", "k1")
	require.NoError(t, err)
	_, err = guard.Claim(ctx, "bob", "k1")
	require.NoError(t, err)

	require.NoError(t, guard.Release(ctx, "alice", "k1"))
	assert.False(t, mr.Exists("idem:alice:k1"))
	assert.True(t, mr.Exists("idem:bob:k1"), "other scopes keep their claim")

	ok, err := guard.Claim(ctx, "alice", "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, guard.Release(ctx, "alice", "never-claimed"))
}

func TestIdempotencyGuard_DefaultTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	guard := NewIdempotencyGuard(client, 0)

	_, err := guard.Claim(context.Background(), "alice", "k1")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, mr.TTL("idem:alice:k1"))
}

func TestIdempotencyGuard_BackendDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	guard := NewIdempotencyGuard(client, time.Minute)
	mr.Close()

	_, err := guard.Claim(context.Background(), "alice", "k1")
	assert.Error(t, err)
	assert.Error(t, guard.Release(context.Background(), "alice", "k1"))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := Connect(context.Background(), Config{Addr: addr})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	mr.Close()
	_, err = Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}
