package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStoreForTest(t *testing.T) (*RedisRevocationStore, *miniredis.Miniredis) {
	t.Helper()

	mini := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisRevocationStore(client), mini
}

func TestRedisRevocationStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mini := newRedisStoreForTest(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	claimed, err := store.Revoke(ctx, "jti-1", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = store.Revoke(ctx, "jti-1", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.False(t, claimed)

	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)
	require.Equal(t, 2*time.Hour, mini.TTL(revokedTokenKey("jti-1")))

	mini.FastForward(2*time.Hour + time.Second)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRedisRevocationStoreMinimumTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, mini := newRedisStoreForTest(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, err := store.Revoke(ctx, "jti-2", now.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, minRevocationTTL, mini.TTL(revokedTokenKey("jti-2")))
}

func TestRedisRevocationStoreRejectsEmptyID(t *testing.T) {
	t.Parallel()

	store, _ := newRedisStoreForTest(t)
	_, err := store.Revoke(context.Background(), " ", time.Now().Add(time.Hour))
	require.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	t.Parallel()

	mini := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mini.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = NewRedisClient(context.Background(), "not a url")
	require.Error(t, err)
}
