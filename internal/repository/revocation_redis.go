package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = "revoked_token:"

// minRevocationTTL keeps entries for tokens that are already at or past
// expiry long enough to cover clock skew between nodes.
const minRevocationTTL = time.Minute

// RedisRevocationStore keeps revoked refresh-token ids as keys that expire
// together with the token itself.
type RedisRevocationStore struct {
	client *goredis.Client
	now    func() time.Time
}

func NewRedisRevocationStore(client *goredis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

// NewRedisClient parses a redis:// URL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	if s.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(tokenID) == "" {
		return false, fmt.Errorf("token id is required")
	}

	ttl := expiresAt.Sub(s.now())
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}

	claimed, err := s.client.SetNX(ctx, revokedTokenKey(tokenID), expiresAt.Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("revoke token in redis: %w", err)
	}
	return claimed, nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	n, err := s.client.Exists(ctx, revokedTokenKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token in redis: %w", err)
	}
	return n > 0, nil
}

func revokedTokenKey(tokenID string) string {
	return revokedTokenPrefix + tokenID
}
