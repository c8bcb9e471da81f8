package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenKeyPrefix = "auth:revoked_token:"

// RedisRevocationStore keeps revoked token IDs in redis with a TTL matching
// the remaining token lifetime, so entries expire on their own.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore creates a revocation store backed by redis
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

// Revoke marks a token ID as revoked for the given duration
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, revokedTokenKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revoked token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token ID has been revoked
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedTokenKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return n > 0, nil
}
