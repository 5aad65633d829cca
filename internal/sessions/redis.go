package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenKeyPrefix = "token:"

// RedisStore keeps each session under token:<token> with a native TTL.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore creates a new instance of RedisStore.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Issue stores token:<token> with the store's TTL.
func (s *RedisStore) Issue(ctx context.Context, email string) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, tokenKeyPrefix+token, email, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Resolve returns the email under token:<token>; redis drops expired keys.
func (s *RedisStore) Resolve(ctx context.Context, token string) (string, error) {
	email, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	return email, nil
}
