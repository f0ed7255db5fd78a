package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production lockout counter, shared across instances.
type RedisStore struct {
	client *redis.Client
	window time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, window: DefaultWindow}
}

func (s *RedisStore) RecordFailure(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr lockout counter: %w", err)
	}
	if count == 1 {
		// First failure starts the window; later failures ride the same expiry.
		if err := s.client.Expire(ctx, key, s.window).Err(); err != nil {
			return count, fmt.Errorf("expire lockout counter: %w", err)
		}
	}
	return count, nil
}

func (s *RedisStore) Failures(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get lockout counter: %w", err)
	}
	return count, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear lockout counter: %w", err)
	}
	return nil
}
