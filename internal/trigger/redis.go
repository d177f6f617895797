package trigger

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/ShenMinX/duallauncher/internal/profile"
)

// RedisSource reads trigger flags from Redis. The client connects lazily, so
// constructing one never fails; reachability surfaces through Ping.
type RedisSource struct {
	client *redis.Client
}

func NewRedisSource(settings profile.RedisSettings) *RedisSource {
	return &RedisSource{client: redis.NewClient(&redis.Options{
		Addr:     settings.Addr(),
		DB:       settings.DB,
		Password: settings.Password,
	})}
}

func (s *RedisSource) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get returns "" with no error for a missing key: absent means stop, which is
// not a fault.
func (s *RedisSource) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (s *RedisSource) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (s *RedisSource) Close() error { return s.client.Close() }
