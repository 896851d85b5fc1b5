package stores

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	rc       RedisClient
	lifetime time.Duration
}

// NewRedisStore keys expire after lifetime, 0 for no expiry
func NewRedisStore(rc RedisClient, lifetime time.Duration) SessionStore {
	return &redisStore{rc: rc, lifetime: lifetime}
}

func (s *redisStore) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rc.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	return b, err
}

func (s *redisStore) Save(ctx context.Context, key string, data []byte) error {
	return s.rc.Set(ctx, key, data, s.lifetime).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.rc.Del(ctx, key).Err()
}
