package stores

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/liut/parley/pkg/settings"
)

type RedisClient = redis.UniversalClient

var (
	rcOnce sync.Once
	rcu    RedisClient
)

// NewRedisClient parse uri and ping
func NewRedisClient(ctx context.Context, redisURI string) (RedisClient, error) {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, err
	}
	rc := redis.NewClient(opt)
	if err = rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}

// SgtRC start return a singleton instance of redis client
func SgtRC() RedisClient {
	rcOnce.Do(func() {
		redisURI := settings.Current.RedisURI
		var err error
		rcu, err = NewRedisClient(context.Background(), redisURI)
		if err != nil {
			logger().Panicw("connect redis fail", "uri", redisURI, "err", err)
		}
	})

	return rcu
}
