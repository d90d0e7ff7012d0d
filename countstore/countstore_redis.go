package countstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisCountPrefix string = "throttle/"

type RedisCountStore struct {
	Client *redis.Client
}

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rcs := RedisCountStore{
		Client: rdb,
	}
	return &rcs, nil
}

func (s *RedisCountStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int, error) {
	k := redisCountPrefix + key

	// increment and set expiry in a single redis round-trip; NX keeps
	// the expiry set by the first increment of the window
	multi := s.Client.Pipeline()
	incr := multi.Incr(ctx, k)
	multi.ExpireNX(ctx, k, window)
	if _, err := multi.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}
