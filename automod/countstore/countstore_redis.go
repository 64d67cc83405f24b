package countstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisCountPrefix    = "zzxbot/count/"
	redisDistinctPrefix = "zzxbot/distinct/"
)

// CountStore backed by redis, for counters which survive restarts. Hour and day buckets expire on their own; totals never do.
type RedisCountStore struct {
	Client *redis.Client
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(ctx context.Context, rdb *redis.Client) (*RedisCountStore, error) {
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	return &RedisCountStore{Client: rdb}, nil
}

func bucketTTL(period string) time.Duration {
	switch period {
	case PeriodHour:
		return 2 * time.Hour
	case PeriodDay:
		return 48 * time.Hour
	default:
		return 0
	}
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	key := redisCountPrefix + periodBucket(time.Now(), name, val, period)
	c, err := s.Client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return c, err
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	now := time.Now()
	// all buckets in a single round-trip
	multi := s.Client.TxPipeline()
	for _, p := range AllPeriods {
		key := redisCountPrefix + periodBucket(now, name, val, p)
		multi.Incr(ctx, key)
		if ttl := bucketTTL(p); ttl > 0 {
			multi.Expire(ctx, key, ttl)
		}
	}
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	key := redisDistinctPrefix + periodBucket(time.Now(), name, bucket, period)
	c, err := s.Client.PFCount(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return int(c), err
}

func (s *RedisCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	now := time.Now()
	multi := s.Client.TxPipeline()
	for _, p := range AllPeriods {
		key := redisDistinctPrefix + periodBucket(now, name, bucket, p)
		multi.PFAdd(ctx, key, val)
		if ttl := bucketTTL(p); ttl > 0 {
			multi.Expire(ctx, key, ttl)
		}
	}
	_, err := multi.Exec(ctx)
	return err
}
