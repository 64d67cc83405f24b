package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const redisNamePrefix = "zzxbot/name/"

// Uses redis as a shared cache for display name lookups, so that restarts (or several bot processes) don't all hammer the platform API.
//
// Includes an in-process TinyLFU cache as well (provided by the redis cache library), for hot keys.
type RedisDirectory struct {
	Inner  Directory
	HitTTL time.Duration
	ErrTTL time.Duration

	names  *cache.Cache
	flight singleflight.Group
}

// errors don't round-trip through msgpack, so cached failures are stored as a message
type redisNameEntry struct {
	Updated time.Time
	Name    string
	Err     string
}

var _ Directory = (*RedisDirectory)(nil)

func NewRedisDirectory(inner Directory, rdb *redis.Client, hitTTL, errTTL time.Duration, lruSize int) (*RedisDirectory, error) {
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to redis name cache: %w", err)
	}
	return &RedisDirectory{
		Inner:  inner,
		HitTTL: hitTTL,
		ErrTTL: errTTL,
		names: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(lruSize, hitTTL),
		}),
	}, nil
}

func (d *RedisDirectory) LookupName(ctx context.Context, userID string) (string, error) {
	var entry redisNameEntry
	err := d.names.Get(ctx, redisNamePrefix+userID, &entry)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return "", fmt.Errorf("name cache: %w", err)
	}
	if err == nil && (entry.Err == "" || time.Since(entry.Updated) < d.ErrTTL) {
		nameCacheHits.WithLabelValues("redis").Inc()
		if entry.Err != "" {
			return "", errors.New(entry.Err)
		}
		return entry.Name, nil
	}
	nameCacheMisses.WithLabelValues("redis").Inc()

	v, err, shared := d.flight.Do(userID, func() (any, error) {
		name, err := d.Inner.LookupName(ctx, userID)
		e := redisNameEntry{Updated: time.Now(), Name: name}
		ttl := d.HitTTL
		if err != nil {
			e.Err = err.Error()
			ttl = d.ErrTTL
		}
		if ctx.Err() == nil {
			if serr := d.names.Set(&cache.Item{
				Ctx:   ctx,
				Key:   redisNamePrefix + userID,
				Value: e,
				TTL:   ttl,
			}); serr != nil {
				return "", fmt.Errorf("name cache: %w", serr)
			}
		}
		return name, err
	})
	if shared {
		nameLookupsCoalesced.WithLabelValues("redis").Inc()
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (d *RedisDirectory) Purge(ctx context.Context, userID string) error {
	err := d.names.Delete(ctx, redisNamePrefix+userID)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return err
	}
	return d.Inner.Purge(ctx, userID)
}
