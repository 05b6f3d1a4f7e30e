package adapter

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
)

// RedisCounter counts events in fixed windows with INCR and PEXPIRE
type RedisCounter struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCounter connects to url (redis://...) and verifies connectivity
func NewRedisCounter(ctx context.Context, url, prefix string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid redis url")
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, goerr.Wrap(err, "redis ping failed", goerr.V("addr", opts.Addr))
	}

	return &RedisCounter{rdb: rdb, prefix: prefix}, nil
}

// Incr increments the counter of key in the current window and returns the new value.
// The first increment of a window sets its expiry.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	slot := time.Now().UnixNano() / int64(window)
	fullKey := c.prefix + key + ":" + time.Unix(0, slot*int64(window)).UTC().Format(time.RFC3339)

	count, err := c.rdb.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to increment counter", goerr.V("key", fullKey))
	}

	if count == 1 {
		if err := c.rdb.PExpire(ctx, fullKey, window+time.Second).Err(); err != nil {
			return count, goerr.Wrap(err, "failed to set counter expiry", goerr.V("key", fullKey))
		}
	}

	return count, nil
}

func (c *RedisCounter) Close() error {
	return c.rdb.Close()
}
