// Package redis caches public discovery pages in Redis.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// ErrMiss is returned by KV.Get when the key does not exist or has expired.
var ErrMiss = errors.New("cache miss")

// KV is the slice of Redis the cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// Client is the go-redis client type.
type Client = goredis.Client

// NewClient connects to addr. db selects the logical database.
func NewClient(addr, password string, db int) *Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	c *goredis.Client
}

func NewRedisKV(c *goredis.Client) *RedisKV { return &RedisKV{c: c} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Incr(ctx context.Context, key string) (int64, error) {
	return r.c.Incr(ctx, key).Result()
}
