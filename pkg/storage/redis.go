package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// RedisClient defines the Redis operations the backend needs.
// This interface is compatible with github.com/redis/go-redis/v9 through a
// thin adapter.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) RedisStatusCmd
	Get(ctx context.Context, key string) RedisStringCmd
	Del(ctx context.Context, keys ...string) RedisIntCmd
}

// RedisStatusCmd represents a Redis status command result.
type RedisStatusCmd interface {
	Err() error
}

// RedisStringCmd represents a Redis string command result.
type RedisStringCmd interface {
	Bytes() ([]byte, error)
	Err() error
}

// RedisIntCmd represents a Redis int command result.
type RedisIntCmd interface {
	Err() error
}

// ErrRedisNil is returned when a key doesn't exist in Redis.
// This should match redis.Nil from go-redis.
var ErrRedisNil = errors.New("redis: nil")

// Redis is a Redis-backed store, suitable for snapshots shared between
// several processes.
type Redis struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	closed atomic.Bool
}

// RedisOption configures Redis behavior.
type RedisOption func(*redisConfig)

type redisConfig struct {
	prefix string
	ttl    time.Duration
}

// WithRedisPrefix sets the key prefix.
// Default: "rstore:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		c.prefix = prefix
	}
}

// WithRedisTTL expires entries after d. Zero keeps them forever.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(c *redisConfig) {
		c.ttl = d
	}
}

// NewRedis creates a Redis-backed store.
func NewRedis(client RedisClient, opts ...RedisOption) *Redis {
	cfg := &redisConfig{prefix: "rstore:"}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Redis{client: client, prefix: cfg.prefix, ttl: cfg.ttl}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get reads the entry under key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, ErrRedisNil) || err.Error() == ErrRedisNil.Error() {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set writes the entry under key.
func (r *Redis) Set(ctx context.Context, key string, data []byte) error {
	if r.closed.Load() {
		return ErrClosed
	}
	return r.client.Set(ctx, r.key(key), data, r.ttl).Err()
}

// Remove deletes the entry under key.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	return r.client.Del(ctx, r.key(key)).Err()
}

// Close marks the store as closed.
// It does not close the underlying client, which may be shared.
func (r *Redis) Close() error {
	r.closed.Store(true)
	return nil
}

// Prefix returns the current key prefix.
func (r *Redis) Prefix() string {
	return r.prefix
}
