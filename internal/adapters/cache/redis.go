package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 256

// Redis stores entries in a shared Redis so several instances reuse rankings.
type Redis struct {
	client redis.UniversalClient
	cfg    settings
}

// NewRedis wraps an existing client. Keys are namespaced by the key prefix.
func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Redis{client: client, cfg: cfg}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w: %w", ErrCacheUnavailable, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.cfg.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w: %w", key, ErrCacheUnavailable, err)
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.cfg.prefix+key, value, r.cfg.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w: %w", key, ErrCacheUnavailable, err)
	}
	return nil
}

func (r *Redis) Purge(ctx context.Context) error {
	return r.scan(ctx, func(keys []string) error {
		return r.client.Del(ctx, keys...).Err()
	})
}

func (r *Redis) Size(ctx context.Context) (int64, error) {
	var n int64
	err := r.scan(ctx, func(keys []string) error {
		n += int64(len(keys))
		return nil
	})
	return n, err
}

// scan visits the keys under the prefix in batches.
func (r *Redis) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.cfg.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan: %w: %w", ErrCacheUnavailable, err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return fmt.Errorf("scan batch: %w: %w", ErrCacheUnavailable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
