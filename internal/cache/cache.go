// Package cache keeps catalog materials close to the estimate handlers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Simplici0/printshop/internal/store"
)

// Materials caches materials by id.
type Materials interface {
	Get(ctx context.Context, id int64) (store.Material, bool)
	Set(ctx context.Context, m store.Material)
	Invalidate(ctx context.Context, id int64)
	Close() error
}

// Noop is used when no redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, int64) (store.Material, bool) { return store.Material{}, false }
func (Noop) Set(context.Context, store.Material)               {}
func (Noop) Invalidate(context.Context, int64)                 {}
func (Noop) Close() error                                      { return nil }

// Redis is a redis-backed Materials cache. Cache failures are logged and
// treated as misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// Options configures NewRedis.
type Options struct {
	Addr           string
	Password       string
	DB             int
	TTL            time.Duration
	MaxElapsedTime time.Duration
}

// NewRedis connects to redis, retrying the initial ping with exponential backoff.
func NewRedis(ctx context.Context, opts Options, logger *zap.Logger) (*Redis, error) {
	const operation = "cache.NewRedis"

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     20,
		MinIdleConns: 2,
	})

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = opts.MaxElapsedTime
	if policy.MaxElapsedTime == 0 {
		policy.MaxElapsedTime = 30 * time.Second
	}
	policy.MaxInterval = 5 * time.Second

	err := backoff.RetryNotify(
		func() error {
			return client.Ping(ctx).Err()
		},
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			logger.Warn("redis ping failed, retrying",
				zap.String("addr", opts.Addr),
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: connect after retries: %w", operation, err)
	}

	logger.Info("connected to redis", zap.String("addr", opts.Addr))
	return &Redis{client: client, ttl: opts.TTL, logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, id int64) (store.Material, bool) {
	data, err := r.client.Get(ctx, materialKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.Material{}, false
	}
	if err != nil {
		r.logger.Warn("material cache get failed", zap.Int64("material_id", id), zap.Error(err))
		return store.Material{}, false
	}

	var m store.Material
	if err := json.Unmarshal(data, &m); err != nil {
		r.logger.Warn("material cache entry corrupt", zap.Int64("material_id", id), zap.Error(err))
		return store.Material{}, false
	}
	return m, true
}

func (r *Redis) Set(ctx context.Context, m store.Material) {
	data, err := json.Marshal(m)
	if err != nil {
		r.logger.Warn("marshal material for cache", zap.Int64("material_id", m.ID), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, materialKey(m.ID), data, r.ttl).Err(); err != nil {
		r.logger.Warn("material cache set failed", zap.Int64("material_id", m.ID), zap.Error(err))
	}
}

func (r *Redis) Invalidate(ctx context.Context, id int64) {
	if err := r.client.Del(ctx, materialKey(id)).Err(); err != nil {
		r.logger.Warn("material cache invalidate failed", zap.Int64("material_id", id), zap.Error(err))
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func materialKey(id int64) string {
	return fmt.Sprintf("material:%d", id)
}
