package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/studyrank/internal/adapters/cache"
	"github.com/okian/studyrank/internal/adapters/repository"
	app "github.com/okian/studyrank/internal/app"
	"github.com/okian/studyrank/internal/config"
	"github.com/okian/studyrank/pkg/logger"
)

const redisPingTimeout = 3 * time.Second

// openStore opens the configured database and, when a seed file is
// configured, applies it.
func openStore(ctx context.Context, cfg *config.Config) (*repository.SQLStore, error) {
	store, err := repository.NewSQLStore(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if cfg.SeedFile == "" {
		return store, nil
	}
	ds, err := repository.LoadDataset(cfg.SeedFile)
	if err == nil {
		_, err = store.Seed(ctx, ds)
	}
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
	}
	return store, nil
}

// openCache builds the configured ranking cache. An unreachable Redis falls
// back to the in-memory cache.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, string) {
	memory := func() (cache.Cache, string) {
		return cache.NewMemory(cache.WithMaxSize(cfg.CacheSize), cache.WithTTL(cfg.CacheTTL())), config.CacheMemory
	}

	switch cfg.CacheBackend {
	case config.CacheMemory:
		return memory()
	case config.CacheRedis:
		rc := cache.NewRedis(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), cache.WithTTL(cfg.CacheTTL()))

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			logger.Get().Warn(ctx, "redis unavailable; using in-memory cache",
				logger.String("addr", cfg.RedisAddr), logger.Error(err))
			_ = rc.Close()
			return memory()
		}
		return rc, config.CacheRedis
	default:
		return cache.Nop{}, config.CacheNone
	}
}

// newService wires the store and, when withCache is set, the ranking cache.
func newService(ctx context.Context, cfg *config.Config, withCache bool) (*app.Service, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []app.Option{
		app.WithLogger(logger.Named("service")),
		app.WithParallelism(cfg.ScoringParallelism),
		app.WithMaxLimit(cfg.MaxRankingsLimit),
	}
	if withCache {
		c, backend := openCache(ctx, cfg)
		opts = append(opts, app.WithCache(c, backend))
	}
	return app.New(store, opts...), nil
}
