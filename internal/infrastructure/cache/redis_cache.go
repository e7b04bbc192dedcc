package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

// ErrCacheMiss indicates a cache key was not found.
var ErrCacheMiss = redis.Nil

const (
	redisKeyPrefix = "weather-tracker:cache:"
	clearBatchSize = 500
)

// RedisCache stores entries under a fixed key prefix so it can share a database
// with the rate limiter.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// Config holds Redis connection and performance settings.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient opens a client and verifies it with a ping.
//
// Parameters:
//   - ctx: Context bounding the ping
//   - cfg: Redis connection configuration
//
// Returns:
//   - *redis.Client: Connected client
//   - error: Ping error if Redis is unavailable
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}

// NewRedisCache creates a cache on an existing client. The caller owns the client.
func NewRedisCache(client *redis.Client, logger *zap.Logger) ports.CacheService {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

// Get returns ErrCacheMiss when key is absent.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := startSpan(ctx, "RedisCache.Get", key)
	defer span.End()

	val, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		r.logger.Debug("cache miss", zap.String("key", key))

		return nil, ErrCacheMiss
	}

	if err != nil {
		span.RecordError(err)
		r.logger.Error("cache get error", zap.String("key", key), zap.Error(err))

		return nil, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	r.logger.Debug("cache hit", zap.String("key", key))

	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := startSpan(ctx, "RedisCache.Set", key)
	defer span.End()

	span.SetAttributes(attribute.Int("cache.value_size", len(value)))

	if err := r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		span.RecordError(err)
		r.logger.Error("cache set error", zap.String("key", key), zap.Error(err))

		return err
	}

	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	ctx, span := startSpan(ctx, "RedisCache.Delete", key)
	defer span.End()

	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		span.RecordError(err)
		r.logger.Error("cache delete error", zap.String("key", key), zap.Error(err))

		return err
	}

	return nil
}

// Clear removes every entry under the cache prefix and leaves other keys alone.
func (r *RedisCache) Clear(ctx context.Context) error {
	ctx, span := startSpan(ctx, "RedisCache.Clear", "")
	defer span.End()

	start := time.Now()
	removed := 0

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", clearBatchSize).Iterator()
	batch := make([]string, 0, clearBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return err
		}

		removed += len(batch)
		batch = batch[:0]

		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())

		if len(batch) == clearBatchSize {
			if err := flush(); err != nil {
				span.RecordError(err)
				return err
			}
		}
	}

	if err := iter.Err(); err != nil {
		span.RecordError(err)
		r.logger.Error("cache clear error", zap.Error(err))

		return err
	}

	if err := flush(); err != nil {
		span.RecordError(err)
		return err
	}

	r.logger.Info("cache cleared", zap.Int("keys", removed), zap.Duration("duration", time.Since(start)))

	return nil
}
