// Package ratelimit implements the API request limiter backed by Redis or process memory.
package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

const keyPrefix = "weather-tracker:ratelimit:"

// slidingWindow trims expired entries, counts the rest, and records the request
// when the count is under the limit. Scores are milliseconds.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window)
	return 1
end

return 0
`)

// RedisRateLimiter implements a sliding-window limiter shared by every instance
// that points at the same Redis.
type RedisRateLimiter struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisRateLimiter creates a new Redis-based rate limiter.
//
// Parameters:
//   - client: Redis client for distributed state
//   - logger: Zap logger for rate limiting events
//
// Returns:
//   - ports.RateLimitService: Redis rate limiter implementation
func NewRedisRateLimiter(client *redis.Client, logger *zap.Logger) ports.RateLimitService {
	return &RedisRateLimiter{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Allow checks if a request is allowed under the rate limit.
func (r *RedisRateLimiter) Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error) {
	ctx, span := otel.Tracer("ratelimit").Start(ctx, "RateLimit.Allow")
	defer span.End()

	span.SetAttributes(
		attribute.String("ratelimit.identifier", identifier),
		attribute.Int("ratelimit.limit", limit),
		attribute.String("ratelimit.window", window.String()),
	)

	now := r.now().UnixMilli()

	result, err := slidingWindow.Run(ctx, r.client,
		[]string{keyPrefix + identifier},
		limit, window.Milliseconds(), now, uuid.NewString(),
	).Int64()
	if err != nil {
		span.RecordError(err)

		r.logger.Error("rate limit eval error",
			zap.String("identifier", identifier),
			zap.Error(err))

		return false, err
	}

	allowed := result == 1
	span.SetAttributes(attribute.Bool("ratelimit.allowed", allowed))

	if !allowed {
		r.logger.Debug("rate limit exceeded",
			zap.String("identifier", identifier),
			zap.Int("limit", limit))
	}

	return allowed, nil
}

// Reset clears the rate limit history for an identifier.
func (r *RedisRateLimiter) Reset(ctx context.Context, identifier string) error {
	ctx, span := otel.Tracer("ratelimit").Start(ctx, "RateLimit.Reset")
	defer span.End()

	span.SetAttributes(attribute.String("ratelimit.identifier", identifier))

	if err := r.client.Del(ctx, keyPrefix+identifier).Err(); err != nil {
		span.RecordError(err)

		r.logger.Error("rate limit reset error",
			zap.String("identifier", identifier),
			zap.Error(err))

		return err
	}

	r.logger.Debug("rate limit reset", zap.String("identifier", identifier))

	return nil
}
