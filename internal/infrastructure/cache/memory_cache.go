// Package cache holds the geocoding result caches: a bounded in-process cache
// and a Redis cache shared between replicas.
package cache

import (
	"context"
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

// MemoryCache is a size-bounded go-cache. Inserting a new key into a full
// cache first drops expired entries, then the entry closest to expiry.
type MemoryCache struct {
	cache    *gocache.Cache
	maxItems int
	logger   *zap.Logger

	// serializes the capacity check with the insert
	mu sync.Mutex
}

// NewMemoryCache creates an in-process cache.
//
// Parameters:
//   - defaultTTL: TTL applied when Set is called with ttl 0
//   - cleanupInterval: How often expired entries are purged in the background
//   - maxItems: Upper bound on stored entries, <= 0 for unbounded
//   - logger: Zap logger for cache operations
//
// Returns:
//   - ports.CacheService: In-memory cache implementation
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration, maxItems int, logger *zap.Logger) ports.CacheService {
	return &MemoryCache{
		cache:    gocache.New(defaultTTL, cleanupInterval),
		maxItems: maxItems,
		logger:   logger,
	}
}

func startSpan(ctx context.Context, operation, key string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("cache").Start(ctx, operation)
	if key != "" {
		span.SetAttributes(attribute.String("cache.key", key))
	}

	return ctx, span
}

// Get returns ErrCacheMiss when key is absent or expired.
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := startSpan(ctx, "MemoryCache.Get", key)
	defer span.End()

	value, found := m.cache.Get(key)
	span.SetAttributes(attribute.Bool("cache.hit", found))

	if !found {
		return nil, ErrCacheMiss
	}

	return value.([]byte), nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, span := startSpan(ctx, "MemoryCache.Set", key)
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.cache.Get(key); !exists && m.full() {
		m.evict()
	}

	m.cache.Set(key, value, ttl)

	return nil
}

func (m *MemoryCache) full() bool {
	return m.maxItems > 0 && m.cache.ItemCount() >= m.maxItems
}

func (m *MemoryCache) evict() {
	m.cache.DeleteExpired()

	if !m.full() {
		return
	}

	var (
		victim  string
		soonest int64 = math.MaxInt64
	)

	for key, item := range m.cache.Items() {
		// entries without expiration go last
		expiration := item.Expiration
		if expiration == 0 {
			expiration = math.MaxInt64
		}

		if victim == "" || expiration < soonest {
			victim, soonest = key, expiration
		}
	}

	m.cache.Delete(victim)
	m.logger.Debug("geocoding cache full, evicted entry", zap.String("key", victim), zap.Int("max_items", m.maxItems))
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	_, span := startSpan(ctx, "MemoryCache.Delete", key)
	defer span.End()

	m.cache.Delete(key)

	return nil
}

// Clear drops every entry.
func (m *MemoryCache) Clear(ctx context.Context) error {
	_, span := startSpan(ctx, "MemoryCache.Clear", "")
	defer span.End()

	m.cache.Flush()
	m.logger.Info("memory cache cleared")

	return nil
}
