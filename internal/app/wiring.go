package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/adapters/secondary/memory"
	"github.com/sean-rowe/weather-tracker/internal/adapters/secondary/openmeteo"
	"github.com/sean-rowe/weather-tracker/internal/config"
	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
	"github.com/sean-rowe/weather-tracker/internal/core/services"
	"github.com/sean-rowe/weather-tracker/internal/infrastructure/cache"
	"github.com/sean-rowe/weather-tracker/internal/infrastructure/circuitbreaker"
	"github.com/sean-rowe/weather-tracker/internal/infrastructure/database"
	"github.com/sean-rowe/weather-tracker/internal/infrastructure/mongodb"
	"github.com/sean-rowe/weather-tracker/internal/infrastructure/ratelimit"
	"github.com/sean-rowe/weather-tracker/internal/observability"
	"github.com/sean-rowe/weather-tracker/internal/version"
)

const (
	providerBreakerName  = "open-meteo"
	cacheCleanupInterval = 10 * time.Minute
)

// storeBackend is the selected persistence for locations and snapshots.
type storeBackend struct {
	driver    string
	locations ports.LocationRegistry
	snapshots ports.SnapshotStore
	ping      func(ctx context.Context) error
}

// initTelemetry initializes OpenTelemetry providers.
func (a *App) initTelemetry(ctx context.Context) error {
	serviceName := a.cfg.Observability.ServiceName
	if serviceName == "" {
		serviceName = version.Service
	}

	telemetry, err := observability.InitTelemetry(ctx, observability.Config{
		ServiceName:    serviceName,
		ServiceVersion: a.cfg.Observability.ServiceVersion,
		Environment:    a.cfg.Server.Environment,
		OTLPEndpoint:   a.cfg.Observability.OTLPEndpoint,
		SampleRate:     a.cfg.Observability.SampleRate,
	}, a.logger)
	if err != nil {
		return err
	}

	a.telemetry = telemetry

	return nil
}

// initStore connects the configured persistence backend.
// Unlike the cache and rate limiter there is no fallback: a configured database that
// cannot be reached is a startup error.
func (a *App) initStore(ctx context.Context) (*storeBackend, error) {
	switch a.cfg.Store.Driver {
	case config.StorePostgres:
		return a.initPostgres()
	case config.StoreMongo:
		return a.initMongo(ctx)
	default:
		a.logger.Info("using in-memory store", zap.Int("max_history", a.cfg.Store.MaxHistory))

		return &storeBackend{
			driver:    config.StoreMemory,
			locations: memory.NewLocationRegistry(),
			snapshots: memory.NewSnapshotStore(a.cfg.Store.MaxHistory),
			ping:      func(context.Context) error { return nil },
		}, nil
	}
}

func (a *App) initPostgres() (*storeBackend, error) {
	db := a.cfg.Database

	pg, err := database.NewPostgresDB(database.Config{
		Host:                  db.Host,
		Port:                  db.Port,
		User:                  db.User,
		Password:              db.Password,
		Database:              db.Database,
		SSLMode:               db.SSLMode,
		MaxConnections:        db.MaxConnections,
		MaxIdleConnections:    db.MaxIdleConnections,
		ConnectionMaxLifetime: db.ConnectionMaxLifetime,
		AutoMigrate:           db.AutoMigrate,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if a.telemetry != nil {
		pg.SetRecorder(a.telemetry)
	}

	a.addCloser("postgres", func(context.Context) error { return pg.Close() })

	a.logger.Info("using postgres store",
		zap.String("host", db.Host),
		zap.String("database", db.Database))

	return &storeBackend{
		driver:    config.StorePostgres,
		locations: database.NewLocationRepository(pg),
		snapshots: database.NewSnapshotRepository(pg),
		ping:      pg.Ping,
	}, nil
}

func (a *App) initMongo(ctx context.Context) (*storeBackend, error) {
	mc := a.cfg.Mongo

	client, err := mongodb.Connect(ctx, mongodb.Config{
		URI:            mc.URI,
		Database:       mc.Database,
		Username:       mc.Username,
		Password:       mc.Password,
		AuthSource:     mc.AuthSource,
		ConnectTimeout: mc.ConnectTimeout,
	}, a.logger)
	if err != nil {
		return nil, err
	}

	a.addCloser("mongodb", func(ctx context.Context) error {
		return mongodb.Disconnect(ctx, client, a.logger)
	})

	db := client.Database(mc.Database)

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to create mongodb indexes: %w", err)
	}

	return &storeBackend{
		driver:    config.StoreMongo,
		locations: mongodb.NewLocationStore(db),
		snapshots: mongodb.NewSnapshotStore(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
	}, nil
}

// initRedisServices initializes Redis-based or memory-based cache and rate limiting.
// An unreachable Redis degrades to the in-process implementations.
//
// Returns:
//   - ports.CacheService: Geocoding cache (Redis or memory)
//   - ports.RateLimitService: API rate limiter (Redis or memory)
func (a *App) initRedisServices(ctx context.Context) (ports.CacheService, ports.RateLimitService) {
	if !a.cfg.Redis.Enabled {
		a.logger.Info("Redis disabled, using memory-based services")
		return a.memoryServices()
	}

	rc := a.cfg.Redis

	client, err := cache.NewRedisClient(ctx, cache.Config{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		MaxRetries:   rc.MaxRetries,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})
	if err != nil {
		a.logger.Warn("Redis connection failed, falling back to memory-based services", zap.Error(err))
		return a.memoryServices()
	}

	a.logger.Info("Redis connected successfully", zap.String("addr", rc.Addr))
	a.addCloser("redis", func(context.Context) error { return client.Close() })

	return cache.NewRedisCache(client, a.logger), ratelimit.NewRedisRateLimiter(client, a.logger)
}

func (a *App) memoryServices() (ports.CacheService, ports.RateLimitService) {
	memCache := cache.NewMemoryCache(
		a.cfg.Provider.GeocodeCacheTTL,
		cacheCleanupInterval,
		a.cfg.Provider.GeocodeCacheSize,
		a.logger,
	)

	limiter := ratelimit.NewMemoryRateLimiter(a.cfg.RateLimit.Window, a.logger)
	a.addCloser("rate-limiter", func(context.Context) error {
		limiter.Close()
		return nil
	})

	return memCache, limiter
}

// initWeatherProvider creates the Open-Meteo client with circuit breaker protection.
func (a *App) initWeatherProvider(cacheService ports.CacheService) ports.WeatherProvider {
	pc := a.cfg.Provider

	client := openmeteo.NewClient(openmeteo.Config{
		ForecastBaseURL:   pc.ForecastBaseURL,
		GeocodingBaseURL:  pc.GeocodingBaseURL,
		UserAgent:         pc.UserAgent,
		RequestsPerSecond: pc.RequestsPerSecond,
		Burst:             pc.Burst,
		GeocodeCacheTTL:   pc.GeocodeCacheTTL,
	}, &http.Client{Timeout: pc.HTTPTimeout}, cacheService, a.logger)

	breaker := a.breakers.GetBreaker(providerBreakerName, circuitbreaker.Config{
		MaxRequests:  pc.Breaker.MaxRequests,
		Interval:     pc.Breaker.Interval,
		Timeout:      pc.Breaker.Timeout,
		MinRequests:  pc.Breaker.MinRequests,
		FailureRatio: pc.Breaker.FailureRatio,
		IsSuccessful: breakerCountsAsSuccess,
	})

	var recorder ProviderRecorder
	if a.telemetry != nil {
		recorder = a.telemetry
	}

	return NewCircuitBreakerProvider(client, breaker, recorder)
}

func (a *App) initServices(store *storeBackend, provider ports.WeatherProvider) components {
	preferences := services.NewPreferenceService(domain.Units(a.cfg.Preferences.DefaultUnits), a.logger)

	detector := services.NewConflictDetector(services.ConflictPolicy{
		TemperatureThreshold: a.cfg.Sync.ConflictThreshold,
		Window:               a.cfg.Sync.ConflictWindow,
	})

	engine := services.NewSyncEngine(
		store.locations,
		store.snapshots,
		provider,
		preferences,
		detector,
		services.SyncConfig{
			MaxConcurrency:  a.cfg.Sync.MaxConcurrency,
			StaleAfter:      a.cfg.Sync.StaleAfter,
			ProviderTimeout: a.cfg.Sync.ProviderTimeout,
		},
		a.logger,
	)

	if a.telemetry != nil {
		engine.SetMetrics(a.telemetry)
	}

	return components{
		sync:        engine,
		locations:   services.NewLocationService(store.locations, store.snapshots, a.logger),
		preferences: preferences,
	}
}
