// Package ports declares the interfaces between the core services and their adapters.
package ports

import (
	"context"
	"time"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
)

// WeatherProvider fetches forecasts and geocodes city names from the upstream weather API.
// Implementations translate every failure into a *domain.WeatherError.
type WeatherProvider interface {
	// FetchWeather returns a snapshot without ID, LocationID or conflict fields set.
	FetchWeather(ctx context.Context, coords domain.Coordinates, units domain.Units) (*domain.WeatherSnapshot, error)

	// SearchLocations returns candidate cities, or an INVALID_CITY error when none match.
	SearchLocations(ctx context.Context, query string) ([]domain.GeocodingResult, error)
}

// SnapshotStore persists immutable weather snapshots.
type SnapshotStore interface {
	// FindLatestByLocation returns (nil, nil) when the location has no snapshot.
	FindLatestByLocation(ctx context.Context, locationID string) (*domain.WeatherSnapshot, error)

	// FindByLocation returns one page of snapshots, newest first, and the total count.
	FindByLocation(ctx context.Context, locationID string, page, size int) ([]domain.WeatherSnapshot, int, error)

	Save(ctx context.Context, snapshot *domain.WeatherSnapshot) error
	DeleteByLocation(ctx context.Context, locationID string) error
}

// LocationRegistry persists tracked locations.
type LocationRegistry interface {
	// FindByID returns (nil, nil) when the location does not exist.
	FindByID(ctx context.Context, id string) (*domain.TrackedLocation, error)
	FindAll(ctx context.Context) ([]domain.TrackedLocation, error)

	// Save inserts or replaces the location by ID.
	Save(ctx context.Context, location *domain.TrackedLocation) error

	// UpdateSyncStatus sets the sync status and UpdatedAt of an existing location.
	// A nil lastSyncAt keeps the stored value. It never creates a location and
	// reports false when id is unknown.
	UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus, lastSyncAt *time.Time, at time.Time) (bool, error)

	Delete(ctx context.Context, id string) error
}

// PreferenceProvider resolves the measurement system for the next sync.
type PreferenceProvider interface {
	EffectiveUnits(ctx context.Context) domain.Units
}

// CacheService is a byte-oriented key/value cache with per-entry TTL.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// RateLimitService decides whether a client may issue another request in the current window.
type RateLimitService interface {
	Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error)
	Reset(ctx context.Context, identifier string) error
}

// SyncMetrics receives sync outcomes for instrumentation.
type SyncMetrics interface {
	RecordSync(ctx context.Context, result domain.SyncResult, duration time.Duration)
}
