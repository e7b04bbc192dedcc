package ports

import (
	"context"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
)

// SyncService drives weather synchronization and serves stored snapshots.
type SyncService interface {
	SyncOne(ctx context.Context, locationID string) (domain.SyncResult, error)
	SyncAll(ctx context.Context) ([]domain.SyncResult, error)
	ScheduledSync(ctx context.Context) ([]domain.SyncResult, error)
	GetLatestWeather(ctx context.Context, locationID string) (*domain.WeatherSnapshot, error)
	GetHistory(ctx context.Context, locationID string, page, size int) ([]domain.WeatherSnapshot, int, error)
	SearchCities(ctx context.Context, query string) ([]domain.GeocodingResult, error)
}

// CreateLocationInput is the user supplied data for a new tracked location.
type CreateLocationInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Country     string  `json:"country" validate:"required,max=100"`
	CountryCode string  `json:"countryCode" validate:"omitempty,len=2"`
	Admin1      string  `json:"admin1" validate:"max=200"`
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Favorite    bool    `json:"favorite"`
}

// UpdateLocationInput carries the user editable fields. Nil fields are left unchanged.
type UpdateLocationInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Favorite *bool   `json:"favorite"`
}

// LocationService manages the set of tracked locations.
type LocationService interface {
	Create(ctx context.Context, input CreateLocationInput) (*domain.TrackedLocation, error)
	Get(ctx context.Context, id string) (*domain.TrackedLocation, error)
	List(ctx context.Context) ([]domain.TrackedLocation, error)
	Update(ctx context.Context, id string, input UpdateLocationInput) (*domain.TrackedLocation, error)
	Delete(ctx context.Context, id string) error
}

// PreferenceService exposes the user's unit preference.
type PreferenceService interface {
	PreferenceProvider
	SetUnits(ctx context.Context, units domain.Units) error
}
