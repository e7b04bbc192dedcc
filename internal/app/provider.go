package app

import (
	"context"
	"errors"
	"time"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
	"github.com/sean-rowe/weather-tracker/internal/infrastructure/circuitbreaker"
)

// ProviderRecorder receives one observation per provider call.
type ProviderRecorder interface {
	RecordProviderCall(ctx context.Context, operation string, duration time.Duration, err error)
}

// CircuitBreakerProvider wraps a weather provider with circuit breaker protection
// to provide fault tolerance for external API calls.
type CircuitBreakerProvider struct {
	provider ports.WeatherProvider
	cb       *circuitbreaker.Breaker
	recorder ProviderRecorder
}

var _ ports.WeatherProvider = (*CircuitBreakerProvider)(nil)

// NewCircuitBreakerProvider decorates provider with cb. recorder may be nil.
func NewCircuitBreakerProvider(provider ports.WeatherProvider, cb *circuitbreaker.Breaker, recorder ProviderRecorder) *CircuitBreakerProvider {
	return &CircuitBreakerProvider{provider: provider, cb: cb, recorder: recorder}
}

// FetchWeather retrieves a forecast with circuit breaker protection.
// A rejected call is reported as PROVIDER_UNAVAILABLE.
func (c *CircuitBreakerProvider) FetchWeather(ctx context.Context, coords domain.Coordinates, units domain.Units) (*domain.WeatherSnapshot, error) {
	var result *domain.WeatherSnapshot

	err := c.execute(ctx, "fetch-weather", func() error {
		var err error
		result, err = c.provider.FetchWeather(ctx, coords, units)

		return err
	})

	return result, err
}

// SearchLocations geocodes a query with circuit breaker protection.
func (c *CircuitBreakerProvider) SearchLocations(ctx context.Context, query string) ([]domain.GeocodingResult, error) {
	var result []domain.GeocodingResult

	err := c.execute(ctx, "search-locations", func() error {
		var err error
		result, err = c.provider.SearchLocations(ctx, query)

		return err
	})

	return result, err
}

func (c *CircuitBreakerProvider) execute(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()

	err := translateRejection(c.cb.Execute(ctx, operation, fn))

	if c.recorder != nil {
		c.recorder.RecordProviderCall(ctx, operation, time.Since(start), err)
	}

	return err
}

// breakerCountsAsSuccess keeps caller-side errors (bad city, 4xx, 429) from opening the breaker.
func breakerCountsAsSuccess(err error) bool {
	return !errors.Is(err, domain.ErrProviderUnavailable)
}

func translateRejection(err error) error {
	if err != nil && circuitbreaker.IsRejection(err) {
		return domain.ProviderUnavailable("weather provider temporarily disabled after repeated failures", err)
	}

	return err
}
