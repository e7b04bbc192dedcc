package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
)

// MockWeatherProvider is a mock implementation of the WeatherProvider interface.
type MockWeatherProvider struct {
	mock.Mock
}

func (m *MockWeatherProvider) FetchWeather(ctx context.Context, coords domain.Coordinates, units domain.Units) (*domain.WeatherSnapshot, error) {
	args := m.Called(ctx, coords, units)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.WeatherSnapshot), args.Error(1)
}

func (m *MockWeatherProvider) SearchLocations(ctx context.Context, query string) ([]domain.GeocodingResult, error) {
	args := m.Called(ctx, query)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.GeocodingResult), args.Error(1)
}

// MockSyncMetrics is a mock implementation of the SyncMetrics interface.
type MockSyncMetrics struct {
	mock.Mock
}

func (m *MockSyncMetrics) RecordSync(ctx context.Context, result domain.SyncResult, duration time.Duration) {
	m.Called(ctx, result, duration)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func snapshotAt(temperature float64) *domain.WeatherSnapshot {
	humidity := 34
	code := 2

	return &domain.WeatherSnapshot{
		Current: &domain.CurrentConditions{
			Temperature: &temperature,
			Humidity:    &humidity,
			WeatherCode: &code,
			Description: domain.DescribeWeatherCode(&code),
		},
		Hourly:   []domain.HourlyPoint{},
		Daily:    []domain.DailyPoint{},
		Units:    domain.Metric,
		Timezone: "Africa/Harare",
	}
}
