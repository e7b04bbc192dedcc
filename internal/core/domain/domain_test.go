package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		input   string
		want    Units
		wantErr bool
	}{
		{input: "metric", want: Metric},
		{input: " Imperial ", want: Imperial},
		{input: "METRIC", want: Metric},
		{input: "kelvin", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUnits(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnitsProviderParameters(t *testing.T) {
	assert.Equal(t, "celsius", Metric.TemperatureUnit())
	assert.Equal(t, "kmh", Metric.WindSpeedUnit())
	assert.Equal(t, "mm", Metric.PrecipitationUnit())
	assert.Equal(t, "fahrenheit", Imperial.TemperatureUnit())
	assert.Equal(t, "mph", Imperial.WindSpeedUnit())
	assert.Equal(t, "inch", Imperial.PrecipitationUnit())
}

func TestCoordinatesValidate(t *testing.T) {
	assert.NoError(t, Coordinates{Latitude: -17.92, Longitude: 25.86}.Validate())
	assert.NoError(t, Coordinates{Latitude: 90, Longitude: -180}.Validate())
	assert.Error(t, Coordinates{Latitude: 90.1}.Validate())
	assert.Error(t, Coordinates{Longitude: 180.5}.Validate())
}

func TestDescribeWeatherCode(t *testing.T) {
	code := func(c int) *int { return &c }

	assert.Equal(t, "Clear sky", DescribeWeatherCode(code(0)))
	assert.Equal(t, "Partly cloudy", DescribeWeatherCode(code(2)))
	assert.Equal(t, "Thunderstorm with heavy hail", DescribeWeatherCode(code(99)))
	assert.Equal(t, UnknownWeather, DescribeWeatherCode(code(4)))
	assert.Equal(t, UnknownWeather, DescribeWeatherCode(nil))
}

func TestTrackedLocationLifecycle(t *testing.T) {
	start := time.Date(2024, 10, 14, 12, 0, 0, 0, time.UTC)
	location := &TrackedLocation{ID: "loc-1", SyncStatus: SyncStatusNeverSynced}

	assert.True(t, location.IsStale(start, time.Hour), "never synced is always stale")

	location.MarkInProgress(start)
	assert.Equal(t, SyncStatusInProgress, location.SyncStatus)
	assert.Nil(t, location.LastSyncAt)

	location.MarkSuccess(start)
	assert.Equal(t, SyncStatusSuccess, location.SyncStatus)
	require.NotNil(t, location.LastSyncAt)
	assert.False(t, location.IsStale(start.Add(59*time.Minute), time.Hour))
	assert.True(t, location.IsStale(start.Add(time.Hour), time.Hour))

	location.MarkFailed(start.Add(2 * time.Hour))
	assert.Equal(t, SyncStatusFailed, location.SyncStatus)
	assert.Equal(t, start, *location.LastSyncAt)
	assert.Equal(t, start.Add(2*time.Hour), location.UpdatedAt)
}

func TestTrackedLocationSameCity(t *testing.T) {
	location := &TrackedLocation{Name: "Victoria Falls", Country: "Zimbabwe"}

	assert.True(t, location.SameCity(" victoria falls", "ZIMBABWE "))
	assert.False(t, location.SameCity("Victoria Falls", "Zambia"))
}

func TestWeatherErrorMatching(t *testing.T) {
	unavailable := ProviderUnavailable("open-meteo returned status 503", errors.New("bad gateway"))
	wrapped := fmt.Errorf("sync failed: %w", unavailable)

	assert.ErrorIs(t, wrapped, ErrExternalAPI)
	assert.ErrorIs(t, wrapped, ErrProviderUnavailable)
	assert.NotErrorIs(t, wrapped, ErrInvalidResponse)
	assert.NotErrorIs(t, wrapped, ErrNotFound)

	assert.Equal(t, KindExternalAPIError, KindOf(wrapped))
	assert.Equal(t, CodeProviderUnavailable, CodeOf(wrapped))
	assert.Equal(t, "PROVIDER_UNAVAILABLE: open-meteo returned status 503: bad gateway", unavailable.Error())

	assert.Equal(t, string(KindNotFound), CodeOf(&WeatherError{Kind: KindNotFound}))
	assert.Empty(t, KindOf(errors.New("plain")))
	assert.Empty(t, CodeOf(nil))
}

func TestCurrentTemperature(t *testing.T) {
	var missing *WeatherSnapshot

	_, ok := missing.CurrentTemperature()
	assert.False(t, ok)

	temperature := 28.5
	value, ok := (&WeatherSnapshot{Current: &CurrentConditions{Temperature: &temperature}}).CurrentTemperature()
	assert.True(t, ok)
	assert.InDelta(t, 28.5, value, 1e-9)
}
