package openmeteo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/infrastructure/cache"
)

var victoriaFalls = domain.Coordinates{Latitude: -17.9243, Longitude: 25.8572}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	client := NewClient(Config{
		ForecastBaseURL:  server.URL,
		GeocodingBaseURL: server.URL,
	}, server.Client(), cache.NewMemoryCache(time.Minute, time.Minute, 100, logger), logger)

	return client, server
}

func TestClient_FetchWeather_Fixture(t *testing.T) {
	fixture, err := os.ReadFile("testdata/forecast_victoria_falls.json")
	require.NoError(t, err)

	var query map[string]string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)

		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(fixture)
	})

	snapshot, err := client.FetchWeather(context.Background(), victoriaFalls, domain.Metric)
	require.NoError(t, err)

	assert.Equal(t, "-17.9243", query["latitude"])
	assert.Equal(t, "25.8572", query["longitude"])
	assert.Equal(t, "celsius", query["temperature_unit"])
	assert.Equal(t, "kmh", query["wind_speed_unit"])
	assert.Equal(t, "mm", query["precipitation_unit"])
	assert.Equal(t, "auto", query["timezone"])
	assert.Equal(t, currentFields, query["current"])

	assert.Equal(t, domain.Metric, snapshot.Units)
	assert.Equal(t, "Africa/Harare", snapshot.Timezone)
	assert.Empty(t, snapshot.ID)
	assert.Empty(t, snapshot.LocationID)

	require.NotNil(t, snapshot.Current)
	assert.InDelta(t, 28.5, *snapshot.Current.Temperature, 0.0001)
	assert.InDelta(t, 27.9, *snapshot.Current.ApparentTemperature, 0.0001)
	assert.Equal(t, 34, *snapshot.Current.Humidity)
	assert.InDelta(t, 0.0, *snapshot.Current.Precipitation, 0.0001)
	assert.Equal(t, 2, *snapshot.Current.WeatherCode)
	assert.Equal(t, "Partly cloudy", snapshot.Current.Description)
	assert.InDelta(t, 12.3, *snapshot.Current.WindSpeed, 0.0001)

	require.Len(t, snapshot.Hourly, 3)
	assert.Equal(t, "2024-10-14T01:00", snapshot.Hourly[1].Time)
	assert.Nil(t, snapshot.Hourly[1].Temperature)
	assert.Equal(t, "Mainly clear", snapshot.Hourly[1].Description)
	assert.Equal(t, "Thunderstorm", snapshot.Hourly[2].Description)

	require.Len(t, snapshot.Daily, 2)
	assert.Equal(t, "2024-10-15", snapshot.Daily[1].Date)
	assert.InDelta(t, 31.0, *snapshot.Daily[1].TemperatureMax, 0.0001)
	assert.Nil(t, snapshot.Daily[1].TemperatureMin)
	assert.Equal(t, "Slight rain", snapshot.Daily[1].Description)
}

func TestClient_FetchWeather_ImperialParameters(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fahrenheit", r.URL.Query().Get("temperature_unit"))
		assert.Equal(t, "mph", r.URL.Query().Get("wind_speed_unit"))
		assert.Equal(t, "inch", r.URL.Query().Get("precipitation_unit"))

		_, _ = w.Write([]byte(`{"timezone":"GMT","current":{"temperature_2m":70.1}}`))
	})

	snapshot, err := client.FetchWeather(context.Background(), victoriaFalls, domain.Imperial)
	require.NoError(t, err)

	assert.Equal(t, domain.Imperial, snapshot.Units)
	assert.Nil(t, snapshot.Current.Humidity)
	assert.Nil(t, snapshot.Current.WeatherCode)
	assert.Equal(t, domain.UnknownWeather, snapshot.Current.Description)
	assert.Empty(t, snapshot.Hourly)
	assert.Empty(t, snapshot.Daily)
}

func TestClient_FetchWeather_UnequalArrays(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"hourly": {"time": ["a", "b", "c"], "temperature_2m": [1.5], "weather_code": [3, 45]},
			"daily": {"time": ["d1"], "weather_code": [], "temperature_2m_max": [10]}
		}`))
	})

	snapshot, err := client.FetchWeather(context.Background(), victoriaFalls, domain.Metric)
	require.NoError(t, err)

	require.Len(t, snapshot.Hourly, 3)
	assert.InDelta(t, 1.5, *snapshot.Hourly[0].Temperature, 0.0001)
	assert.Nil(t, snapshot.Hourly[2].Temperature)
	assert.Equal(t, "Fog", snapshot.Hourly[1].Description)
	assert.Equal(t, domain.UnknownWeather, snapshot.Hourly[2].Description)

	require.Len(t, snapshot.Daily, 1)
	assert.Nil(t, snapshot.Daily[0].TemperatureMin)
	assert.Nil(t, snapshot.Current)
}

func TestClient_FetchWeather_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		expectedKind domain.ErrorKind
		expectedCode string
		contains     string
	}{
		{
			name:         "rate limited",
			status:       http.StatusTooManyRequests,
			body:         `{"reason":"too many requests"}`,
			expectedKind: domain.KindRateLimited,
			expectedCode: string(domain.KindRateLimited),
		},
		{
			name:         "bad request carries body",
			status:       http.StatusBadRequest,
			body:         `{"error":true,"reason":"Latitude must be in range of -90 to 90"}`,
			expectedKind: domain.KindExternalAPIError,
			expectedCode: domain.CodeInvalidResponse,
			contains:     "Latitude must be in range",
		},
		{
			name:         "server error",
			status:       http.StatusBadGateway,
			body:         "upstream down",
			expectedKind: domain.KindExternalAPIError,
			expectedCode: domain.CodeProviderUnavailable,
		},
		{
			name:         "empty body",
			status:       http.StatusOK,
			body:         "  ",
			expectedKind: domain.KindExternalAPIError,
			expectedCode: domain.CodeProviderUnavailable,
		},
		{
			name:         "unparseable body",
			status:       http.StatusOK,
			body:         "<html>maintenance</html>",
			expectedKind: domain.KindExternalAPIError,
			expectedCode: domain.CodeProviderUnavailable,
		},
		{
			name:         "null body",
			status:       http.StatusOK,
			body:         "null",
			expectedKind: domain.KindExternalAPIError,
			expectedCode: domain.CodeProviderUnavailable,
			contains:     "no forecast data",
		},
		{
			name:         "object without forecast blocks",
			status:       http.StatusOK,
			body:         `{"timezone":"Africa/Harare"}`,
			expectedKind: domain.KindExternalAPIError,
			expectedCode: domain.CodeProviderUnavailable,
			contains:     "no forecast data",
		},
		{
			name:         "empty object",
			status:       http.StatusOK,
			body:         "{}",
			expectedKind: domain.KindExternalAPIError,
			expectedCode: domain.CodeProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			snapshot, err := client.FetchWeather(context.Background(), victoriaFalls, domain.Metric)

			assert.Nil(t, snapshot)
			require.Error(t, err)

			var weatherErr *domain.WeatherError
			require.True(t, errors.As(err, &weatherErr))
			assert.Equal(t, tt.expectedKind, weatherErr.Kind)
			assert.Equal(t, tt.expectedCode, weatherErr.Code)

			if tt.contains != "" {
				assert.Contains(t, weatherErr.Message, tt.contains)
			}
		})
	}
}

func TestClient_FetchWeather_RateLimitIsDistinctKind(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchWeather(context.Background(), victoriaFalls, domain.Metric)

	assert.True(t, errors.Is(err, domain.ErrRateLimited))
	assert.False(t, errors.Is(err, domain.ErrExternalAPI))
}

func TestClient_FetchWeather_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := NewClient(Config{ForecastBaseURL: server.URL}, &http.Client{Timeout: time.Second}, nil, zap.NewNop())

	_, err := client.FetchWeather(context.Background(), victoriaFalls, domain.Metric)

	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestClient_FetchWeather_Timeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchWeather(ctx, victoriaFalls, domain.Metric)

	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestClient_SearchLocations(t *testing.T) {
	var calls atomic.Int32

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("count"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		switch r.URL.Query().Get("name") {
		case "Victoria Falls":
			_, _ = w.Write([]byte(`{"results":[{"name":"Victoria Falls","latitude":-17.9243,"longitude":25.8572,
				"country":"Zimbabwe","country_code":"ZW","admin1":"Matabeleland North","timezone":"Africa/Harare"}]}`))
		default:
			_, _ = w.Write([]byte(`{"generationtime_ms":0.2}`))
		}
	})

	ctx := context.Background()

	results, err := client.SearchLocations(ctx, "Victoria Falls")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.GeocodingResult{
		Name:        "Victoria Falls",
		Country:     "Zimbabwe",
		CountryCode: "ZW",
		Admin1:      "Matabeleland North",
		Latitude:    -17.9243,
		Longitude:   25.8572,
		Timezone:    "Africa/Harare",
	}, results[0])

	cached, err := client.SearchLocations(ctx, "  victoria falls ")
	require.NoError(t, err)
	assert.Equal(t, results, cached)
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.SearchLocations(ctx, "Nowhereville")
	assert.True(t, domain.IsKind(err, domain.KindInvalidCity))

	_, err = client.SearchLocations(ctx, "   ")
	assert.True(t, domain.IsKind(err, domain.KindInvalidCity))
	assert.Equal(t, int32(2), calls.Load())
}
