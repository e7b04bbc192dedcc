// Package openmeteo implements a client for the Open-Meteo forecast and geocoding APIs.
// This package serves as a secondary adapter, translating domain requests
// into provider calls and converting responses back to domain snapshots.
package openmeteo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
	"github.com/sean-rowe/weather-tracker/internal/version"
)

const (
	currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m"
	hourlyFields  = "temperature_2m,weather_code"
	dailyFields   = "weather_code,temperature_2m_max,temperature_2m_min"

	geocodeResultCount = 10
	errorBodyLimit     = 4 << 10
	responseBodyLimit  = 8 << 20
)

// Config holds provider endpoints and client-side throttling.
type Config struct {
	ForecastBaseURL  string
	GeocodingBaseURL string
	UserAgent        string

	// RequestsPerSecond and Burst configure the outbound token bucket; RequestsPerSecond <= 0 disables it
	RequestsPerSecond float64
	Burst             int

	// GeocodeCacheTTL is how long search results stay cached
	GeocodeCacheTTL time.Duration
}

// Client implements ports.WeatherProvider for Open-Meteo.
type Client struct {
	cfg Config

	// httpClient handles HTTP communication with the configured timeout
	httpClient *http.Client

	// limiter spaces outbound requests across bulk and scheduled syncs
	limiter *rate.Limiter

	// cache holds geocoding results keyed by normalized query
	cache ports.CacheService

	logger *zap.Logger
}

var _ ports.WeatherProvider = (*Client)(nil)

// NewClient creates a new Open-Meteo client.
//
// Parameters:
//   - cfg: Endpoints, user agent, rate limit and cache TTL
//   - httpClient: HTTP client with timeout configuration
//   - cache: Cache for geocoding results, may be nil to disable caching
//   - logger: Zap logger for API interaction logging
//
// Returns:
//   - *Client: Configured Open-Meteo client
func NewClient(cfg Config, httpClient *http.Client, cache ports.CacheService, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = version.Short()
	}

	if cfg.GeocodeCacheTTL <= 0 {
		cfg.GeocodeCacheTTL = 24 * time.Hour
	}

	cfg.ForecastBaseURL = strings.TrimRight(cfg.ForecastBaseURL, "/")
	cfg.GeocodingBaseURL = strings.TrimRight(cfg.GeocodingBaseURL, "/")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}

		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    limiter,
		cache:      cache,
		logger:     logger,
	}
}

// FetchWeather retrieves current, hourly and daily weather for the coordinates.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - coords: Geographic coordinates of the location
//   - units: Measurement system for every numeric value
//
// Returns:
//   - *domain.WeatherSnapshot: Normalized snapshot without identity or conflict fields
//   - error: *domain.WeatherError of kind RATE_LIMITED or EXTERNAL_API_ERROR
func (c *Client) FetchWeather(ctx context.Context, coords domain.Coordinates, units domain.Units) (*domain.WeatherSnapshot, error) {
	tracer := otel.Tracer("openmeteo")
	ctx, span := tracer.Start(ctx, "OpenMeteo.FetchWeather")

	defer span.End()

	span.SetAttributes(
		attribute.Float64("latitude", coords.Latitude),
		attribute.Float64("longitude", coords.Longitude),
		attribute.String("units", string(units)),
	)

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("current", currentFields)
	params.Set("hourly", hourlyFields)
	params.Set("daily", dailyFields)
	params.Set("temperature_unit", units.TemperatureUnit())
	params.Set("wind_speed_unit", units.WindSpeedUnit())
	params.Set("precipitation_unit", units.PrecipitationUnit())
	params.Set("timezone", "auto")

	var payload forecastResponse

	start := time.Now()
	err := c.getJSON(ctx, c.cfg.ForecastBaseURL+"/v1/forecast", params, &payload)

	if err != nil {
		span.RecordError(err)

		c.logger.Warn("forecast request failed",
			zap.Float64("latitude", coords.Latitude),
			zap.Float64("longitude", coords.Longitude),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))

		return nil, err
	}

	if payload.Current == nil && payload.Hourly == nil && payload.Daily == nil {
		err := domain.ProviderUnavailable("weather provider returned no forecast data", nil)
		span.RecordError(err)

		return nil, err
	}

	c.logger.Debug("forecast retrieved",
		zap.Float64("latitude", coords.Latitude),
		zap.Float64("longitude", coords.Longitude),
		zap.Duration("duration", time.Since(start)))

	return payload.toSnapshot(units), nil
}

// SearchLocations geocodes a city name.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - query: Free-text city name
//
// Returns:
//   - []domain.GeocodingResult: Up to ten candidate cities
//   - error: INVALID_CITY when nothing matches, or a provider error
func (c *Client) SearchLocations(ctx context.Context, query string) ([]domain.GeocodingResult, error) {
	tracer := otel.Tracer("openmeteo")
	ctx, span := tracer.Start(ctx, "OpenMeteo.SearchLocations")

	defer span.End()

	normalized := strings.TrimSpace(query)
	if normalized == "" {
		return nil, domain.InvalidCity(query)
	}

	span.SetAttributes(attribute.String("query", normalized))

	key := geocodeCacheKey(normalized)

	if cached, ok := c.cachedResults(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	params := url.Values{}
	params.Set("name", normalized)
	params.Set("count", strconv.Itoa(geocodeResultCount))
	params.Set("language", "en")
	params.Set("format", "json")

	var payload geocodingResponse

	if err := c.getJSON(ctx, c.cfg.GeocodingBaseURL+"/v1/search", params, &payload); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(payload.Results) == 0 {
		return nil, domain.InvalidCity(normalized)
	}

	results := make([]domain.GeocodingResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, domain.GeocodingResult{
			Name:        r.Name,
			Country:     r.Country,
			CountryCode: r.CountryCode,
			Admin1:      r.Admin1,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			Timezone:    r.Timezone,
		})
	}

	c.storeResults(ctx, key, results)

	return results, nil
}

func geocodeCacheKey(query string) string {
	return "geocode:" + strings.ToLower(query)
}

func (c *Client) cachedResults(ctx context.Context, key string) ([]domain.GeocodingResult, bool) {
	if c.cache == nil {
		return nil, false
	}

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var results []domain.GeocodingResult
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Warn("discarding corrupt geocoding cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return results, true
}

func (c *Client) storeResults(ctx context.Context, key string, results []domain.GeocodingResult) {
	if c.cache == nil {
		return
	}

	data, err := json.Marshal(results)
	if err != nil {
		return
	}

	if err := c.cache.Set(ctx, key, data, c.cfg.GeocodeCacheTTL); err != nil {
		c.logger.Warn("failed to cache geocoding results", zap.String("key", key), zap.Error(err))
	}
}

// getJSON performs a throttled GET and decodes the body into out.
// Every failure is returned as a *domain.WeatherError.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.ProviderUnavailable("request aborted while waiting for rate limiter", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return domain.InvalidResponse("failed to build provider request", err)
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ProviderUnavailable("weather provider unreachable", err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Debug("failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.RateLimited("weather provider rate limit exceeded")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return domain.InvalidResponse(
			fmt.Sprintf("weather provider rejected request with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			nil,
		)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.ProviderUnavailable(fmt.Sprintf("weather provider returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return domain.ProviderUnavailable("failed to read provider response", err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return domain.ProviderUnavailable("weather provider returned an empty body", nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.ProviderUnavailable("weather provider returned an unparseable body", err)
	}

	return nil
}
