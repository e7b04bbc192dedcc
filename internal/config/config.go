// Package config provides centralized configuration management for the weather tracker.
// Values start from built-in defaults, are overlaid by an optional YAML file named by
// CONFIG_PATH, and finally by environment variables (a .env file is loaded first when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sean-rowe/weather-tracker/internal/version"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds all configuration settings for the weather tracker.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Redis         RedisConfig         `yaml:"redis"`
	Database      DatabaseConfig      `yaml:"database"`
	Mongo         MongoConfig         `yaml:"mongo"`
	Store         StoreConfig         `yaml:"store"`
	Observability ObservabilityConfig `yaml:"observability"`
	Provider      ProviderConfig      `yaml:"provider"`
	Sync          SyncConfig          `yaml:"sync"`
	Preferences   PreferencesConfig   `yaml:"preferences"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
}

// ServerConfig contains HTTP server settings and timeouts.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	Environment     string        `yaml:"environment"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig contains settings for the shared geocoding cache and API rate limiting.
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings, used when Store.Driver is postgres.
type DatabaseConfig struct {
	Host                  string        `yaml:"host"`
	Port                  int           `yaml:"port"`
	User                  string        `yaml:"user"`
	Password              string        `yaml:"password"`
	Database              string        `yaml:"database"`
	SSLMode               string        `yaml:"ssl_mode"`
	MaxConnections        int           `yaml:"max_connections"`
	MaxIdleConnections    int           `yaml:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
	AutoMigrate           bool          `yaml:"auto_migrate"`
}

// MongoConfig contains MongoDB connection settings, used when Store.Driver is mongo.
type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	AuthSource     string        `yaml:"auth_source"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`

	// MaxHistory caps snapshots kept per location by the memory store; 0 keeps everything
	MaxHistory int `yaml:"max_history"`
}

// ObservabilityConfig contains settings for distributed tracing and metrics.
type ObservabilityConfig struct {
	Enabled        bool    `yaml:"enabled"`
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
	SampleRate     float64 `yaml:"sample_rate"`
}

// ProviderConfig contains the weather provider endpoints and the client-side protections around it.
type ProviderConfig struct {
	ForecastBaseURL   string        `yaml:"forecast_base_url"`
	GeocodingBaseURL  string        `yaml:"geocoding_base_url"`
	UserAgent         string        `yaml:"user_agent"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	GeocodeCacheTTL   time.Duration `yaml:"geocode_cache_ttl"`
	GeocodeCacheSize  int           `yaml:"geocode_cache_size"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of the provider.
type BreakerConfig struct {
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
}

// SyncConfig contains the sync engine and scheduler settings.
type SyncConfig struct {
	SchedulerEnabled  bool          `yaml:"scheduler_enabled"`
	Interval          time.Duration `yaml:"interval"`
	RunOnStart        bool          `yaml:"run_on_start"`
	StaleAfter        time.Duration `yaml:"stale_after"`
	MaxConcurrency    int           `yaml:"max_concurrency"`
	ProviderTimeout   time.Duration `yaml:"provider_timeout"`
	ConflictThreshold float64       `yaml:"conflict_threshold"`
	ConflictWindow    time.Duration `yaml:"conflict_window"`
}

// PreferencesConfig holds the process-wide defaults for user preferences.
type PreferencesConfig struct {
	DefaultUnits string `yaml:"default_units"`
}

// RateLimitConfig contains API rate limiting settings; Requests <= 0 disables it.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Environment:     "development",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 5,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Database: DatabaseConfig{
			Host:                  "localhost",
			Port:                  5432,
			User:                  "weather",
			Database:              "weather_tracker",
			SSLMode:               "disable",
			MaxConnections:        25,
			MaxIdleConnections:    5,
			ConnectionMaxLifetime: 5 * time.Minute,
			AutoMigrate:           true,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "weather_tracker",
			AuthSource:     "admin",
			ConnectTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:     StoreMemory,
			MaxHistory: 500,
		},
		Observability: ObservabilityConfig{
			Enabled:        true,
			ServiceName:    "weather-tracker",
			ServiceVersion: version.Version,
			SampleRate:     0.1,
		},
		Provider: ProviderConfig{
			ForecastBaseURL:   "https://api.open-meteo.com",
			GeocodingBaseURL:  "https://geocoding-api.open-meteo.com",
			UserAgent:         version.Short(),
			HTTPTimeout:       10 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			GeocodeCacheTTL:   24 * time.Hour,
			GeocodeCacheSize:  1000,
			Breaker: BreakerConfig{
				MaxRequests:  1,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  5,
				FailureRatio: 0.6,
			},
		},
		Sync: SyncConfig{
			SchedulerEnabled:  true,
			Interval:          30 * time.Minute,
			RunOnStart:        false,
			StaleAfter:        60 * time.Minute,
			MaxConcurrency:    4,
			ProviderTimeout:   15 * time.Second,
			ConflictThreshold: 10,
			ConflictWindow:    6 * time.Hour,
		},
		Preferences: PreferencesConfig{
			DefaultUnits: "metric",
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   time.Minute,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and the environment,
// then validates it.
//
// Returns:
//   - *Config: Effective configuration
//   - error: File, parse or validation error
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Environment = getEnv("ENVIRONMENT", c.Server.Environment)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", c.Database.AutoMigrate)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)
	c.Mongo.Username = getEnv("MONGO_USERNAME", c.Mongo.Username)
	c.Mongo.Password = getEnv("MONGO_PASSWORD", c.Mongo.Password)

	c.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", c.Store.Driver))
	c.Store.MaxHistory = getEnvAsInt("STORE_MAX_HISTORY", c.Store.MaxHistory)

	c.Observability.Enabled = getEnvAsBool("TELEMETRY_ENABLED", c.Observability.Enabled)
	c.Observability.ServiceVersion = getEnv("VERSION", c.Observability.ServiceVersion)
	c.Observability.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Observability.OTLPEndpoint)
	c.Observability.SampleRate = getEnvAsFloat("OTEL_SAMPLE_RATE", c.Observability.SampleRate)

	c.Provider.ForecastBaseURL = getEnv("FORECAST_BASE_URL", c.Provider.ForecastBaseURL)
	c.Provider.GeocodingBaseURL = getEnv("GEOCODING_BASE_URL", c.Provider.GeocodingBaseURL)
	c.Provider.HTTPTimeout = getEnvAsDuration("PROVIDER_HTTP_TIMEOUT", c.Provider.HTTPTimeout)
	c.Provider.RequestsPerSecond = getEnvAsFloat("PROVIDER_RPS", c.Provider.RequestsPerSecond)
	c.Provider.Burst = getEnvAsInt("PROVIDER_BURST", c.Provider.Burst)
	c.Provider.GeocodeCacheTTL = getEnvAsDuration("GEOCODE_CACHE_TTL", c.Provider.GeocodeCacheTTL)

	c.Sync.SchedulerEnabled = getEnvAsBool("SYNC_SCHEDULER_ENABLED", c.Sync.SchedulerEnabled)
	c.Sync.Interval = getEnvAsDuration("SYNC_INTERVAL", c.Sync.Interval)
	c.Sync.RunOnStart = getEnvAsBool("SYNC_RUN_ON_START", c.Sync.RunOnStart)
	c.Sync.StaleAfter = getEnvAsDuration("SYNC_STALE_AFTER", c.Sync.StaleAfter)
	c.Sync.MaxConcurrency = getEnvAsInt("SYNC_MAX_CONCURRENCY", c.Sync.MaxConcurrency)
	c.Sync.ProviderTimeout = getEnvAsDuration("SYNC_PROVIDER_TIMEOUT", c.Sync.ProviderTimeout)
	c.Sync.ConflictThreshold = getEnvAsFloat("CONFLICT_THRESHOLD", c.Sync.ConflictThreshold)
	c.Sync.ConflictWindow = getEnvAsDuration("CONFLICT_WINDOW", c.Sync.ConflictWindow)

	c.Preferences.DefaultUnits = strings.ToLower(getEnv("DEFAULT_UNITS", c.Preferences.DefaultUnits))

	c.RateLimit.Requests = getEnvAsInt("RATE_LIMIT_REQUESTS", c.RateLimit.Requests)
	c.RateLimit.Window = getEnvAsDuration("RATE_LIMIT_WINDOW", c.RateLimit.Window)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}

	switch c.Store.Driver {
	case StoreMemory, StorePostgres, StoreMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if c.Store.MaxHistory < 0 {
		errs = append(errs, errors.New("store max history must not be negative"))
	}

	if c.Preferences.DefaultUnits != "metric" && c.Preferences.DefaultUnits != "imperial" {
		errs = append(errs, fmt.Errorf("default units must be metric or imperial, got %q", c.Preferences.DefaultUnits))
	}

	if c.Provider.ForecastBaseURL == "" || c.Provider.GeocodingBaseURL == "" {
		errs = append(errs, errors.New("provider base URLs are required"))
	}

	if c.Provider.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("provider http timeout must be positive"))
	}

	if c.Sync.MaxConcurrency < 1 || c.Sync.MaxConcurrency > 8 {
		errs = append(errs, fmt.Errorf("sync max concurrency must be between 1 and 8, got %d", c.Sync.MaxConcurrency))
	}

	if c.Sync.SchedulerEnabled && c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("sync interval must be positive when the scheduler is enabled"))
	}

	if c.Sync.StaleAfter <= 0 {
		errs = append(errs, errors.New("sync stale-after must be positive"))
	}

	if c.Sync.ConflictThreshold <= 0 || c.Sync.ConflictWindow <= 0 {
		errs = append(errs, errors.New("conflict threshold and window must be positive"))
	}

	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}

	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		errs = append(errs, errors.New("sample rate must be within [0, 1]"))
	}

	return errors.Join(errs...)
}

// getEnv retrieves an environment variable value with a fallback default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer with a fallback default.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean with a fallback default.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}

	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}

	return defaultValue
}

// getEnvAsDuration accepts Go duration strings such as "90s" or "30m".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}

	return defaultValue
}
