package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/adapters/primary/rest"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
	"github.com/sean-rowe/weather-tracker/internal/infrastructure/circuitbreaker"
	"github.com/sean-rowe/weather-tracker/internal/middleware"
	"github.com/sean-rowe/weather-tracker/internal/version"
)

const readinessTimeout = 2 * time.Second

// ReadinessResponse is the body of /health/ready.
type ReadinessResponse struct {
	Status            string                         `json:"status"`
	Store             string                         `json:"store"`
	StoreError        string                         `json:"storeError,omitempty"`
	Scheduler         bool                           `json:"scheduler"`
	NextScheduledSync *time.Time                     `json:"nextScheduledSync,omitempty"`
	Breakers          map[string]circuitbreaker.Stats `json:"breakers"`
}

// setupRouter creates and configures the HTTP router with all middleware.
//
// Parameters:
//   - c: Wired core services
//   - rateLimitService: Limiter backing the API rate limit
//
// Returns:
//   - http.Handler: Configured router with all routes and middleware
func (a *App) setupRouter(c components, rateLimitService ports.RateLimitService) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	router.HandleFunc("/health/ready", a.readiness).Methods(http.MethodGet)

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		a.writeJSON(w, http.StatusOK, version.Get())
	}).Methods(http.MethodGet)

	if a.telemetry != nil {
		router.Handle("/metrics", a.telemetry.MetricsHandler()).Methods(http.MethodGet)

		obs := middleware.NewObservabilityMiddleware(a.telemetry.Tracer, a.telemetry, a.logger)
		router.Use(obs.TracingMiddleware)
		router.Use(obs.MetricsMiddleware)
		router.Use(obs.LoggingMiddleware)
	} else {
		router.Use(middleware.NewObservabilityMiddleware(nil, nil, a.logger).LoggingMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	rateLimit := middleware.NewRateLimitMiddleware(
		rateLimitService,
		a.cfg.RateLimit.Requests,
		a.cfg.RateLimit.Window,
		a.logger,
	)
	api.Use(rateLimit.Middleware)

	rest.RegisterRoutes(api, rest.Handlers{
		Locations:   rest.NewLocationHandler(c.locations, a.logger),
		Weather:     rest.NewWeatherHandler(c.sync, a.logger),
		Preferences: rest.NewPreferenceHandler(c.preferences, a.logger),
	})

	return router
}

// readiness reports store reachability, breaker state and the next scheduled sync.
// It answers 503 while the store cannot be reached.
func (a *App) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := ReadinessResponse{
		Status:    "ready",
		Store:     a.store.driver,
		Scheduler: a.cfg.Sync.SchedulerEnabled,
		Breakers:  a.breakers.GetStats(),
	}

	if next, ok := a.scheduler.NextRun(); ok {
		resp.NextScheduledSync = &next
	}

	status := http.StatusOK

	if err := a.store.ping(ctx); err != nil {
		a.logger.Warn("readiness check failed", zap.String("store", a.store.driver), zap.Error(err))

		resp.Status = "unavailable"
		resp.StoreError = err.Error()
		status = http.StatusServiceUnavailable
	}

	a.writeJSON(w, status, resp)
}

func (a *App) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode response", zap.Error(err))
	}
}
