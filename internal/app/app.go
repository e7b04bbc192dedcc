// Package app provides application-level coordination and dependency injection.
// It wires the stores, provider, services, scheduler and HTTP server from
// configuration and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/config"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
	"github.com/sean-rowe/weather-tracker/internal/infrastructure/circuitbreaker"
	"github.com/sean-rowe/weather-tracker/internal/observability"
	"github.com/sean-rowe/weather-tracker/internal/scheduler"
)

// App manages the application lifecycle and dependencies.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	server    *http.Server
	handler   http.Handler
	telemetry *observability.Telemetry
	scheduler *scheduler.Scheduler
	breakers  *circuitbreaker.Manager
	store     *storeBackend

	// closers release shared resources in reverse order of acquisition
	closers []closer
}

type closer struct {
	name  string
	close func(ctx context.Context) error
}

// New loads configuration and creates the logger.
//
// Returns:
//   - *App: Configured application instance
//   - error: Logger or configuration error
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewWithConfig(cfg, logger), nil
}

// NewWithConfig creates an application from an explicit configuration.
func NewWithConfig(cfg *config.Config, logger *zap.Logger) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		breakers: circuitbreaker.NewManager(logger),
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

// Build wires every component and the HTTP handler without starting anything.
// Acquired resources are released by Stop even when Build fails.
func (a *App) Build(ctx context.Context) error {
	if a.handler != nil {
		return nil
	}

	if a.cfg.Observability.Enabled {
		if err := a.initTelemetry(ctx); err != nil {
			a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
		}
	}

	store, err := a.initStore(ctx)
	if err != nil {
		return err
	}

	a.store = store

	cacheService, rateLimitService := a.initRedisServices(ctx)
	provider := a.initWeatherProvider(cacheService)

	components := a.initServices(store, provider)

	a.scheduler = scheduler.New(components.sync, scheduler.Config{
		Interval:   a.cfg.Sync.Interval,
		RunOnStart: a.cfg.Sync.RunOnStart,
		RunTimeout: a.cfg.Sync.Interval,
	}, a.logger)

	a.handler = a.setupRouter(components, rateLimitService)

	return nil
}

// Handler returns the HTTP handler. Build must have succeeded.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Start builds the application, starts the scheduler and serves HTTP in the background.
//
// Parameters:
//   - ctx: Context for initialization and the scheduler lifetime
//
// Returns:
//   - error: Wiring or scheduler start error
func (a *App) Start(ctx context.Context) error {
	if err := a.Build(ctx); err != nil {
		return err
	}

	if a.cfg.Sync.SchedulerEnabled {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		a.logger.Info("background sync scheduler disabled")
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	go func() {
		a.logger.Info("starting HTTP server",
			zap.String("port", a.cfg.Server.Port),
			zap.String("store", a.cfg.Store.Driver))

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down all application components.
// The scheduler stops first so no sync starts while the server drains.
func (a *App) Stop() {
	a.logger.Info("shutting down application...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]

		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := c.close(closeCtx); err != nil {
			a.logger.Error("failed to close resource", zap.String("resource", c.name), zap.Error(err))
		}

		cancel()
	}

	a.closers = nil

	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown telemetry", zap.Error(err))
		}
	}

	// Sync fails on some platforms for stderr
	_ = a.logger.Sync()
}

// WaitForShutdown blocks until the process receives SIGINT or SIGTERM.
func (a *App) WaitForShutdown() {
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

func (a *App) addCloser(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// components are the wired core services the router and scheduler depend on.
type components struct {
	sync        ports.SyncService
	locations   ports.LocationService
	preferences ports.PreferenceService
}
