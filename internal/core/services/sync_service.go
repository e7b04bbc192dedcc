package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

const (
	defaultMaxConcurrency  = 4
	maxConcurrencyCeiling  = 8
	defaultStaleAfter      = 60 * time.Minute
	defaultProviderTimeout = 15 * time.Second
	statusPersistTimeout   = 5 * time.Second
	maxHistoryPageSize     = 100
)

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	// MaxConcurrency bounds parallel provider calls during a batch, clamped to [1, 8]
	MaxConcurrency int

	// StaleAfter is the age after which a location is refreshed by ScheduledSync
	StaleAfter time.Duration

	// ProviderTimeout bounds each provider call
	ProviderTimeout time.Duration

	// Now overrides the clock; nil uses time.Now
	Now func() time.Time
}

// SyncEngine orchestrates fetching, conflict detection and persistence for tracked locations.
// Concurrent syncs of the same location are not serialized; the last write wins.
type SyncEngine struct {
	locations   ports.LocationRegistry
	snapshots   ports.SnapshotStore
	provider    ports.WeatherProvider
	preferences ports.PreferenceProvider
	detector    *ConflictDetector
	metrics     ports.SyncMetrics
	cfg         SyncConfig
	now         func() time.Time
	logger      *zap.Logger
}

// NewSyncEngine creates a sync engine.
//
// Parameters:
//   - locations: Registry of tracked locations
//   - snapshots: Store for weather snapshots
//   - provider: Upstream weather API
//   - preferences: Source of the effective units for each sync
//   - detector: Conflict heuristic applied to each new snapshot
//   - cfg: Concurrency, staleness and timeout settings
//   - logger: Zap logger for sync events
//
// Returns:
//   - *SyncEngine: Configured engine
func NewSyncEngine(
	locations ports.LocationRegistry,
	snapshots ports.SnapshotStore,
	provider ports.WeatherProvider,
	preferences ports.PreferenceProvider,
	detector *ConflictDetector,
	cfg SyncConfig,
	logger *zap.Logger,
) *SyncEngine {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}

	if cfg.MaxConcurrency > maxConcurrencyCeiling {
		cfg.MaxConcurrency = maxConcurrencyCeiling
	}

	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}

	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	if detector == nil {
		detector = NewConflictDetector(DefaultConflictPolicy())
	}

	return &SyncEngine{
		locations:   locations,
		snapshots:   snapshots,
		provider:    provider,
		preferences: preferences,
		detector:    detector,
		cfg:         cfg,
		now:         now,
		logger:      logger,
	}
}

// SetMetrics attaches an instrumentation sink.
func (e *SyncEngine) SetMetrics(metrics ports.SyncMetrics) {
	e.metrics = metrics
}

// SyncOne fetches fresh weather for one location and stores it as a new snapshot.
// Fetch and persistence failures are reported in the result; only an unknown
// location or a failing registry lookup is returned as an error.
func (e *SyncEngine) SyncOne(ctx context.Context, locationID string) (domain.SyncResult, error) {
	tracer := otel.Tracer("sync")
	ctx, span := tracer.Start(ctx, "SyncEngine.SyncOne")

	defer span.End()

	span.SetAttributes(attribute.String("location.id", locationID))

	location, err := e.locations.FindByID(ctx, locationID)
	if err != nil {
		span.RecordError(err)
		return domain.SyncResult{}, fmt.Errorf("failed to load location %s: %w", locationID, err)
	}

	if location == nil {
		return domain.SyncResult{}, domain.NotFound("location", locationID)
	}

	started := e.now()
	result := e.sync(ctx, location)

	span.SetAttributes(
		attribute.Bool("sync.success", result.Success),
		attribute.Bool("sync.conflict", result.ConflictDetected),
	)

	if e.metrics != nil {
		e.metrics.RecordSync(ctx, result, e.now().Sub(started))
	}

	return result, nil
}

func (e *SyncEngine) sync(ctx context.Context, location *domain.TrackedLocation) domain.SyncResult {
	location.MarkInProgress(e.now())

	exists, err := e.locations.UpdateSyncStatus(ctx, location.ID, location.SyncStatus, nil, location.UpdatedAt)
	if err != nil {
		return e.fail(ctx, location, fmt.Errorf("failed to mark location in progress: %w", err))
	}

	if !exists {
		return e.removed(ctx, location)
	}

	units := e.preferences.EffectiveUnits(ctx)

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.ProviderTimeout)
	snapshot, err := e.provider.FetchWeather(fetchCtx, location.Coordinates, units)
	cancel()

	if err != nil {
		return e.fail(ctx, location, err)
	}

	previous, err := e.snapshots.FindLatestByLocation(ctx, location.ID)
	if err != nil {
		return e.fail(ctx, location, fmt.Errorf("failed to load previous snapshot: %w", err))
	}

	now := e.now()
	conflict, description := e.detector.Detect(previous, snapshot, now)

	snapshot.ID = uuid.NewString()
	snapshot.LocationID = location.ID
	snapshot.FetchedAt = now
	snapshot.ConflictDetected = conflict
	snapshot.ConflictDescription = description

	if snapshot.Units == "" {
		snapshot.Units = units
	}

	if err := e.snapshots.Save(ctx, snapshot); err != nil {
		return e.fail(ctx, location, fmt.Errorf("failed to save snapshot: %w", err))
	}

	location.MarkSuccess(now)

	exists, err = e.locations.UpdateSyncStatus(ctx, location.ID, location.SyncStatus, location.LastSyncAt, now)
	if err != nil {
		return e.fail(ctx, location, fmt.Errorf("failed to save location status: %w", err))
	}

	if !exists {
		return e.removed(ctx, location)
	}

	message := "weather synchronized"
	if conflict {
		message = "weather synchronized with conflict"

		e.logger.Warn("conflicting weather data detected",
			zap.String("location_id", location.ID),
			zap.String("location", location.Name),
			zap.String("description", description))
	}

	e.logger.Info("location synchronized",
		zap.String("location_id", location.ID),
		zap.String("location", location.Name),
		zap.String("snapshot_id", snapshot.ID),
		zap.Bool("conflict", conflict))

	return domain.SyncResult{
		LocationID:          location.ID,
		LocationName:        location.Name,
		Success:             true,
		Message:             message,
		SyncedAt:            now,
		SnapshotID:          snapshot.ID,
		ConflictDetected:    conflict,
		ConflictDescription: description,
	}
}

// fail records FAILED on the location. The status write is detached from the
// caller's cancellation so a location never stays IN_PROGRESS.
func (e *SyncEngine) fail(ctx context.Context, location *domain.TrackedLocation, cause error) domain.SyncResult {
	now := e.now()
	location.MarkFailed(now)

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusPersistTimeout)
	defer cancel()

	if _, err := e.locations.UpdateSyncStatus(persistCtx, location.ID, location.SyncStatus, nil, now); err != nil {
		e.logger.Error("failed to persist failed sync status",
			zap.String("location_id", location.ID),
			zap.Error(err))
	}

	e.logger.Warn("location sync failed",
		zap.String("location_id", location.ID),
		zap.String("location", location.Name),
		zap.String("error_kind", string(domain.KindOf(cause))),
		zap.Error(cause))

	return domain.SyncResult{
		LocationID:   location.ID,
		LocationName: location.Name,
		Success:      false,
		Message:      cause.Error(),
		SyncedAt:     now,
		ErrorKind:    domain.KindOf(cause),
		ErrorCode:    domain.CodeOf(cause),
	}
}

// removed handles a location deleted while its sync was running. Snapshots
// written by this sync are dropped so none outlive the location.
func (e *SyncEngine) removed(ctx context.Context, location *domain.TrackedLocation) domain.SyncResult {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusPersistTimeout)
	defer cancel()

	if err := e.snapshots.DeleteByLocation(cleanupCtx, location.ID); err != nil {
		e.logger.Error("failed to remove snapshots of deleted location",
			zap.String("location_id", location.ID),
			zap.Error(err))
	}

	e.logger.Info("location deleted during sync",
		zap.String("location_id", location.ID),
		zap.String("location", location.Name))

	cause := domain.NotFound("location", location.ID)

	return domain.SyncResult{
		LocationID:   location.ID,
		LocationName: location.Name,
		Success:      false,
		Message:      cause.Error(),
		SyncedAt:     e.now(),
		ErrorKind:    domain.KindOf(cause),
		ErrorCode:    domain.CodeOf(cause),
	}
}

// SyncAll synchronizes every tracked location with bounded concurrency.
// Results follow registry order; individual failures never abort the batch.
func (e *SyncEngine) SyncAll(ctx context.Context) ([]domain.SyncResult, error) {
	locations, err := e.locations.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	return e.syncMany(ctx, "manual", locations), nil
}

// ScheduledSync synchronizes only locations whose last successful sync is older than StaleAfter.
func (e *SyncEngine) ScheduledSync(ctx context.Context) ([]domain.SyncResult, error) {
	locations, err := e.locations.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	now := e.now()
	stale := make([]domain.TrackedLocation, 0, len(locations))

	for _, location := range locations {
		if location.IsStale(now, e.cfg.StaleAfter) {
			stale = append(stale, location)
		}
	}

	if len(stale) == 0 {
		e.logger.Debug("scheduled sync skipped, all locations fresh",
			zap.Int("locations", len(locations)))

		return []domain.SyncResult{}, nil
	}

	return e.syncMany(ctx, "scheduled", stale), nil
}

func (e *SyncEngine) syncMany(ctx context.Context, trigger string, locations []domain.TrackedLocation) []domain.SyncResult {
	results := make([]domain.SyncResult, len(locations))

	var g errgroup.Group
	g.SetLimit(e.cfg.MaxConcurrency)

	for i, location := range locations {
		i, location := i, location
		g.Go(func() error {
			result, err := e.SyncOne(ctx, location.ID)
			if err != nil {
				// removed or unreadable between listing and syncing
				result = domain.SyncResult{
					LocationID:   location.ID,
					LocationName: location.Name,
					Message:      err.Error(),
					SyncedAt:     e.now(),
					ErrorKind:    domain.KindOf(err),
					ErrorCode:    domain.CodeOf(err),
				}
			}

			results[i] = result

			return nil
		})
	}

	_ = g.Wait()

	succeeded := 0
	conflicts := 0

	for _, result := range results {
		if result.Success {
			succeeded++
		}

		if result.ConflictDetected {
			conflicts++
		}
	}

	e.logger.Info("sync batch completed",
		zap.String("trigger", trigger),
		zap.Int("succeeded", succeeded),
		zap.Int("total", len(results)),
		zap.Int("conflicts", conflicts))

	return results
}

// GetLatestWeather returns the newest snapshot of a location.
func (e *SyncEngine) GetLatestWeather(ctx context.Context, locationID string) (*domain.WeatherSnapshot, error) {
	if err := e.requireLocation(ctx, locationID); err != nil {
		return nil, err
	}

	snapshot, err := e.snapshots.FindLatestByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	if snapshot == nil {
		return nil, &domain.WeatherError{
			Kind:    domain.KindNotFound,
			Code:    string(domain.KindNotFound),
			Message: fmt.Sprintf("no weather data for location %s yet", locationID),
		}
	}

	return snapshot, nil
}

// GetHistory returns one page of a location's snapshots, newest first, and the total count.
func (e *SyncEngine) GetHistory(ctx context.Context, locationID string, page, size int) ([]domain.WeatherSnapshot, int, error) {
	if page < 0 {
		return nil, 0, domain.InvalidInput("page must not be negative", nil)
	}

	if size < 1 || size > maxHistoryPageSize {
		return nil, 0, domain.InvalidInput(fmt.Sprintf("size must be between 1 and %d", maxHistoryPageSize), nil)
	}

	if page > math.MaxInt/size {
		return nil, 0, domain.InvalidInput("page is out of range", nil)
	}

	if err := e.requireLocation(ctx, locationID); err != nil {
		return nil, 0, err
	}

	snapshots, total, err := e.snapshots.FindByLocation(ctx, locationID, page, size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load snapshot history: %w", err)
	}

	return snapshots, total, nil
}

// SearchCities geocodes a free-text city name through the provider.
func (e *SyncEngine) SearchCities(ctx context.Context, query string) ([]domain.GeocodingResult, error) {
	return e.provider.SearchLocations(ctx, query)
}

func (e *SyncEngine) requireLocation(ctx context.Context, locationID string) error {
	location, err := e.locations.FindByID(ctx, locationID)
	if err != nil {
		return fmt.Errorf("failed to load location %s: %w", locationID, err)
	}

	if location == nil {
		return domain.NotFound("location", locationID)
	}

	return nil
}
