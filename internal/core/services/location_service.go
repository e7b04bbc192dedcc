package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

type locationService struct {
	locations ports.LocationRegistry
	snapshots ports.SnapshotStore
	validate  *validator.Validate
	now       func() time.Time
	logger    *zap.Logger
}

// NewLocationService creates the service managing tracked locations.
//
// Parameters:
//   - locations: Registry of tracked locations
//   - snapshots: Snapshot store, used to cascade deletes
//   - logger: Zap logger for location events
//
// Returns:
//   - ports.LocationService: Location management implementation
func NewLocationService(locations ports.LocationRegistry, snapshots ports.SnapshotStore, logger *zap.Logger) ports.LocationService {
	return &locationService{
		locations: locations,
		snapshots: snapshots,
		validate:  validator.New(),
		now:       time.Now,
		logger:    logger,
	}
}

func (s *locationService) Create(ctx context.Context, input ports.CreateLocationInput) (*domain.TrackedLocation, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Country = strings.TrimSpace(input.Country)

	if err := s.validate.Struct(input); err != nil {
		s.logger.Debug("invalid location input", zap.Error(err))
		return nil, domain.InvalidInput(describeValidation(err), err)
	}

	existing, err := s.locations.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	for i := range existing {
		if existing[i].SameCity(input.Name, input.Country) {
			return nil, domain.Duplicate(fmt.Sprintf("%s, %s is already tracked", input.Name, input.Country))
		}
	}

	now := s.now()
	location := &domain.TrackedLocation{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Country:     input.Country,
		CountryCode: strings.ToUpper(input.CountryCode),
		Admin1:      input.Admin1,
		Coordinates: domain.Coordinates{
			Latitude:  input.Latitude,
			Longitude: input.Longitude,
		},
		Favorite:   input.Favorite,
		SyncStatus: domain.SyncStatusNeverSynced,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.locations.Save(ctx, location); err != nil {
		return nil, fmt.Errorf("failed to save location: %w", err)
	}

	s.logger.Info("location created",
		zap.String("location_id", location.ID),
		zap.String("name", location.Name),
		zap.String("country", location.Country))

	return location, nil
}

func (s *locationService) Get(ctx context.Context, id string) (*domain.TrackedLocation, error) {
	location, err := s.locations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load location %s: %w", id, err)
	}

	if location == nil {
		return nil, domain.NotFound("location", id)
	}

	return location, nil
}

// List returns favorites first, then by name.
func (s *locationService) List(ctx context.Context) ([]domain.TrackedLocation, error) {
	locations, err := s.locations.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	sort.SliceStable(locations, func(i, j int) bool {
		if locations[i].Favorite != locations[j].Favorite {
			return locations[i].Favorite
		}

		return strings.ToLower(locations[i].Name) < strings.ToLower(locations[j].Name)
	})

	return locations, nil
}

func (s *locationService) Update(ctx context.Context, id string, input ports.UpdateLocationInput) (*domain.TrackedLocation, error) {
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		input.Name = &trimmed
	}

	if err := s.validate.Struct(input); err != nil {
		return nil, domain.InvalidInput(describeValidation(err), err)
	}

	location, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != location.Name {
		all, err := s.locations.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list locations: %w", err)
		}

		for i := range all {
			if all[i].ID != id && all[i].SameCity(*input.Name, location.Country) {
				return nil, domain.Duplicate(fmt.Sprintf("%s, %s is already tracked", *input.Name, location.Country))
			}
		}

		location.Name = *input.Name
	}

	if input.Favorite != nil {
		location.Favorite = *input.Favorite
	}

	location.UpdatedAt = s.now()

	if err := s.locations.Save(ctx, location); err != nil {
		return nil, fmt.Errorf("failed to save location: %w", err)
	}

	return location, nil
}

// Delete removes the location and all of its snapshots.
func (s *locationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.snapshots.DeleteByLocation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete snapshots of location %s: %w", id, err)
	}

	if err := s.locations.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete location %s: %w", id, err)
	}

	s.logger.Info("location deleted", zap.String("location_id", id))

	return nil
}

func describeValidation(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return "invalid input"
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}

	return strings.Join(messages, "; ")
}
