// Package memory provides concurrency-safe in-memory implementations of the storage ports.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

// LocationRegistry stores tracked locations in insertion order.
// Values are copied on the way in and out so callers never share state.
type LocationRegistry struct {
	mu        sync.RWMutex
	locations map[string]domain.TrackedLocation
	order     []string
}

var _ ports.LocationRegistry = (*LocationRegistry)(nil)

func NewLocationRegistry() *LocationRegistry {
	return &LocationRegistry{
		locations: make(map[string]domain.TrackedLocation),
	}
}

func (r *LocationRegistry) FindByID(_ context.Context, id string) (*domain.TrackedLocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	location, ok := r.locations[id]
	if !ok {
		return nil, nil
	}

	return cloneLocation(location), nil
}

func (r *LocationRegistry) FindAll(_ context.Context) ([]domain.TrackedLocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.TrackedLocation, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, *cloneLocation(r.locations[id]))
	}

	return result, nil
}

func (r *LocationRegistry) Save(_ context.Context, location *domain.TrackedLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.locations[location.ID]; !exists {
		r.order = append(r.order, location.ID)
	}

	r.locations[location.ID] = *cloneLocation(*location)

	return nil
}

func (r *LocationRegistry) UpdateSyncStatus(_ context.Context, id string, status domain.SyncStatus, lastSyncAt *time.Time, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	location, ok := r.locations[id]
	if !ok {
		return false, nil
	}

	location.SyncStatus = status
	location.UpdatedAt = at

	if lastSyncAt != nil {
		syncedAt := *lastSyncAt
		location.LastSyncAt = &syncedAt
	}

	r.locations[id] = location

	return true, nil
}

func (r *LocationRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.locations[id]; !exists {
		return nil
	}

	delete(r.locations, id)

	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return nil
}

func cloneLocation(location domain.TrackedLocation) *domain.TrackedLocation {
	if location.LastSyncAt != nil {
		syncedAt := *location.LastSyncAt
		location.LastSyncAt = &syncedAt
	}

	return &location
}
