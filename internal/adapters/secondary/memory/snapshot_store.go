package memory

import (
	"context"
	"sync"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

// SnapshotStore keeps a time-ordered history of snapshots per location.
type SnapshotStore struct {
	mu sync.RWMutex

	// key: location id, value: snapshots oldest first
	history map[string][]domain.WeatherSnapshot

	// maxHistory caps snapshots kept per location; <= 0 is unlimited
	maxHistory int
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore creates a store retaining at most maxHistory snapshots per location.
func NewSnapshotStore(maxHistory int) *SnapshotStore {
	return &SnapshotStore{
		history:    make(map[string][]domain.WeatherSnapshot),
		maxHistory: maxHistory,
	}
}

func (s *SnapshotStore) FindLatestByLocation(_ context.Context, locationID string) (*domain.WeatherSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := s.history[locationID]
	if len(snapshots) == 0 {
		return nil, nil
	}

	latest := snapshots[len(snapshots)-1]

	return &latest, nil
}

func (s *SnapshotStore) FindByLocation(_ context.Context, locationID string, page, size int) ([]domain.WeatherSnapshot, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := s.history[locationID]
	total := len(snapshots)

	start := page * size
	if start >= total {
		return []domain.WeatherSnapshot{}, total, nil
	}

	end := start + size
	if end > total {
		end = total
	}

	result := make([]domain.WeatherSnapshot, 0, end-start)
	for i := start; i < end; i++ {
		result = append(result, snapshots[total-1-i])
	}

	return result, total, nil
}

// Save appends the snapshot and enforces retention.
func (s *SnapshotStore) Save(_ context.Context, snapshot *domain.WeatherSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots := append(s.history[snapshot.LocationID], *snapshot)

	if s.maxHistory > 0 && len(snapshots) > s.maxHistory {
		over := len(snapshots) - s.maxHistory
		snapshots = append([]domain.WeatherSnapshot(nil), snapshots[over:]...)
	}

	s.history[snapshot.LocationID] = snapshots

	return nil
}

func (s *SnapshotStore) DeleteByLocation(_ context.Context, locationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, locationID)

	return nil
}
