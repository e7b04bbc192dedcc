package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
	"github.com/sean-rowe/weather-tracker/internal/core/services"
)

// MockSyncService is a mock implementation of the SyncService interface.
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) SyncOne(ctx context.Context, locationID string) (domain.SyncResult, error) {
	args := m.Called(ctx, locationID)
	return args.Get(0).(domain.SyncResult), args.Error(1)
}

func (m *MockSyncService) SyncAll(ctx context.Context) ([]domain.SyncResult, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.SyncResult), args.Error(1)
}

func (m *MockSyncService) ScheduledSync(ctx context.Context) ([]domain.SyncResult, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.SyncResult), args.Error(1)
}

func (m *MockSyncService) GetLatestWeather(ctx context.Context, locationID string) (*domain.WeatherSnapshot, error) {
	args := m.Called(ctx, locationID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.WeatherSnapshot), args.Error(1)
}

func (m *MockSyncService) GetHistory(ctx context.Context, locationID string, page, size int) ([]domain.WeatherSnapshot, int, error) {
	args := m.Called(ctx, locationID, page, size)

	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}

	return args.Get(0).([]domain.WeatherSnapshot), args.Int(1), args.Error(2)
}

func (m *MockSyncService) SearchCities(ctx context.Context, query string) ([]domain.GeocodingResult, error) {
	args := m.Called(ctx, query)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.GeocodingResult), args.Error(1)
}

// MockLocationService is a mock implementation of the LocationService interface.
type MockLocationService struct {
	mock.Mock
}

func (m *MockLocationService) Create(ctx context.Context, input ports.CreateLocationInput) (*domain.TrackedLocation, error) {
	args := m.Called(ctx, input)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.TrackedLocation), args.Error(1)
}

func (m *MockLocationService) Get(ctx context.Context, id string) (*domain.TrackedLocation, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.TrackedLocation), args.Error(1)
}

func (m *MockLocationService) List(ctx context.Context) ([]domain.TrackedLocation, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.TrackedLocation), args.Error(1)
}

func (m *MockLocationService) Update(ctx context.Context, id string, input ports.UpdateLocationInput) (*domain.TrackedLocation, error) {
	args := m.Called(ctx, id, input)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.TrackedLocation), args.Error(1)
}

func (m *MockLocationService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type testAPI struct {
	router    *mux.Router
	sync      *MockSyncService
	locations *MockLocationService
}

func newTestAPI() *testAPI {
	logger := zap.NewNop()
	syncService := new(MockSyncService)
	locationService := new(MockLocationService)

	router := mux.NewRouter()
	RegisterRoutes(router.PathPrefix("/api/v1").Subrouter(), Handlers{
		Locations:   NewLocationHandler(locationService, logger),
		Weather:     NewWeatherHandler(syncService, logger),
		Preferences: NewPreferenceHandler(services.NewPreferenceService(domain.Metric, logger), logger),
	})

	return &testAPI{router: router, sync: syncService, locations: locationService}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	return rec
}
