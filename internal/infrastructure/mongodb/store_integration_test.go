//go:build integration

package mongodb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/suite"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
)

type MongoStoreSuite struct {
	suite.Suite
	container tc.Container
	client    *mongo.Client
	db        *mongo.Database
	locations *LocationStore
	snapshots *SnapshotStore
}

func setupMongoContainer(ctx context.Context) (tc.Container, string, error) {
	req := tc.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		Env: map[string]string{
			"MONGO_INITDB_ROOT_USERNAME": "admin",
			"MONGO_INITDB_ROOT_PASSWORD": "password",
		},
		WaitingFor: wait.ForListeningPort("27017/tcp"),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", err
	}

	port, err := container.MappedPort(ctx, nat.Port("27017"))
	if err != nil {
		return nil, "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, "", err
	}

	return container, fmt.Sprintf("mongodb://admin:password@%s:%s", host, port.Port()), nil
}

func (s *MongoStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, uri, err := setupMongoContainer(ctx)
	s.Require().NoError(err)
	s.container = container

	s.client, err = Connect(ctx, Config{URI: uri, Database: "weather_tracker_test"}, zap.NewNop())
	s.Require().NoError(err)

	s.db = s.client.Database("weather_tracker_test")
	s.Require().NoError(EnsureIndexes(ctx, s.db))

	s.locations = NewLocationStore(s.db)
	s.snapshots = NewSnapshotStore(s.db)
}

func (s *MongoStoreSuite) TearDownSuite() {
	ctx := context.Background()

	if s.client != nil {
		_ = Disconnect(ctx, s.client, zap.NewNop())
	}

	if s.container != nil {
		_ = s.container.Terminate(ctx)
	}
}

func (s *MongoStoreSuite) SetupTest() {
	s.Require().NoError(s.db.Collection(locationsCollection).Drop(context.Background()))
	s.Require().NoError(s.db.Collection(snapshotsCollection).Drop(context.Background()))
	s.Require().NoError(EnsureIndexes(context.Background(), s.db))
}

func newLocation(id, name string, createdAt time.Time) *domain.TrackedLocation {
	return &domain.TrackedLocation{
		ID:          id,
		Name:        name,
		Country:     "Zimbabwe",
		Coordinates: domain.Coordinates{Latitude: -17.9243, Longitude: 25.8572},
		SyncStatus:  domain.SyncStatusNeverSynced,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func (s *MongoStoreSuite) TestLocationLifecycle() {
	ctx := context.Background()
	created := time.Date(2024, 10, 14, 12, 0, 0, 0, time.UTC)

	missing, err := s.locations.FindByID(ctx, "missing")
	s.Require().NoError(err)
	s.Nil(missing)

	s.Require().NoError(s.locations.Save(ctx, newLocation("loc-2", "Hwange", created.Add(time.Minute))))
	s.Require().NoError(s.locations.Save(ctx, newLocation("loc-1", "Victoria Falls", created)))

	location, err := s.locations.FindByID(ctx, "loc-1")
	s.Require().NoError(err)
	s.Require().NotNil(location)

	location.MarkSuccess(created.Add(time.Hour))
	s.Require().NoError(s.locations.Save(ctx, location))

	reloaded, err := s.locations.FindByID(ctx, "loc-1")
	s.Require().NoError(err)
	s.Equal(domain.SyncStatusSuccess, reloaded.SyncStatus)
	s.Require().NotNil(reloaded.LastSyncAt)
	s.True(reloaded.LastSyncAt.Equal(created.Add(time.Hour)))

	all, err := s.locations.FindAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("loc-1", all[0].ID)
	s.Equal("loc-2", all[1].ID)

	err = s.locations.Save(ctx, newLocation("loc-3", "victoria falls", created))
	s.True(domain.IsKind(err, domain.KindDuplicate))

	s.Require().NoError(s.locations.Delete(ctx, "loc-2"))

	all, err = s.locations.FindAll(ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *MongoStoreSuite) TestUpdateSyncStatus() {
	ctx := context.Background()
	created := time.Date(2024, 10, 14, 12, 0, 0, 0, time.UTC)
	syncedAt := created.Add(time.Hour)

	updated, err := s.locations.UpdateSyncStatus(ctx, "missing", domain.SyncStatusSuccess, &syncedAt, syncedAt)
	s.Require().NoError(err)
	s.False(updated)

	all, err := s.locations.FindAll(ctx)
	s.Require().NoError(err)
	s.Empty(all)

	location := newLocation("loc-1", "Vic Falls", created)
	location.Favorite = true
	s.Require().NoError(s.locations.Save(ctx, location))

	updated, err = s.locations.UpdateSyncStatus(ctx, "loc-1", domain.SyncStatusSuccess, &syncedAt, syncedAt)
	s.Require().NoError(err)
	s.True(updated)

	updated, err = s.locations.UpdateSyncStatus(ctx, "loc-1", domain.SyncStatusFailed, nil, syncedAt.Add(time.Hour))
	s.Require().NoError(err)
	s.True(updated)

	reloaded, err := s.locations.FindByID(ctx, "loc-1")
	s.Require().NoError(err)
	s.Equal(domain.SyncStatusFailed, reloaded.SyncStatus)
	s.Require().NotNil(reloaded.LastSyncAt)
	s.True(reloaded.LastSyncAt.Equal(syncedAt))
	s.Equal("Vic Falls", reloaded.Name)
	s.True(reloaded.Favorite)
}

func (s *MongoStoreSuite) TestSnapshotHistory() {
	ctx := context.Background()
	base := time.Date(2024, 10, 14, 12, 0, 0, 0, time.UTC)
	temp := 28.5

	latest, err := s.snapshots.FindLatestByLocation(ctx, "loc-1")
	s.Require().NoError(err)
	s.Nil(latest)

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.snapshots.Save(ctx, &domain.WeatherSnapshot{
			ID:         fmt.Sprintf("snap-%d", i),
			LocationID: "loc-1",
			Current:    &domain.CurrentConditions{Temperature: &temp, Description: "Clear sky"},
			Hourly:     []domain.HourlyPoint{{Time: "2024-10-14T00:00", Description: "Clear sky"}},
			Daily:      []domain.DailyPoint{},
			Units:      domain.Metric,
			FetchedAt:  base.Add(time.Duration(i) * time.Hour),
		}))
	}

	latest, err = s.snapshots.FindLatestByLocation(ctx, "loc-1")
	s.Require().NoError(err)
	s.Equal("snap-2", latest.ID)
	s.InDelta(28.5, *latest.Current.Temperature, 0.0001)
	s.Nil(latest.Current.Humidity)

	page, total, err := s.snapshots.FindByLocation(ctx, "loc-1", 1, 2)
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(page, 1)
	s.Equal("snap-0", page[0].ID)

	s.Require().NoError(s.snapshots.DeleteByLocation(ctx, "loc-1"))

	_, total, err = s.snapshots.FindByLocation(ctx, "loc-1", 0, 10)
	s.Require().NoError(err)
	s.Zero(total)
}

func TestMongoStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container tests in short mode")
	}

	suite.Run(t, new(MongoStoreSuite))
}
