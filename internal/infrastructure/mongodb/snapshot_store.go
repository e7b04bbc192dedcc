package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

// SnapshotStore keeps each snapshot as one document.
type SnapshotStore struct {
	coll *mongo.Collection
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

func NewSnapshotStore(db *mongo.Database) *SnapshotStore {
	return &SnapshotStore{coll: db.Collection(snapshotsCollection)}
}

var newestFirst = bson.D{{Key: "fetched_at", Value: -1}, {Key: "_id", Value: -1}}

func (s *SnapshotStore) FindLatestByLocation(ctx context.Context, locationID string) (*domain.WeatherSnapshot, error) {
	ctx, span := otel.Tracer("mongodb").Start(ctx, "SnapshotStore.FindLatestByLocation")
	defer span.End()

	span.SetAttributes(attribute.String("location.id", locationID))

	var snapshot domain.WeatherSnapshot

	err := s.coll.FindOne(ctx, bson.M{"location_id": locationID}, options.FindOne().SetSort(newestFirst)).Decode(&snapshot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find latest snapshot: %w", err)
	}

	return &snapshot, nil
}

func (s *SnapshotStore) FindByLocation(ctx context.Context, locationID string, page, size int) ([]domain.WeatherSnapshot, int, error) {
	ctx, span := otel.Tracer("mongodb").Start(ctx, "SnapshotStore.FindByLocation")
	defer span.End()

	filter := bson.M{"location_id": locationID}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(page * size)).
		SetLimit(int64(size))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	snapshots := []domain.WeatherSnapshot{}
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, 0, fmt.Errorf("failed to decode snapshots: %w", err)
	}

	return snapshots, int(total), nil
}

func (s *SnapshotStore) Save(ctx context.Context, snapshot *domain.WeatherSnapshot) error {
	ctx, span := otel.Tracer("mongodb").Start(ctx, "SnapshotStore.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("snapshot.id", snapshot.ID),
		attribute.String("location.id", snapshot.LocationID),
	)

	if _, err := s.coll.InsertOne(ctx, snapshot); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

func (s *SnapshotStore) DeleteByLocation(ctx context.Context, locationID string) error {
	ctx, span := otel.Tracer("mongodb").Start(ctx, "SnapshotStore.DeleteByLocation")
	defer span.End()

	if _, err := s.coll.DeleteMany(ctx, bson.M{"location_id": locationID}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}

	return nil
}
