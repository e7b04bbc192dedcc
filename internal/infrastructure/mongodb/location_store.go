package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

// LocationStore keeps tracked locations in a MongoDB collection.
type LocationStore struct {
	coll *mongo.Collection
}

var _ ports.LocationRegistry = (*LocationStore)(nil)

func NewLocationStore(db *mongo.Database) *LocationStore {
	return &LocationStore{coll: db.Collection(locationsCollection)}
}

func (s *LocationStore) FindByID(ctx context.Context, id string) (*domain.TrackedLocation, error) {
	ctx, span := otel.Tracer("mongodb").Start(ctx, "LocationStore.FindByID")
	defer span.End()

	span.SetAttributes(attribute.String("location.id", id))

	var location domain.TrackedLocation

	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&location)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find location: %w", err)
	}

	return &location, nil
}

func (s *LocationStore) FindAll(ctx context.Context) ([]domain.TrackedLocation, error) {
	ctx, span := otel.Tracer("mongodb").Start(ctx, "LocationStore.FindAll")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer cursor.Close(ctx)

	locations := []domain.TrackedLocation{}
	if err := cursor.All(ctx, &locations); err != nil {
		return nil, fmt.Errorf("failed to decode locations: %w", err)
	}

	return locations, nil
}

func (s *LocationStore) Save(ctx context.Context, location *domain.TrackedLocation) error {
	ctx, span := otel.Tracer("mongodb").Start(ctx, "LocationStore.Save")
	defer span.End()

	span.SetAttributes(attribute.String("location.id", location.ID))

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": location.ID}, location, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return domain.Duplicate(fmt.Sprintf("%s, %s is already tracked", location.Name, location.Country))
	}

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save location: %w", err)
	}

	return nil
}

// UpdateSyncStatus sets the engine-owned fields without upserting.
func (s *LocationStore) UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus, lastSyncAt *time.Time, at time.Time) (bool, error) {
	ctx, span := otel.Tracer("mongodb").Start(ctx, "LocationStore.UpdateSyncStatus")
	defer span.End()

	span.SetAttributes(
		attribute.String("location.id", id),
		attribute.String("location.sync_status", string(status)),
	)

	set := bson.M{"sync_status": status, "updated_at": at}
	if lastSyncAt != nil {
		set["last_sync_at"] = *lastSyncAt
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to update sync status: %w", err)
	}

	return res.MatchedCount > 0, nil
}

func (s *LocationStore) Delete(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("mongodb").Start(ctx, "LocationStore.Delete")
	defer span.End()

	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete location: %w", err)
	}

	return nil
}
