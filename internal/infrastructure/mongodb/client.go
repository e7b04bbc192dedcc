// Package mongodb implements the location registry and snapshot store on MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	locationsCollection = "tracked_locations"
	snapshotsCollection = "weather_snapshots"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI            string
	Database       string
	Username       string
	Password       string
	AuthSource     string
	ConnectTimeout time.Duration
}

// Connect opens a client and verifies it with a ping.
//
// Parameters:
//   - ctx: Context for the connection attempt
//   - cfg: Connection settings
//   - logger: Zap logger for connection events
//
// Returns:
//   - *mongo.Client: Connected client
//   - error: Connection or ping error
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	if cfg.Username != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	clientOptions.SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info("connected to mongodb", zap.String("database", cfg.Database))

	return client, nil
}

// Disconnect closes the client.
func Disconnect(ctx context.Context, client *mongo.Client, logger *zap.Logger) error {
	if err := client.Disconnect(ctx); err != nil {
		return err
	}

	logger.Info("disconnected from mongodb")

	return nil
}

// EnsureIndexes creates the indexes both stores rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(locationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}, {Key: "country", Value: 1}},
		Options: options.Index().
			SetName("uniq_city").
			SetUnique(true).
			SetCollation(&options.Collation{Locale: "en", Strength: 2}),
	})
	if err != nil {
		return fmt.Errorf("failed to create location index: %w", err)
	}

	_, err = db.Collection(snapshotsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "location_id", Value: 1}, {Key: "fetched_at", Value: -1}},
		Options: options.Index().SetName("location_fetched_at"),
	})
	if err != nil {
		return fmt.Errorf("failed to create snapshot index: %w", err)
	}

	return nil
}
