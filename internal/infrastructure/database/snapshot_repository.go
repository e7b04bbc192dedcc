package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

// SnapshotRepository stores weather snapshots in PostgreSQL.
// Forecast series and current conditions are kept as JSONB documents.
type SnapshotRepository struct {
	pg *PostgresDB
}

var _ ports.SnapshotStore = (*SnapshotRepository)(nil)

func NewSnapshotRepository(pg *PostgresDB) *SnapshotRepository {
	return &SnapshotRepository{pg: pg}
}

const snapshotColumns = `id, location_id, fetched_at, units, timezone, current_conditions,
	hourly, daily, conflict_detected, conflict_description`

func (r *SnapshotRepository) FindLatestByLocation(ctx context.Context, locationID string) (snapshot *domain.WeatherSnapshot, err error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "SnapshotRepository.FindLatestByLocation")
	defer span.End()

	span.SetAttributes(attribute.String("location.id", locationID))

	start := time.Now()
	defer func() { r.pg.observe(ctx, "snapshot.find_latest", start, err) }()

	row := r.pg.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM weather_snapshots
		 WHERE location_id = $1 ORDER BY fetched_at DESC, id DESC LIMIT 1`, locationID)

	snapshot, err = scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	return snapshot, nil
}

func (r *SnapshotRepository) FindByLocation(ctx context.Context, locationID string, page, size int) (snapshots []domain.WeatherSnapshot, total int, err error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "SnapshotRepository.FindByLocation")
	defer span.End()

	span.SetAttributes(
		attribute.String("location.id", locationID),
		attribute.Int("page", page),
		attribute.Int("size", size),
	)

	start := time.Now()
	defer func() { r.pg.observe(ctx, "snapshot.find_by_location", start, err) }()

	if err = r.pg.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM weather_snapshots WHERE location_id = $1`, locationID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	rows, err := r.pg.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM weather_snapshots
		 WHERE location_id = $1 ORDER BY fetched_at DESC, id DESC LIMIT $2 OFFSET $3`,
		locationID, size, page*size)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots = []domain.WeatherSnapshot{}

	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		snapshots = append(snapshots, *snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, total, nil
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot *domain.WeatherSnapshot) (err error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "SnapshotRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("snapshot.id", snapshot.ID),
		attribute.String("location.id", snapshot.LocationID),
	)

	start := time.Now()
	defer func() { r.pg.observe(ctx, "snapshot.save", start, err) }()

	// lib/pq sends []byte as bytea, so JSONB parameters are passed as text
	var current sql.NullString
	if snapshot.Current != nil {
		encoded, err := json.Marshal(snapshot.Current)
		if err != nil {
			return fmt.Errorf("failed to encode current conditions: %w", err)
		}

		current = sql.NullString{String: string(encoded), Valid: true}
	}

	hourly, err := json.Marshal(nonNilHourly(snapshot.Hourly))
	if err != nil {
		return fmt.Errorf("failed to encode hourly forecast: %w", err)
	}

	daily, err := json.Marshal(nonNilDaily(snapshot.Daily))
	if err != nil {
		return fmt.Errorf("failed to encode daily forecast: %w", err)
	}

	_, err = r.pg.db.ExecContext(ctx,
		`INSERT INTO weather_snapshots (`+snapshotColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		snapshot.ID,
		snapshot.LocationID,
		snapshot.FetchedAt,
		string(snapshot.Units),
		nullString(snapshot.Timezone),
		current,
		string(hourly),
		string(daily),
		snapshot.ConflictDetected,
		nullString(snapshot.ConflictDescription),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

func (r *SnapshotRepository) DeleteByLocation(ctx context.Context, locationID string) (err error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "SnapshotRepository.DeleteByLocation")
	defer span.End()

	span.SetAttributes(attribute.String("location.id", locationID))

	start := time.Now()
	defer func() { r.pg.observe(ctx, "snapshot.delete_by_location", start, err) }()

	if _, err = r.pg.db.ExecContext(ctx, `DELETE FROM weather_snapshots WHERE location_id = $1`, locationID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}

	return nil
}

func scanSnapshot(row rowScanner) (*domain.WeatherSnapshot, error) {
	var (
		snapshot    domain.WeatherSnapshot
		units       string
		timezone    sql.NullString
		current     []byte
		hourly      []byte
		daily       []byte
		description sql.NullString
	)

	err := row.Scan(
		&snapshot.ID,
		&snapshot.LocationID,
		&snapshot.FetchedAt,
		&units,
		&timezone,
		&current,
		&hourly,
		&daily,
		&snapshot.ConflictDetected,
		&description,
	)
	if err != nil {
		return nil, err
	}

	snapshot.Units = domain.Units(units)
	snapshot.Timezone = timezone.String
	snapshot.ConflictDescription = description.String

	if len(current) > 0 {
		snapshot.Current = &domain.CurrentConditions{}
		if err := json.Unmarshal(current, snapshot.Current); err != nil {
			return nil, fmt.Errorf("failed to decode current conditions: %w", err)
		}
	}

	if err := json.Unmarshal(hourly, &snapshot.Hourly); err != nil {
		return nil, fmt.Errorf("failed to decode hourly forecast: %w", err)
	}

	if err := json.Unmarshal(daily, &snapshot.Daily); err != nil {
		return nil, fmt.Errorf("failed to decode daily forecast: %w", err)
	}

	return &snapshot, nil
}

func nonNilHourly(points []domain.HourlyPoint) []domain.HourlyPoint {
	if points == nil {
		return []domain.HourlyPoint{}
	}

	return points
}

func nonNilDaily(points []domain.DailyPoint) []domain.DailyPoint {
	if points == nil {
		return []domain.DailyPoint{}
	}

	return points
}
