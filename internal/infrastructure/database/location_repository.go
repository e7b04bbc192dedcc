package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

const uniqueViolation = "23505"

// LocationRepository stores tracked locations in PostgreSQL.
type LocationRepository struct {
	pg *PostgresDB
}

var _ ports.LocationRegistry = (*LocationRepository)(nil)

func NewLocationRepository(pg *PostgresDB) *LocationRepository {
	return &LocationRepository{pg: pg}
}

const locationColumns = `id, name, country, country_code, admin1, latitude, longitude,
	favorite, last_sync_at, sync_status, created_at, updated_at`

func (r *LocationRepository) FindByID(ctx context.Context, id string) (location *domain.TrackedLocation, err error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "LocationRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.String("location.id", id))

	start := time.Now()
	defer func() { r.pg.observe(ctx, "location.find_by_id", start, err) }()

	row := r.pg.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM tracked_locations WHERE id = $1`, id)

	location, err = scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query location: %w", err)
	}

	return location, nil
}

func (r *LocationRepository) FindAll(ctx context.Context) (locations []domain.TrackedLocation, err error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "LocationRepository.FindAll")
	defer span.End()

	start := time.Now()
	defer func() { r.pg.observe(ctx, "location.find_all", start, err) }()

	rows, err := r.pg.db.QueryContext(ctx, `SELECT `+locationColumns+` FROM tracked_locations ORDER BY created_at, id`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	locations = []domain.TrackedLocation{}

	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}

		locations = append(locations, *location)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate locations: %w", err)
	}

	return locations, nil
}

func (r *LocationRepository) Save(ctx context.Context, location *domain.TrackedLocation) (err error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "LocationRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("location.id", location.ID),
		attribute.String("location.sync_status", string(location.SyncStatus)),
	)

	start := time.Now()
	defer func() { r.pg.observe(ctx, "location.save", start, err) }()

	query := `
		INSERT INTO tracked_locations (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			country_code = EXCLUDED.country_code,
			admin1 = EXCLUDED.admin1,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			favorite = EXCLUDED.favorite,
			last_sync_at = EXCLUDED.last_sync_at,
			sync_status = EXCLUDED.sync_status,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pg.db.ExecContext(ctx, query,
		location.ID,
		location.Name,
		location.Country,
		nullString(location.CountryCode),
		nullString(location.Admin1),
		location.Coordinates.Latitude,
		location.Coordinates.Longitude,
		location.Favorite,
		location.LastSyncAt,
		string(location.SyncStatus),
		location.CreatedAt,
		location.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.Duplicate(fmt.Sprintf("%s, %s is already tracked", location.Name, location.Country))
	}

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save location: %w", err)
	}

	return nil
}

// UpdateSyncStatus touches only the engine-owned columns of an existing row.
func (r *LocationRepository) UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus, lastSyncAt *time.Time, at time.Time) (updated bool, err error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "LocationRepository.UpdateSyncStatus")
	defer span.End()

	span.SetAttributes(
		attribute.String("location.id", id),
		attribute.String("location.sync_status", string(status)),
	)

	start := time.Now()
	defer func() { r.pg.observe(ctx, "location.update_sync_status", start, err) }()

	res, err := r.pg.db.ExecContext(ctx, `
		UPDATE tracked_locations
		SET sync_status = $2,
			last_sync_at = COALESCE($3::timestamptz, last_sync_at),
			updated_at = $4
		WHERE id = $1`,
		id, string(status), lastSyncAt, at,
	)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to update sync status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *LocationRepository) Delete(ctx context.Context, id string) (err error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "LocationRepository.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("location.id", id))

	start := time.Now()
	defer func() { r.pg.observe(ctx, "location.delete", start, err) }()

	if _, err = r.pg.db.ExecContext(ctx, `DELETE FROM tracked_locations WHERE id = $1`, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete location: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLocation(row rowScanner) (*domain.TrackedLocation, error) {
	var (
		location    domain.TrackedLocation
		countryCode sql.NullString
		admin1      sql.NullString
		lastSyncAt  sql.NullTime
		status      string
	)

	err := row.Scan(
		&location.ID,
		&location.Name,
		&location.Country,
		&countryCode,
		&admin1,
		&location.Coordinates.Latitude,
		&location.Coordinates.Longitude,
		&location.Favorite,
		&lastSyncAt,
		&status,
		&location.CreatedAt,
		&location.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	location.CountryCode = countryCode.String
	location.Admin1 = admin1.String
	location.SyncStatus = domain.SyncStatus(status)

	if lastSyncAt.Valid {
		syncedAt := lastSyncAt.Time
		location.LastSyncAt = &syncedAt
	}

	return &location, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
