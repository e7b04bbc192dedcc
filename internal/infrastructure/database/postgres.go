package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type PostgresDB struct {
	db       *sql.DB
	logger   *zap.Logger
	recorder QueryRecorder
}

type Config struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Database              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration

	// AutoMigrate applies pending migrations on connect
	AutoMigrate bool
}

// QueryRecorder receives query timings; observability.Telemetry satisfies it.
type QueryRecorder interface {
	RecordDBQuery(ctx context.Context, operation string, duration time.Duration, err error)
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func NewPostgresDB(cfg Config, logger *zap.Logger) (*PostgresDB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &PostgresDB{
		db:     db,
		logger: logger,
	}, nil
}

// SetRecorder attaches a query timing sink.
func (p *PostgresDB) SetRecorder(recorder QueryRecorder) {
	p.recorder = recorder
}

func (p *PostgresDB) observe(ctx context.Context, operation string, start time.Time, err error) {
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("database operation failed",
			zap.String("operation", operation),
			zap.Duration("duration", duration),
			zap.Error(err))
	} else {
		p.logger.Debug("database operation",
			zap.String("operation", operation),
			zap.Duration("duration", duration))
	}

	if p.recorder != nil {
		p.recorder.RecordDBQuery(ctx, operation, duration, err)
	}
}

func (p *PostgresDB) DB() *sql.DB {
	return p.db
}

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
