package main

import (
	"database/sql"
	"flag"
	"log"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/config"
	"github.com/sean-rowe/weather-tracker/internal/infrastructure/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbCfg := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}

	var (
		action  = flag.String("action", "up", "Migration action: up, down, goto, force, version")
		version = flag.Int("version", 0, "Target version for goto or force")
	)

	flag.StringVar(&dbCfg.Host, "host", dbCfg.Host, "Database host")
	flag.IntVar(&dbCfg.Port, "port", dbCfg.Port, "Database port")
	flag.StringVar(&dbCfg.User, "user", dbCfg.User, "Database user")
	flag.StringVar(&dbCfg.Password, "password", dbCfg.Password, "Database password")
	flag.StringVar(&dbCfg.Database, "database", dbCfg.Database, "Database name")
	flag.StringVar(&dbCfg.SSLMode, "sslmode", dbCfg.SSLMode, "SSL mode")

	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	defer func() { _ = logger.Sync() }()

	db, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	switch *action {
	case "up":
		if err := database.RunMigrations(db, logger); err != nil {
			logger.Fatal("Migration failed", zap.Error(err))
		}

		logger.Info("Migrations completed successfully")

	case "down":
		if err := database.MigrateDown(db, logger); err != nil {
			logger.Fatal("Rollback failed", zap.Error(err))
		}

		logger.Info("Rollback completed successfully")

	case "goto":
		if *version <= 0 {
			logger.Fatal("A positive version must be specified with -version")
		}

		if err := database.MigrateToVersion(db, uint(*version), logger); err != nil {
			logger.Fatal("Migration to version failed",
				zap.Int("version", *version),
				zap.Error(err))
		}

		logger.Info("Migration to version completed", zap.Int("version", *version))

	case "force":
		// -1 marks the database as having no migrations applied
		if *version == 0 || *version < -1 {
			logger.Fatal("Version must be -1 or positive for force")
		}

		if err := database.ForceVersion(db, *version, logger); err != nil {
			logger.Fatal("Force version failed",
				zap.Int("version", *version),
				zap.Error(err))
		}

		logger.Info("Forced migration version", zap.Int("version", *version))

	case "version":
		current, dirty, err := database.CurrentVersion(db)
		if err != nil {
			logger.Fatal("Failed to read migration version", zap.Error(err))
		}

		logger.Info("Current migration version",
			zap.Uint("version", current),
			zap.Bool("dirty", dirty))

	default:
		logger.Fatal("Invalid action", zap.String("action", *action))
	}
}
