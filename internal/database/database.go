// Package database opens the relational store and keeps its schema current.
package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/devflow/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/devflow/backend/internal/model"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	// DriverSQLite selects the embedded SQLite store.
	DriverSQLite = "sqlite"
	// DriverPostgres selects a PostgreSQL server.
	DriverPostgres = "postgres"
)

var (
	errMissingPath = errors.New("database path is required")
	errMissingDSN  = errors.New("database dsn is required")
)

// Options selects and addresses the store.
type Options struct {
	Driver   string
	Path     string
	DSN      string
	LogLevel string
	Logger   *zap.Logger
}

// Open connects to the configured store and performs schema migrations.
func Open(options Options) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(options.Driver)) {
	case DriverSQLite, "":
		return OpenSQLite(options.Path, options.Logger, options.LogLevel)
	case DriverPostgres:
		return OpenPostgres(options.DSN, options.Logger, options.LogLevel)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", options.Driver)
	}
}

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger, logLevel string) (*gorm.DB, error) {
	if path == "" {
		return nil, errMissingPath
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig(logger, logLevel))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", DriverSQLite), zap.String("path", path))
	}
	return db, nil
}

// OpenPostgres establishes a PostgreSQL connection and performs schema migrations.
func OpenPostgres(dsn string, logger *zap.Logger, logLevel string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errMissingDSN
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(logger, logLevel))
	if err != nil {
		return nil, err
	}

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", DriverPostgres))
	}
	return db, nil
}

// Migrate creates or updates every table and applies pending data migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.SetupJoinTable(&model.Question{}, "Tags", &model.QuestionTagRelationship{}); err != nil {
		return err
	}
	tables := append(model.Tables(), &migrationRecord{})
	if err := db.AutoMigrate(tables...); err != nil {
		return err
	}
	return applyMigrations(db, logger)
}

func gormConfig(logger *zap.Logger, logLevel string) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logging.NewGormLogger(logger, logLevel),
	}
}
