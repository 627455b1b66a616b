package database

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// ConnectionConfig holds the pool settings for a Postgres connection
type ConnectionConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Connect opens a Postgres connection pool and verifies it with a ping
func Connect(ctx context.Context, cfg ConnectionConfig, logger ectologger.Logger) (DB, error) {
	sqlxDB, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}

	sqlxDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlxDB.PingContext(ctx); err != nil {
		sqlxDB.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	logger.WithContext(ctx).Debug("Connected to database")
	return NewDatabaseInstance(sqlxDB, logger), nil
}

// MigrateUp runs pending migrations against an open connection
func MigrateUp(db DB, databaseName string, logger ectologger.Logger, cfg *MigrationConfig) error {
	driver, err := migratepg.WithInstance(db.GetDB().DB, &migratepg.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to create migration driver")
	}

	return NewMigrationService(logger, cfg).Migrate(databaseName, driver)
}
