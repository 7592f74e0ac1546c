// Package db manages the SQLite connection and the stream history repositories.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stwalsh4118/epgcast/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	// concurrent streams write steps; a blocked writer waits this long for the lock
	busyTimeoutMillis = 5000
	maxOpenConns      = 8
	maxIdleConns      = 2
	connMaxLifetime   = 30 * time.Minute
	pingTimeout       = 5 * time.Second
)

// DB wraps a GORM database connection
type DB struct {
	*gorm.DB
}

// New opens the SQLite database at dbPath (e.g. "./data/epgcast.db")
func New(dbPath string) (*DB, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d", dbPath, busyTimeoutMillis)

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", dbPath, err)
	}

	logger.Component("db").Debug().Str("path", dbPath).Msg("Database opened")
	return &DB{DB: gormDB}, nil
}

// Health pings the database; used by the health endpoint
func (db *DB) Health(ctx context.Context) error {
	sqlDB, err := db.GetSQLDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.GetSQLDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetSQLDB returns the underlying sql.DB, needed by RunMigrations
func (db *DB) GetSQLDB() (*sql.DB, error) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB, nil
}
