package database

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"eshop/internal/config"
	"eshop/internal/logger"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

const defaultConnMaxLifetime = 5 * time.Minute

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DB оборачивает пул соединений с PostgreSQL
type DB struct {
	*sql.DB
}

// Connect открывает пул соединений и проверяет его ping-ом
func Connect(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	lifetime := defaultConnMaxLifetime
	if cfg.ConnMaxLifetimeMinutes > 0 {
		lifetime = time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute
	}
	sqlDB.SetConnMaxLifetime(lifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"host":    cfg.Host,
		"db_name": cfg.DBName,
	}).Info("Successfully connected to database")

	return &DB{DB: sqlDB}, nil
}

// Migrate применяет встроенные goose-миграции
func (db *DB) Migrate(log *logger.Logger) error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("database is not initialized")
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(log)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	log.Info("Database migrations applied")
	return nil
}

// Health проверяет доступность базы данных
func (db *DB) Health() error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("database is not initialized")
	}
	return db.Ping()
}

// Close закрывает пул соединений
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}
