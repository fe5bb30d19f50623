package database

import (
	"errors"
	"strings"
	"testing"

	"eshop/internal/config"
	"eshop/internal/logger"

	"github.com/DATA-DOG/go-sqlmock"
)

func testLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		wantErr bool
	}{
		{name: "reachable"},
		{name: "ping fails", pingErr: errors.New("connection reset by peer"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			if err != nil {
				t.Fatalf("failed to create sqlmock: %v", err)
			}
			defer sqlDB.Close()

			mock.ExpectPing().WillReturnError(tt.pingErr)

			err = (&DB{DB: sqlDB}).Health()
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestNilDB(t *testing.T) {
	var db *DB
	if err := db.Health(); err == nil {
		t.Fatalf("health of nil db must fail")
	}
	if err := db.Migrate(testLogger()); err == nil {
		t.Fatalf("migrate of nil db must fail")
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close of nil db must be a no-op, got %v", err)
	}
}

func TestClose(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	mock.ExpectClose()

	if err := (&DB{DB: sqlDB}).Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "127.0.0.1", Port: "1", User: "u", Password: "p", DBName: "eshop", SSLMode: "disable"}
	_, err := Connect(cfg, testLogger())
	if err == nil || !strings.Contains(err.Error(), "failed to connect") {
		t.Fatalf("expected connect error, got %v", err)
	}
}

func TestInitMigration_CreatesStoreSchema(t *testing.T) {
	raw, err := embedMigrations.ReadFile("migrations/00001_init.sql")
	if err != nil {
		t.Fatalf("init migration is not embedded: %v", err)
	}
	sql := string(raw)

	up, down, ok := strings.Cut(sql, "-- +goose Down")
	if !ok || !strings.Contains(up, "-- +goose Up") {
		t.Fatalf("migration must have goose Up and Down sections")
	}

	tables := []string{
		"users", "categories", "products", "product_images", "orders",
		"order_items", "ratings", "cart_items", "wishlist_items", "search_history",
	}
	for _, table := range tables {
		if !strings.Contains(up, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("up section does not create %s", table)
		}
		if !strings.Contains(down, "DROP TABLE IF EXISTS "+table+";") {
			t.Fatalf("down section does not drop %s", table)
		}
	}
}
