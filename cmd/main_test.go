package main

import (
	"testing"

	"gorm.io/gorm/logger"
)

func TestAdminDSNFor(t *testing.T) {
	name, admin, err := adminDSNFor("postgres://u:p@localhost:5432/polywatch?sslmode=disable")
	if err != nil {
		t.Fatalf("adminDSNFor failed: %v", err)
	}
	if name != "polywatch" {
		t.Errorf("db name = %q", name)
	}
	if admin != "postgres://u:p@localhost:5432/postgres?sslmode=disable" {
		t.Errorf("admin dsn = %q", admin)
	}

	name, _, err = adminDSNFor("postgres://u:p@localhost:5432/postgres")
	if err != nil || name != "" {
		t.Errorf("postgres db should not be created: %q %v", name, err)
	}
}

func TestGormLogLevel(t *testing.T) {
	if gormLogLevel("INFO") != logger.Info || gormLogLevel("silent") != logger.Silent || gormLogLevel("") != logger.Warn {
		t.Fatalf("unexpected log level mapping")
	}
}
