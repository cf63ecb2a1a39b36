// Package dbtest opens throwaway SQLite stores for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"go-gin-timeclock/internal/core/database"
	"go-gin-timeclock/internal/repo"
)

// Open returns a migrated database living in t.TempDir().
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000",
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
