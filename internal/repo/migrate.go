package repo

import (
	"gorm.io/gorm"

	"go-gin-timeclock/internal/domain"
)

// AutoMigrate creates or updates every table the services persist to.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.TimeEntry{})
}
