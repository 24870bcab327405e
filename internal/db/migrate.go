package db

import (
	"fmt"

	"github.com/sujalkunwar22/backend/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.LawyerProfile{},
		&models.Appointment{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
		&models.Document{},
		&models.Review{},
		&models.VerificationRequest{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// OpenTest opens a migrated in-memory SQLite database. It is shared by the
// package tests across the module.
func OpenTest() (*gorm.DB, error) {
	db, err := Connect(DriverSQLite, ":memory:")
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
