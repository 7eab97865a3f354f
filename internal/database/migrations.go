package database

import (
	"github.com/quickride/quickride-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.DriverLocation{},
		&models.RideRequest{},
		&models.Ride{},
		&models.Notification{},
		&models.NotificationPreference{},
	)
	if err != nil {
		return err
	}

	// Constrain user_type at the database level
	if db.Migrator().HasTable(&models.User{}) {
		db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_user_type_check`)
		db.Exec(`ALTER TABLE users ADD CONSTRAINT users_user_type_check CHECK (user_type IN ('rider', 'driver', 'admin'))`)
	}

	// One non-cancelled ride per request. The partial unique index backs the
	// accept-time claim guard.
	if db.Migrator().HasTable(&models.Ride{}) {
		if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_rides_active_request
			ON rides (request_id) WHERE status != 'cancelled' AND deleted_at IS NULL`).Error; err != nil {
			return err
		}
	}

	return nil
}
