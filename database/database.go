package database

import (
	"fmt"

	"birdhouse-viewer/be/config"
	"birdhouse-viewer/be/logs"
	"birdhouse-viewer/be/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Surface unique violations as gorm.ErrDuplicatedKey; the session
		// start path relies on catching them.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logs.Logger.Info("Database initialized successfully")
	return db, nil
}

// Migrate runs AutoMigrate for every model. Split out from Initialize so
// tests can run it against their own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Device{},
		&models.DeviceShare{},
		&models.StreamSession{},
		&models.MotionEvent{},
		&models.PushSubscription{},
		&models.MotionVideo{},
	)
}
