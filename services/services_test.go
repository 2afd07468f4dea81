package services

import (
	"testing"

	"birdhouse-viewer/be/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Device{},
		&models.DeviceShare{},
		&models.StreamSession{},
		&models.MotionEvent{},
		&models.PushSubscription{},
		&models.MotionVideo{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{
		ExternalID: "ext-" + email,
		Email:      email,
		Name:       email,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createDevice(t *testing.T, db *gorm.DB, externalID string, ownerID uint) models.Device {
	t.Helper()
	device := models.Device{
		DeviceID: externalID,
		OwnerID:  ownerID,
		Name:     "Birdhouse " + externalID,
		Status:   "offline",
	}
	require.NoError(t, db.Create(&device).Error)
	return device
}

func createSubscription(t *testing.T, db *gorm.DB, userID uint, endpoint string) models.PushSubscription {
	t.Helper()
	sub := models.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256DH:   "p256dh-key",
		Auth:     "auth-key",
	}
	require.NoError(t, db.Create(&sub).Error)
	return sub
}
