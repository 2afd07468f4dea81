package services

import (
	"testing"

	"birdhouse-viewer/be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerCanAccessAfterRegistration(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)

	owner := createUser(t, db, "owner@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	ok, err := access.CanAccess(owner.ID, device.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	isOwner, err := access.IsOwner(owner.ID, device.ID)
	require.NoError(t, err)
	assert.True(t, isOwner)
}

func TestStrangerHasNoAccess(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)

	owner := createUser(t, db, "owner@example.com")
	stranger := createUser(t, db, "stranger@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	ok, err := access.CanAccess(stranger.ID, device.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	isOwner, err := access.IsOwner(stranger.ID, device.ID)
	require.NoError(t, err)
	assert.False(t, isOwner)
}

func TestViewerCanAccessButIsNotOwner(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)

	owner := createUser(t, db, "owner@example.com")
	viewer := createUser(t, db, "viewer@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	require.NoError(t, db.Create(&models.DeviceShare{
		DeviceID: device.ID,
		UserID:   viewer.ID,
		Role:     models.RoleViewer,
	}).Error)

	ok, err := access.CanAccess(viewer.ID, device.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	isOwner, err := access.IsOwner(viewer.ID, device.ID)
	require.NoError(t, err)
	assert.False(t, isOwner)
}

func TestAccessChecksOnMissingDevice(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	user := createUser(t, db, "user@example.com")

	_, err := access.CanAccess(user.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = access.IsOwner(user.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccessRevokedByDeviceDeletion(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)

	owner := createUser(t, db, "owner@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	require.NoError(t, db.Delete(&models.Device{}, device.ID).Error)

	_, err := access.CanAccess(owner.ID, device.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
