package services

import (
	"testing"

	"birdhouse-viewer/be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareGrantsViewerAccess(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	sharing := NewSharingService(db, access)

	owner := createUser(t, db, "owner@example.com")
	viewer := createUser(t, db, "viewer@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	share, err := sharing.Share(device.ID, owner.ID, viewer.Email)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, share.Role)

	ok, err := access.CanAccess(viewer.ID, device.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, sharing.Unshare(device.ID, owner.ID, viewer.ID))

	ok, err = access.CanAccess(viewer.ID, device.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShareRejectsSelfShare(t *testing.T) {
	db := newTestDB(t)
	sharing := NewSharingService(db, NewAccessService(db))

	owner := createUser(t, db, "owner@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	_, err := sharing.Share(device.ID, owner.ID, owner.Email)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestShareRejectsDuplicateGrant(t *testing.T) {
	db := newTestDB(t)
	sharing := NewSharingService(db, NewAccessService(db))

	owner := createUser(t, db, "owner@example.com")
	viewer := createUser(t, db, "viewer@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	_, err := sharing.Share(device.ID, owner.ID, viewer.Email)
	require.NoError(t, err)

	_, err = sharing.Share(device.ID, owner.ID, viewer.Email)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestShareRequiresExistingAccount(t *testing.T) {
	db := newTestDB(t)
	sharing := NewSharingService(db, NewAccessService(db))

	owner := createUser(t, db, "owner@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	_, err := sharing.Share(device.ID, owner.ID, "never-signed-in@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShareRequiresOwner(t *testing.T) {
	db := newTestDB(t)
	sharing := NewSharingService(db, NewAccessService(db))

	owner := createUser(t, db, "owner@example.com")
	viewer := createUser(t, db, "viewer@example.com")
	other := createUser(t, db, "other@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	_, err := sharing.Share(device.ID, viewer.ID, other.Email)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUnshareIsNoOpWhenAbsent(t *testing.T) {
	db := newTestDB(t)
	sharing := NewSharingService(db, NewAccessService(db))

	owner := createUser(t, db, "owner@example.com")
	viewer := createUser(t, db, "viewer@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	assert.NoError(t, sharing.Unshare(device.ID, owner.ID, viewer.ID))
}

func TestListSharesRoundTrip(t *testing.T) {
	db := newTestDB(t)
	sharing := NewSharingService(db, NewAccessService(db))

	owner := createUser(t, db, "owner@example.com")
	viewer := createUser(t, db, "viewer@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	_, err := sharing.Share(device.ID, owner.ID, viewer.Email)
	require.NoError(t, err)

	shares, err := sharing.ListShares(device.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, viewer.ID, shares[0].UserID)
	assert.Equal(t, viewer.Email, shares[0].Email)
	assert.Equal(t, models.RoleViewer, shares[0].Role)

	require.NoError(t, sharing.Unshare(device.ID, owner.ID, viewer.ID))

	shares, err = sharing.ListShares(device.ID, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, shares)
}

func TestListSharesRequiresOwner(t *testing.T) {
	db := newTestDB(t)
	sharing := NewSharingService(db, NewAccessService(db))

	owner := createUser(t, db, "owner@example.com")
	viewer := createUser(t, db, "viewer@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	_, err := sharing.ListShares(device.ID, viewer.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestResolveAuthorizedUsers(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	sharing := NewSharingService(db, access)

	owner := createUser(t, db, "owner@example.com")
	viewerA := createUser(t, db, "a@example.com")
	viewerB := createUser(t, db, "b@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)

	_, err := sharing.Share(device.ID, owner.ID, viewerA.Email)
	require.NoError(t, err)
	_, err = sharing.Share(device.ID, owner.ID, viewerB.Email)
	require.NoError(t, err)

	users := sharing.ResolveAuthorizedUsers(device.ID)
	assert.ElementsMatch(t, []uint{owner.ID, viewerA.ID, viewerB.ID}, users)
}

func TestListSharesDegradesWhenStoreUnavailable(t *testing.T) {
	db := newTestDB(t)
	sharing := NewSharingService(db, NewAccessService(db))

	owner := createUser(t, db, "owner@example.com")
	viewer := createUser(t, db, "viewer@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)
	_, err := sharing.Share(device.ID, owner.ID, viewer.Email)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// Read path: a broken store yields an empty list, not an error.
	shares, err := sharing.ListShares(device.ID, owner.ID)
	assert.NoError(t, err)
	assert.Empty(t, shares)
}

func TestResolveAuthorizedUsersDegradesToEmpty(t *testing.T) {
	db := newTestDB(t)
	sharing := NewSharingService(db, NewAccessService(db))

	// Unknown device.
	assert.Empty(t, sharing.ResolveAuthorizedUsers(9999))

	// Device whose owner row vanished: no recipients, no error.
	device := createDevice(t, db, "esp32-orphan", 4242)
	assert.Empty(t, sharing.ResolveAuthorizedUsers(device.ID))
}
