package services

import (
	"sync"
	"testing"
	"time"

	"birdhouse-viewer/be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDelivery resolves each send from a per-endpoint error table.
type fakeDelivery struct {
	mu       sync.Mutex
	results  map[string]error
	payloads map[string][]byte
}

func newFakeDelivery() *fakeDelivery {
	return &fakeDelivery{
		results:  map[string]error{},
		payloads: map[string][]byte{},
	}
}

func (f *fakeDelivery) Send(sub models.PushSubscription, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[sub.Endpoint] = payload
	return f.results[sub.Endpoint]
}

func newMotionEvent(deviceID uint) *models.MotionEvent {
	return &models.MotionEvent{
		DeviceID:   deviceID,
		DetectedAt: time.Now(),
	}
}

func TestDispatchCountsAndPrunesGoneEndpoints(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	sharing := NewSharingService(db, access)
	delivery := newFakeDelivery()
	svc := NewNotificationService(db, sharing, delivery)

	owner := createUser(t, db, "owner@example.com")
	viewer := createUser(t, db, "viewer@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)
	_, err := sharing.Share(device.ID, owner.ID, viewer.Email)
	require.NoError(t, err)

	ownerSub := createSubscription(t, db, owner.ID, "https://push.example/owner")
	viewerSub := createSubscription(t, db, viewer.ID, "https://push.example/viewer")
	delivery.results[viewerSub.Endpoint] = ErrEndpointGone

	result := svc.Dispatch(&device, newMotionEvent(device.ID))
	assert.Equal(t, DispatchResult{Sent: 1, Failed: 1}, result)

	// The gone endpoint is pruned, the healthy one remains.
	var remaining []models.PushSubscription
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, ownerSub.Endpoint, remaining[0].Endpoint)
}

func TestDispatchKeepsEndpointOnTransientFailure(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	sharing := NewSharingService(db, access)
	delivery := newFakeDelivery()
	svc := NewNotificationService(db, sharing, delivery)

	owner := createUser(t, db, "owner@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)
	sub := createSubscription(t, db, owner.ID, "https://push.example/flaky")
	delivery.results[sub.Endpoint] = assert.AnError

	result := svc.Dispatch(&device, newMotionEvent(device.ID))
	assert.Equal(t, DispatchResult{Sent: 0, Failed: 1}, result)

	var count int64
	require.NoError(t, db.Model(&models.PushSubscription{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDispatchWithNoRecipients(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	sharing := NewSharingService(db, access)
	svc := NewNotificationService(db, sharing, newFakeDelivery())

	// Owner row missing entirely: empty fan-out, no error.
	device := createDevice(t, db, "esp32-orphan", 4242)

	result := svc.Dispatch(&device, newMotionEvent(device.ID))
	assert.Equal(t, DispatchResult{}, result)
}

func TestDispatchSkipsUsersWithoutEndpoints(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	sharing := NewSharingService(db, access)
	delivery := newFakeDelivery()
	svc := NewNotificationService(db, sharing, delivery)

	owner := createUser(t, db, "owner@example.com")
	viewer := createUser(t, db, "viewer@example.com") // no subscriptions
	device := createDevice(t, db, "esp32-001", owner.ID)
	_, err := sharing.Share(device.ID, owner.ID, viewer.Email)
	require.NoError(t, err)
	createSubscription(t, db, owner.ID, "https://push.example/owner")

	result := svc.Dispatch(&device, newMotionEvent(device.ID))
	assert.Equal(t, DispatchResult{Sent: 1, Failed: 0}, result)
}

func TestDispatchReachesEveryEndpointOfARecipient(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	sharing := NewSharingService(db, access)
	delivery := newFakeDelivery()
	svc := NewNotificationService(db, sharing, delivery)

	owner := createUser(t, db, "owner@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)
	createSubscription(t, db, owner.ID, "https://push.example/phone")
	createSubscription(t, db, owner.ID, "https://push.example/laptop")

	result := svc.Dispatch(&device, newMotionEvent(device.ID))
	assert.Equal(t, DispatchResult{Sent: 2, Failed: 0}, result)
	assert.Len(t, delivery.payloads, 2)
}

func TestBroadcastHitsAllSubscriptions(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	sharing := NewSharingService(db, access)
	delivery := newFakeDelivery()
	svc := NewNotificationService(db, sharing, delivery)

	a := createUser(t, db, "a@example.com")
	b := createUser(t, db, "b@example.com")
	createSubscription(t, db, a.ID, "https://push.example/a")
	createSubscription(t, db, b.ID, "https://push.example/b")

	result := svc.Broadcast(NotificationPayload{Title: "Maintenance", Body: "Back soon"})
	assert.Equal(t, DispatchResult{Sent: 2, Failed: 0}, result)
}

// Dispatch deletes rows from goroutines; make sure the gorm handle survives
// a larger concurrent fan-out without losing counts.
func TestDispatchConcurrentFanOut(t *testing.T) {
	db := newTestDB(t)
	access := NewAccessService(db)
	sharing := NewSharingService(db, access)
	delivery := newFakeDelivery()
	svc := NewNotificationService(db, sharing, delivery)

	owner := createUser(t, db, "owner@example.com")
	device := createDevice(t, db, "esp32-001", owner.ID)
	for i := 0; i < 16; i++ {
		createSubscription(t, db, owner.ID, "https://push.example/ep-"+string(rune('a'+i)))
	}

	result := svc.Dispatch(&device, newMotionEvent(device.ID))
	assert.Equal(t, DispatchResult{Sent: 16, Failed: 0}, result)
}
