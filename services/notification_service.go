package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"birdhouse-viewer/be/logs"
	"birdhouse-viewer/be/models"

	"gorm.io/gorm"
)

// Delivery pushes one payload to one endpoint. Implementations return
// ErrEndpointGone when the transport reports the endpoint is permanently
// invalid; any other error counts as a transient failure.
type Delivery interface {
	Send(sub models.PushSubscription, payload []byte) error
}

// DispatchResult is the flattened outcome of a fan-out: totals only, no
// per-recipient breakdown. The only consumer is a best-effort alerting path.
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// NotificationPayload is what the service worker on the browser side unpacks.
type NotificationPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Icon  string                 `json:"icon,omitempty"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

type NotificationService struct {
	db       *gorm.DB
	sharing  *SharingService
	delivery Delivery
}

func NewNotificationService(db *gorm.DB, sharing *SharingService, delivery Delivery) *NotificationService {
	return &NotificationService{db: db, sharing: sharing, delivery: delivery}
}

// Dispatch notifies every user authorized on the device about a motion event.
// Delivery is best-effort and per-endpoint independent: one endpoint failing
// never blocks another, and endpoints the push service reports gone are
// deleted. A device with no resolvable recipients is an empty fan-out, not an
// error.
func (s *NotificationService) Dispatch(device *models.Device, event *models.MotionEvent) DispatchResult {
	recipients := s.sharing.ResolveAuthorizedUsers(device.ID)
	if len(recipients) == 0 {
		return DispatchResult{}
	}

	payload := NotificationPayload{
		Title: fmt.Sprintf("Motion detected: %s", device.Name),
		Body:  fmt.Sprintf("Motion was detected in your birdhouse %q", device.Name),
		Icon:  "/icons/motion-192.png",
		Data: map[string]interface{}{
			"deviceId":  device.DeviceID,
			"type":      "motion_detection",
			"timestamp": event.DetectedAt.Format(time.RFC3339),
		},
	}

	var subs []models.PushSubscription
	if err := s.db.Where("user_id IN ?", recipients).Find(&subs).Error; err != nil {
		logs.Logger.Warnf("dispatch: subscription lookup failed for device %d: %v", device.ID, err)
		return DispatchResult{}
	}

	return s.send(subs, payload)
}

// Broadcast sends an arbitrary payload to every subscription in the store.
// Used by the admin system-notification endpoint only.
func (s *NotificationService) Broadcast(payload NotificationPayload) DispatchResult {
	var subs []models.PushSubscription
	if err := s.db.Find(&subs).Error; err != nil {
		logs.Logger.Warnf("broadcast: subscription lookup failed: %v", err)
		return DispatchResult{}
	}
	return s.send(subs, payload)
}

func (s *NotificationService) send(subs []models.PushSubscription, payload NotificationPayload) DispatchResult {
	if len(subs) == 0 {
		return DispatchResult{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logs.Logger.Errorf("dispatch: payload marshal failed: %v", err)
		return DispatchResult{Failed: len(subs)}
	}

	var (
		mu     sync.Mutex
		result DispatchResult
		wg     sync.WaitGroup
	)

	for _, sub := range subs {
		wg.Add(1)
		go func(sub models.PushSubscription) {
			defer wg.Done()

			err := s.delivery.Send(sub, body)
			if err == nil {
				mu.Lock()
				result.Sent++
				mu.Unlock()
				return
			}

			if errors.Is(err, ErrEndpointGone) {
				// Endpoint delete is keyed by the endpoint's own id, so
				// concurrent prunes never touch each other's rows.
				if delErr := s.db.Delete(&models.PushSubscription{}, sub.ID).Error; delErr != nil {
					logs.Logger.Warnf("dispatch: failed to prune gone endpoint %d: %v", sub.ID, delErr)
				} else {
					logs.Logger.Infof("Pruned gone push endpoint %d (user %d)", sub.ID, sub.UserID)
				}
			} else {
				logs.Logger.Warnf("dispatch: delivery to endpoint %d failed: %v", sub.ID, err)
			}

			mu.Lock()
			result.Failed++
			mu.Unlock()
		}(sub)
	}

	wg.Wait()
	return result
}
