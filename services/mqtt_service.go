package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"birdhouse-viewer/be/config"
	"birdhouse-viewer/be/logs"
	"birdhouse-viewer/be/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"gorm.io/gorm"
)

// MQTTService is the device ingest channel. Devices authenticate to the
// broker; the device id in the topic is the trust boundary here, so no
// per-message auth check is performed.
//
// Topics (external device id in the middle segment):
//
//	device/+/motion  JSON motion event  -> MotionEvent row + push fan-out
//	device/+/status  liveness ping      -> Device.LastSeen / Status
//	device/+/image   raw JPEG frame     -> StreamHub
//	device/+/video   JSON clip metadata -> MotionVideo row
type MQTTService struct {
	cfg           config.MQTTConfig
	db            *gorm.DB
	notifications *NotificationService
	hub           *StreamHub
	client        mqtt.Client
}

type motionMessage struct {
	Timestamp string `json:"timestamp"`
}

type videoMessage struct {
	ObjectKey   string `json:"object_key"`
	ContentType string `json:"content_type"`
	DurationSec int    `json:"duration_sec"`
	EventID     *uint  `json:"event_id"`
}

func NewMQTTService(cfg config.MQTTConfig, db *gorm.DB, notifications *NotificationService, hub *StreamHub) *MQTTService {
	return &MQTTService{
		cfg:           cfg,
		db:            db,
		notifications: notifications,
		hub:           hub,
	}
}

// Connect dials the broker and subscribes to the device topics. Subscriptions
// are installed in the connect handler so they survive reconnects.
func (s *MQTTService) Connect() error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logs.Logger.Infof("Connected to MQTT broker at %s", s.cfg.BrokerURL)
		s.subscribe(client, "device/+/motion", s.handleMotion)
		s.subscribe(client, "device/+/status", s.handleStatus)
		s.subscribe(client, "device/+/image", s.handleImage)
		s.subscribe(client, "device/+/video", s.handleVideo)
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logs.Logger.Warnf("MQTT connection lost: %v", err)
	})

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	token.Wait()
	return token.Error()
}

func (s *MQTTService) Disconnect() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

func (s *MQTTService) subscribe(client mqtt.Client, topic string, handler mqtt.MessageHandler) {
	token := client.Subscribe(topic, 1, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		logs.Logger.Errorf("MQTT subscribe %s failed: %v", topic, err)
		return
	}
	logs.Logger.Infof("Subscribed to %s", topic)
}

// deviceIDFromTopic pulls the external device id out of device/<id>/<kind>.
func deviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "device" {
		return ""
	}
	return parts[1]
}

func (s *MQTTService) findDevice(externalID string) (*models.Device, bool) {
	var device models.Device
	if err := s.db.Where("device_id = ?", externalID).First(&device).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logs.Logger.Warnf("mqtt: device lookup %q failed: %v", externalID, err)
		}
		return nil, false
	}
	return &device, true
}

func (s *MQTTService) handleMotion(client mqtt.Client, msg mqtt.Message) {
	externalID := deviceIDFromTopic(msg.Topic())
	if externalID == "" {
		logs.Logger.Warnf("mqtt: invalid motion topic %q", msg.Topic())
		return
	}

	device, ok := s.findDevice(externalID)
	if !ok {
		logs.Logger.Warnf("mqtt: motion from unknown device %q", externalID)
		return
	}

	detectedAt := time.Now()
	var payload motionMessage
	if err := json.Unmarshal(msg.Payload(), &payload); err == nil && payload.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
			detectedAt = ts
		}
	}

	event := models.MotionEvent{
		DeviceID:   device.ID,
		DetectedAt: detectedAt,
	}
	if err := s.db.Create(&event).Error; err != nil {
		logs.Logger.Errorf("mqtt: failed to record motion event for device %d: %v", device.ID, err)
		return
	}

	if err := s.db.Model(&models.Device{}).Where("id = ?", device.ID).
		Update("last_motion_at", detectedAt).Error; err != nil {
		logs.Logger.Warnf("mqtt: failed to update last motion for device %d: %v", device.ID, err)
	}

	result := s.notifications.Dispatch(device, &event)
	logs.Logger.Infof("Motion on device %s: %d sent, %d failed", device.DeviceID, result.Sent, result.Failed)

	// Delivery is best-effort; the flag records that fan-out ran, not that
	// every endpoint took the payload.
	if err := s.db.Model(&event).Update("notification_sent", true).Error; err != nil {
		logs.Logger.Warnf("mqtt: failed to mark event %d notified: %v", event.ID, err)
	}
}

func (s *MQTTService) handleStatus(client mqtt.Client, msg mqtt.Message) {
	externalID := deviceIDFromTopic(msg.Topic())
	if externalID == "" {
		return
	}

	status := strings.TrimSpace(string(msg.Payload()))
	if status != "online" && status != "offline" {
		status = "online"
	}

	now := time.Now()
	if err := s.db.Model(&models.Device{}).
		Where("device_id = ?", externalID).
		Updates(map[string]interface{}{"status": status, "last_seen": now}).Error; err != nil {
		logs.Logger.Warnf("mqtt: liveness update for %q failed: %v", externalID, err)
	}
}

func (s *MQTTService) handleImage(client mqtt.Client, msg mqtt.Message) {
	externalID := deviceIDFromTopic(msg.Topic())
	if externalID == "" {
		return
	}
	// Frames fan out by external id; no DB hit on the hot path.
	s.hub.Publish(externalID, msg.Payload())
}

func (s *MQTTService) handleVideo(client mqtt.Client, msg mqtt.Message) {
	externalID := deviceIDFromTopic(msg.Topic())
	if externalID == "" {
		return
	}

	device, ok := s.findDevice(externalID)
	if !ok {
		logs.Logger.Warnf("mqtt: video from unknown device %q", externalID)
		return
	}

	var payload videoMessage
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil || payload.ObjectKey == "" {
		logs.Logger.Warnf("mqtt: invalid video payload from %q", externalID)
		return
	}

	contentType := payload.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}

	video := models.MotionVideo{
		DeviceID:      device.ID,
		MotionEventID: payload.EventID,
		ObjectKey:     payload.ObjectKey,
		ContentType:   contentType,
		DurationSec:   payload.DurationSec,
	}
	if err := s.db.Create(&video).Error; err != nil {
		logs.Logger.Errorf("mqtt: failed to record video for device %d: %v", device.ID, err)
		return
	}
	logs.Logger.Infof("Recorded motion video %d for device %s", video.ID, device.DeviceID)
}
