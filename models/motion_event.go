package models

import (
	"time"
)

type MotionEvent struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	DeviceID         uint      `json:"device_id" gorm:"not null;index"`
	DetectedAt       time.Time `json:"detected_at" gorm:"not null"`
	NotificationSent bool      `json:"notification_sent" gorm:"default:false"`
	CreatedAt        time.Time `json:"created_at"`
}
